// Package board keeps named stage graphs alive for the lifetime of the
// process and serialises the operations applied to them.
package board

import (
	"log/slog"
	"regexp"
	"sort"
	"sync"

	"github.com/leapstack-labs/stageflow/internal/stage"
)

const (
	// DefaultName is the board opened when none is requested.
	DefaultName = "main"
	// DefaultMaxBoards bounds how many boards a registry keeps open.
	DefaultMaxBoards = 64
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidName reports whether name can be used as a board name.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// Board is one stage graph with a lock around it.
type Board struct {
	name string

	mu      sync.Mutex
	manager *stage.Manager

	onChange func(name string)
}

// Name returns the board name.
func (b *Board) Name() string { return b.name }

// Do runs fn with exclusive access to the manager. fn reports whether it
// changed the graph; if so listeners are notified after the lock is
// released. A panic in fn leaves the board unlocked.
func (b *Board) Do(fn func(m *stage.Manager) bool) bool {
	changed := func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return fn(b.manager)
	}()

	if changed && b.onChange != nil {
		b.onChange(b.name)
	}
	return changed
}

// Graph returns a copy of the board's graph.
func (b *Board) Graph() stage.Graph {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.manager.Graph()
}

// State returns the graph together with whether another stage fits.
func (b *Board) State() (g stage.Graph, canAdd bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.manager.Graph(), b.manager.CanAdd()
}

// Config holds configuration for a Registry.
type Config struct {
	// MaxStages lowers the per-board stage cap. Zero keeps the default.
	MaxStages int
	// MaxBoards caps the number of open boards. Zero uses DefaultMaxBoards.
	MaxBoards int
	// IDs overrides the token source for every board. Nil uses random ids.
	IDs stage.IDSource
	// OnChange is called with the board name after every change.
	OnChange func(name string)
	Logger   *slog.Logger
}

// Registry holds boards by name.
type Registry struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	boards map[string]*Board
	seed   *stage.Graph
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		cfg:    cfg,
		logger: logger,
		boards: make(map[string]*Board),
	}
}

// Get returns the named board, creating it from the seed graph if it does
// not exist yet. Invalid names return false, as do new names once the
// registry is full. The default board can always be opened.
func (r *Registry) Get(name string) (*Board, bool) {
	if !ValidName(name) {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.boards[name]; ok {
		return b, true
	}
	if name != DefaultName && len(r.boards) >= r.MaxBoards() {
		r.logger.Warn("board limit reached", "board", name, "max_boards", r.MaxBoards())
		return nil, false
	}
	b := &Board{
		name:     name,
		manager:  r.newManager(),
		onChange: r.cfg.OnChange,
	}
	r.boards[name] = b
	r.logger.Debug("board created", "board", name)
	return b, true
}

// MaxStages returns the stage cap applied to every board.
func (r *Registry) MaxStages() int {
	if r.cfg.MaxStages >= 1 && r.cfg.MaxStages <= stage.DefaultMaxStages {
		return r.cfg.MaxStages
	}
	return stage.DefaultMaxStages
}

// MaxBoards returns the number of boards the registry keeps open.
func (r *Registry) MaxBoards() int {
	if r.cfg.MaxBoards > 0 {
		return r.cfg.MaxBoards
	}
	return DefaultMaxBoards
}

// Names returns the names of all open boards, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.boards))
	for name := range r.boards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reseed validates g, makes it the starting graph for new boards and
// resets the default board to it.
func (r *Registry) Reseed(g stage.Graph) error {
	check := stage.New(r.options()...)
	if err := check.Restore(g); err != nil {
		return err
	}

	r.mu.Lock()
	seed := g.Clone()
	r.seed = &seed
	b, ok := r.boards[DefaultName]
	r.mu.Unlock()

	if ok {
		b.Do(func(m *stage.Manager) bool {
			return m.Restore(seed) == nil
		})
	}
	r.logger.Info("seed graph replaced", "stages", len(g.Stages))
	return nil
}

func (r *Registry) options() []stage.Option {
	opts := []stage.Option{}
	if r.cfg.MaxStages > 0 {
		opts = append(opts, stage.WithMaxStages(r.cfg.MaxStages))
	}
	if r.cfg.IDs != nil {
		opts = append(opts, stage.WithIDSource(r.cfg.IDs))
	}
	return opts
}

// newManager must be called with r.mu held.
func (r *Registry) newManager() *stage.Manager {
	m := stage.New(r.options()...)
	if r.seed != nil {
		if err := m.Restore(*r.seed); err != nil {
			r.logger.Warn("seed graph rejected", "error", err)
		}
	}
	return m
}
