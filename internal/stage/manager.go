// Package stage implements the stage graph: a linear chain of stages,
// each a parent container holding the four fixed process steps, plus the
// connector edges between them.
//
// A Manager owns the node, edge and stage-label collections and exposes
// the operations renderers drive it with (add stage, delete stage,
// connect). Operations that fall outside the contract are no-ops that
// leave the prior state untouched; they never return errors.
//
// A Manager is not safe for concurrent use.
package stage

import (
	"sort"
)

// DefaultMaxStages is the hard cap on the number of stages.
const DefaultMaxStages = 10

// Manager holds the stage graph and applies editing operations to it.
type Manager struct {
	maxStages int
	ids       IDSource

	labels []string
	nodes  []Node
	edges  []Edge
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxStages lowers the stage cap. Values outside 1..DefaultMaxStages
// are ignored.
func WithMaxStages(n int) Option {
	return func(m *Manager) {
		if n >= 1 && n <= DefaultMaxStages {
			m.maxStages = n
		}
	}
}

// WithIDSource sets the token source for step ids and user edges.
func WithIDSource(src IDSource) Option {
	return func(m *Manager) {
		if src != nil {
			m.ids = src
		}
	}
}

// New creates a manager holding the initial single-stage graph.
func New(opts ...Option) *Manager {
	m := &Manager{
		maxStages: DefaultMaxStages,
		ids:       RandomIDs{},
	}
	for _, opt := range opts {
		opt(m)
	}

	nodes, edges := buildStage(0, m.ids.Next())
	m.labels = []string{StageLabel(0)}
	m.nodes = nodes
	m.edges = edges
	return m
}

// MaxStages returns the stage cap.
func (m *Manager) MaxStages() int { return m.maxStages }

// StageCount returns the number of stages.
func (m *Manager) StageCount() int { return len(m.labels) }

// CanAdd reports whether another stage may be appended.
func (m *Manager) CanAdd() bool { return len(m.labels) < m.maxStages }

// Graph returns a copy of the current collections.
func (m *Manager) Graph() Graph {
	return Graph{Stages: m.labels, Nodes: m.nodes, Edges: m.edges}.Clone()
}

// AddStage appends a new stage wired to the previous last stage. It is a
// no-op returning false once the cap is reached.
func (m *Manager) AddStage() (Graph, bool) {
	if !m.CanAdd() {
		return m.Graph(), false
	}

	index := len(m.labels)
	nodes, edges := buildStage(index, m.ids.Next())

	m.nodes = append(m.nodes, nodes...)
	m.edges = append(m.edges, edges...)
	m.edges = append(m.edges, interStageEdge(index-1))
	m.labels = append(m.labels, StageLabel(index))

	return m.Graph(), true
}

// DeleteStage removes the stage whose parent node has the given id.
// Stages after it shift down by one; the inter-stage path is rebuilt from
// the renumbered parents. Ids that are not parents, and the last remaining
// stage, are ignored.
func (m *Manager) DeleteStage(id string) (Graph, bool) {
	deleted, ok := m.parentIndex(id)
	if !ok || len(m.labels) <= 1 {
		return m.Graph(), false
	}

	dropped := make(map[string]bool, 1+StepsPerStage)
	renamed := make(map[string]string)
	nodes := make([]Node, 0, len(m.nodes))

	for _, n := range m.nodes {
		idx, ok := n.StageIndex()
		switch {
		case !ok || idx < deleted:
			nodes = append(nodes, n)
		case idx == deleted:
			dropped[n.ID] = true
		case n.IsParent():
			moved := renumbered(n, idx-1)
			renamed[n.ID] = moved.ID
			nodes = append(nodes, moved)
		default:
			n.ParentID = ParentID(idx - 1)
			nodes = append(nodes, n)
		}
	}

	edges := make([]Edge, 0, len(m.edges))
	for _, e := range m.edges {
		if e.Kind == EdgeInterStage || dropped[e.Source] || dropped[e.Target] {
			continue
		}
		if to, ok := renamed[e.Source]; ok {
			e.Source = to
		}
		if to, ok := renamed[e.Target]; ok {
			e.Target = to
		}
		edges = append(edges, e)
	}

	m.labels = m.labels[:len(m.labels)-1]
	m.nodes = nodes
	m.edges = append(edges, interStagePath(len(m.labels))...)

	return m.Graph(), true
}

// DeleteNodes handles a batch of nodes removed by the user. Parent ids are
// deleted from the highest stage down so earlier deletions do not shift
// later ones; any other id is ignored.
func (m *Manager) DeleteNodes(ids []string) (Graph, bool) {
	var indices []int
	for _, id := range ids {
		if idx, ok := m.parentIndex(id); ok {
			indices = append(indices, idx)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))

	changed := false
	for i, idx := range indices {
		if i > 0 && idx == indices[i-1] {
			continue
		}
		if _, ok := m.DeleteStage(ParentID(idx)); ok {
			changed = true
		}
	}
	return m.Graph(), changed
}

// Connect appends a deletable user edge between the given endpoints. Which
// endpoints may connect is the renderer's concern; see CanConnect.
func (m *Manager) Connect(c Connection) (Edge, Graph) {
	e := userEdge("e-"+m.ids.Next(), c)
	m.edges = append(m.edges, e)
	return e, m.Graph()
}

// RemoveEdges removes the deletable edges among ids and returns how many
// were removed. Fixed topology edges are kept.
func (m *Manager) RemoveEdges(ids []string) (Graph, int) {
	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}

	removed := 0
	edges := m.edges[:0]
	for _, e := range m.edges {
		if e.Deletable && remove[e.ID] {
			removed++
			continue
		}
		edges = append(edges, e)
	}
	m.edges = edges
	return m.Graph(), removed
}

// MoveNode places a draggable node at pos, the result of a drag.
func (m *Manager) MoveNode(id string, pos Position) bool {
	for i := range m.nodes {
		if m.nodes[i].ID == id {
			if !m.nodes[i].Draggable {
				return false
			}
			m.nodes[i].Position = pos
			return true
		}
	}
	return false
}

// Validate checks the stage invariants against the current state.
func (m *Manager) Validate() error {
	return m.Graph().validate(m.maxStages)
}

// Restore replaces the current state with g after validating it.
func (m *Manager) Restore(g Graph) error {
	if err := g.validate(m.maxStages); err != nil {
		return err
	}
	g = g.Clone()
	m.labels = g.Stages
	m.nodes = g.Nodes
	m.edges = g.Edges
	return nil
}

func (m *Manager) parentIndex(id string) (int, bool) {
	for _, n := range m.nodes {
		if n.IsParent() && n.ID == id {
			return n.StageIndex()
		}
	}
	return 0, false
}
