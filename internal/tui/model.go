// Package tui is a terminal editor for a single stage graph.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/stageflow/internal/stage"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0072"))
	stageStyle   = lipgloss.NewStyle().Bold(true)
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#60a5fa"))
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	edgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	interStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0072"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	sectionStyle = lipgloss.NewStyle().Underline(true)
)

// Model is the bubbletea model of the terminal editor.
type Model struct {
	manager *stage.Manager

	cursor      int
	connectFrom string
	status      string

	keys     keyMap
	help     help.Model
	quitting bool
}

// New creates a model editing m.
func New(m *stage.Manager) Model {
	return Model{
		manager: m,
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
}

// Graph returns the edited graph.
func (m Model) Graph() stage.Graph {
	return m.manager.Graph()
}

// Cursor returns the id of the node under the cursor.
func (m Model) Cursor() string {
	rows := m.rows()
	if len(rows) == 0 {
		return ""
	}
	return rows[m.cursor].ID
}

// Status returns the last status message.
func (m Model) Status() string {
	return m.status
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows())-1 {
				m.cursor++
			}

		case key.Matches(msg, m.keys.Add):
			if _, ok := m.manager.AddStage(); ok {
				m.status = fmt.Sprintf("added %s", stage.StageLabel(m.manager.StageCount()-1))
			} else {
				m.status = fmt.Sprintf("stage cap of %d reached", m.manager.MaxStages())
			}

		case key.Matches(msg, m.keys.Delete):
			m.deleteUnderCursor()

		case key.Matches(msg, m.keys.Connect):
			m.connect()

		case key.Matches(msg, m.keys.Cancel):
			if m.connectFrom != "" {
				m.connectFrom = ""
				m.status = "connect cancelled"
			}

		case key.Matches(msg, m.keys.Unlink):
			users := m.manager.Graph().EdgesOf(stage.EdgeUser)
			if len(users) == 0 {
				m.status = "no connections to remove"
				break
			}
			last := users[len(users)-1]
			m.manager.RemoveEdges([]string{last.ID})
			m.status = fmt.Sprintf("removed %s -> %s", last.Source, last.Target)

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

func (m *Model) deleteUnderCursor() {
	id := m.Cursor()
	g := m.manager.Graph()
	n, ok := g.Node(id)
	if !ok {
		return
	}
	parentID := n.ID
	if !n.IsParent() {
		parentID = n.ParentID
	}

	if _, ok := m.manager.DeleteStage(parentID); !ok {
		m.status = "the only stage cannot be deleted"
		return
	}
	if m.connectFrom != "" {
		if _, ok := m.manager.Graph().Node(m.connectFrom); !ok {
			m.connectFrom = ""
		}
	}
	if rows := len(m.rows()); m.cursor >= rows {
		m.cursor = rows - 1
	}
	m.status = fmt.Sprintf("deleted %s", parentLabel(g, parentID))
}

func (m *Model) connect() {
	id := m.Cursor()
	if m.connectFrom == "" {
		m.connectFrom = id
		m.status = fmt.Sprintf("connecting from %s: move to a target and press c", id)
		return
	}

	c := stage.Connection{Source: m.connectFrom, Target: id}
	m.connectFrom = ""
	if !stage.CanConnect(m.manager.Graph(), c) {
		m.status = fmt.Sprintf("%s cannot connect to %s", c.Source, c.Target)
		return
	}
	m.manager.Connect(c)
	m.status = fmt.Sprintf("connected %s -> %s", c.Source, c.Target)
}

// rows lists nodes in display order: each parent followed by its steps.
func (m Model) rows() []stage.Node {
	g := m.manager.Graph()
	rows := make([]stage.Node, 0, len(g.Nodes))
	for _, p := range g.Parents() {
		rows = append(rows, p)
		rows = append(rows, g.StepsOf(p.ID)...)
	}
	return rows
}

func parentLabel(g stage.Graph, id string) string {
	if p, ok := g.Node(id); ok {
		return p.Data.Label
	}
	return id
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	g := m.manager.Graph()
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("stageflow  %d / %d stages", len(g.Stages), m.manager.MaxStages())))
	b.WriteString("\n\n")

	cursorID := m.Cursor()
	for _, n := range m.rows() {
		line := n.Data.Label
		style := stageStyle
		indent := ""
		if !n.IsParent() {
			line = fmt.Sprintf("%s  %s", n.Data.Step, n.ID)
			style = stepStyle
			indent = "    "
		} else {
			line = fmt.Sprintf("%s  (%s)", line, n.ID)
		}

		marker := "  "
		if n.ID == m.connectFrom {
			marker = sourceStyle.Render("◆ ")
		}
		text := style.Render(line)
		if n.ID == cursorID {
			text = cursorStyle.Render(line)
		}
		b.WriteString(indent + marker + text + "\n")
	}

	b.WriteString("\n" + sectionStyle.Render("Edges") + "\n")
	for _, e := range g.Edges {
		line := fmt.Sprintf("  %s -> %s  [%s]", e.Source, e.Target, e.Kind)
		if e.Kind == stage.EdgeInterStage {
			b.WriteString(interStyle.Render(line) + "\n")
			continue
		}
		b.WriteString(edgeStyle.Render(line) + "\n")
	}

	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys) + "\n")
	return b.String()
}
