package stage

import (
	"strconv"
)

// Kind is the rendering type tag of a node.
type Kind string

// Node kinds. The string values are the renderer's node type names.
const (
	KindParent Kind = "parent"
	KindStep   Kind = "custom"
)

// Step is one of the four fixed roles inside a stage.
type Step string

// Steps of a stage, in sequence order.
const (
	StepFormulation      Step = "Formulation"
	StepProcessing       Step = "Processing"
	StepCharacterization Step = "Characterization"
	StepProperties       Step = "Properties"
)

// EdgeKind distinguishes fixed topology edges from user connections.
type EdgeKind string

// Edge kinds.
const (
	EdgeIntraStage EdgeKind = "intra"
	EdgeInterStage EdgeKind = "inter"
	EdgeUser       EdgeKind = "user"
)

// MarkerType is the arrow head drawn at an edge end.
type MarkerType string

// Marker types.
const (
	MarkerArrow       MarkerType = "arrow"
	MarkerArrowClosed MarkerType = "arrowclosed"
)

// Position is a 2-D layout coordinate. Step positions are relative to
// their parent.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeData is the per-type render data of a node.
type NodeData struct {
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Step    Step   `json:"step,omitempty" yaml:"step,omitempty"`
	Icon    string `json:"icon,omitempty" yaml:"icon,omitempty"`
	IsFirst bool   `json:"isFirst,omitempty" yaml:"isFirst,omitempty"`
	IsLast  bool   `json:"isLast,omitempty" yaml:"isLast,omitempty"`
}

// NodeStyle holds size hints and z-order.
type NodeStyle struct {
	Width  float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height float64 `json:"height,omitempty" yaml:"height,omitempty"`
	ZIndex int     `json:"zIndex,omitempty" yaml:"zIndex,omitempty"`
}

// Node is a parent container or a step node.
type Node struct {
	ID        string    `json:"id" yaml:"id"`
	Type      Kind      `json:"type" yaml:"type"`
	Position  Position  `json:"position" yaml:"position"`
	Data      NodeData  `json:"data" yaml:"data"`
	ParentID  string    `json:"parentNode,omitempty" yaml:"parentNode,omitempty"`
	Extent    string    `json:"extent,omitempty" yaml:"extent,omitempty"`
	Style     NodeStyle `json:"style" yaml:"style"`
	Draggable bool      `json:"draggable" yaml:"draggable"`
}

// IsParent reports whether n is a stage container.
func (n Node) IsParent() bool { return n.Type == KindParent }

// StageIndex returns the stage index a node belongs to: its own id for
// parents, its parent reference for steps.
func (n Node) StageIndex() (int, bool) {
	key := n.ParentID
	if n.IsParent() {
		key = n.ID
	}
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// Marker describes an edge arrow head.
type Marker struct {
	Type        MarkerType `json:"type" yaml:"type"`
	Width       float64    `json:"width,omitempty" yaml:"width,omitempty"`
	Height      float64    `json:"height,omitempty" yaml:"height,omitempty"`
	StrokeWidth float64    `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty"`
	Color       string     `json:"color,omitempty" yaml:"color,omitempty"`
}

// EdgeStyle describes how an edge line is stroked.
type EdgeStyle struct {
	StrokeWidth float64 `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty"`
	Stroke      string  `json:"stroke,omitempty" yaml:"stroke,omitempty"`
}

// Edge is a directed connector between two node ids.
type Edge struct {
	ID           string    `json:"id" yaml:"id"`
	Source       string    `json:"source" yaml:"source"`
	Target       string    `json:"target" yaml:"target"`
	SourceHandle string    `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string    `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
	Kind         EdgeKind  `json:"kind" yaml:"kind"`
	Type         string    `json:"type,omitempty" yaml:"type,omitempty"`
	MarkerEnd    Marker    `json:"markerEnd" yaml:"markerEnd"`
	Style        EdgeStyle `json:"style" yaml:"style"`
	Animated     bool      `json:"animated,omitempty" yaml:"animated,omitempty"`
	Deletable    bool      `json:"deletable" yaml:"deletable"`
}

// Connection is a connect request reported by a renderer.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Graph is a point-in-time copy of the manager's collections.
type Graph struct {
	Stages []string `json:"stages" yaml:"stages"`
	Nodes  []Node   `json:"nodes" yaml:"nodes"`
	Edges  []Edge   `json:"edges" yaml:"edges"`
}

// Clone returns a deep copy of g.
func (g Graph) Clone() Graph {
	return Graph{
		Stages: append([]string(nil), g.Stages...),
		Nodes:  append([]Node(nil), g.Nodes...),
		Edges:  append([]Edge(nil), g.Edges...),
	}
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Parents returns the parent nodes in graph order.
func (g Graph) Parents() []Node {
	parents := make([]Node, 0, len(g.Stages))
	for _, n := range g.Nodes {
		if n.IsParent() {
			parents = append(parents, n)
		}
	}
	return parents
}

// StepsOf returns the step nodes that are children of parentID, in
// graph order.
func (g Graph) StepsOf(parentID string) []Node {
	steps := make([]Node, 0, len(stepTemplates))
	for _, n := range g.Nodes {
		if n.Type == KindStep && n.ParentID == parentID {
			steps = append(steps, n)
		}
	}
	return steps
}

// EdgesOf returns the edges of the given kind, in graph order.
func (g Graph) EdgesOf(kind EdgeKind) []Edge {
	var edges []Edge
	for _, e := range g.Edges {
		if e.Kind == kind {
			edges = append(edges, e)
		}
	}
	return edges
}

// AbsolutePosition resolves a node's position on the canvas. Steps are
// offset by their parent's position.
func (g Graph) AbsolutePosition(n Node) Position {
	if n.IsParent() || n.ParentID == "" {
		return n.Position
	}
	parent, ok := g.Node(n.ParentID)
	if !ok {
		return n.Position
	}
	return Position{X: parent.Position.X + n.Position.X, Y: parent.Position.Y + n.Position.Y}
}
