package stage

import (
	"fmt"
	"strconv"
)

// Parent container geometry and stage spacing.
const (
	ParentWidth  = 190
	ParentHeight = 160
	ParentZIndex = -10

	StageSpacingX = 300
	StageSpacingY = 100

	StepHeight = 22
)

// Edge colours.
const (
	ColorStep  = "#60a5fa"
	ColorStage = "#FF0072"
)

const (
	edgeTypeSmoothStep = "smoothstep"
	extentParent       = "parent"
)

type stepTemplate struct {
	step     Step
	icon     string
	position Position
	width    float64
}

// stepTemplates lists the steps of every stage in sequence order.
var stepTemplates = [StepsPerStage]stepTemplate{
	{step: StepFormulation, icon: "experiment", position: Position{X: 20, Y: 35}, width: 150},
	{step: StepProcessing, icon: "process", position: Position{X: 50, Y: 65}, width: 120},
	{step: StepCharacterization, icon: "chemistry", position: Position{X: 80, Y: 95}, width: 90},
	{step: StepProperties, icon: "property-safety", position: Position{X: 110, Y: 125}, width: 60},
}

// StepsPerStage is the number of step nodes in every stage.
const StepsPerStage = 4

// ParentID returns the node id of the parent for stage index.
func ParentID(index int) string {
	return strconv.Itoa(index)
}

// StageLabel returns the display label of stage index.
func StageLabel(index int) string {
	return fmt.Sprintf("Stage %d", index+1)
}

// ParentPosition returns the layout position of stage index.
func ParentPosition(index int) Position {
	return Position{X: float64(StageSpacingX * index), Y: float64(StageSpacingY * index)}
}

func stepID(token string, ordinal int) string {
	return fmt.Sprintf("%s_%d", token, ordinal)
}

func edgeID(source, target string) string {
	return source + "->" + target
}

func parentNode(index int) Node {
	return Node{
		ID:        ParentID(index),
		Type:      KindParent,
		Position:  ParentPosition(index),
		Data:      NodeData{Label: StageLabel(index)},
		Style:     NodeStyle{Width: ParentWidth, Height: ParentHeight, ZIndex: ParentZIndex},
		Draggable: true,
	}
}

// renumbered moves a parent to a new index, recomputing id, label and
// position.
func renumbered(n Node, index int) Node {
	n.ID = ParentID(index)
	n.Data.Label = StageLabel(index)
	n.Position = ParentPosition(index)
	return n
}

// buildStage synthesises the parent, its four steps and the three
// intra-stage edges for stage index. token namespaces the step ids.
func buildStage(index int, token string) ([]Node, []Edge) {
	parent := parentNode(index)
	nodes := make([]Node, 0, 1+len(stepTemplates))
	nodes = append(nodes, parent)

	for i, t := range stepTemplates {
		nodes = append(nodes, Node{
			ID:       stepID(token, i+1),
			Type:     KindStep,
			Position: t.position,
			Data: NodeData{
				Step:    t.step,
				Icon:    t.icon,
				IsFirst: i == 0,
				IsLast:  i == len(stepTemplates)-1,
			},
			ParentID: parent.ID,
			Extent:   extentParent,
			Style:    NodeStyle{Width: t.width, Height: StepHeight},
		})
	}

	edges := make([]Edge, 0, len(stepTemplates)-1)
	for i := 1; i < len(stepTemplates); i++ {
		edges = append(edges, intraStageEdge(stepID(token, i), stepID(token, i+1)))
	}
	return nodes, edges
}

func intraStageEdge(source, target string) Edge {
	return Edge{
		ID:        edgeID(source, target),
		Source:    source,
		Target:    target,
		Kind:      EdgeIntraStage,
		MarkerEnd: Marker{Type: MarkerArrow, StrokeWidth: 1, Color: ColorStep},
		Style:     EdgeStyle{StrokeWidth: 1, Stroke: ColorStep},
	}
}

func interStageEdge(from int) Edge {
	source, target := ParentID(from), ParentID(from+1)
	return Edge{
		ID:     edgeID(source, target),
		Source: source,
		Target: target,
		Kind:   EdgeInterStage,
		Type:   edgeTypeSmoothStep,
		MarkerEnd: Marker{
			Type:        MarkerArrowClosed,
			Width:       10,
			Height:      10,
			StrokeWidth: 2,
			Color:       ColorStage,
		},
		Style: EdgeStyle{StrokeWidth: 2, Stroke: ColorStage},
	}
}

// interStagePath returns the edges i -> i+1 for a graph of n stages.
func interStagePath(n int) []Edge {
	if n < 2 {
		return nil
	}
	edges := make([]Edge, 0, n-1)
	for i := 0; i < n-1; i++ {
		edges = append(edges, interStageEdge(i))
	}
	return edges
}

func userEdge(id string, c Connection) Edge {
	return Edge{
		ID:           id,
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
		Kind:         EdgeUser,
		Type:         edgeTypeSmoothStep,
		MarkerEnd:    Marker{Type: MarkerArrow, StrokeWidth: 1, Color: ColorStep},
		Style:        EdgeStyle{StrokeWidth: 1, Stroke: ColorStep},
		Animated:     true,
		Deletable:    true,
	}
}
