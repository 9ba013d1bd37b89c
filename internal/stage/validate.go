package stage

import (
	"errors"
	"fmt"
)

// ErrInvalidGraph wraps every invariant violation reported by Validate.
var ErrInvalidGraph = errors.New("invalid stage graph")

// Validate checks g against the stage invariants using the default cap.
func (g Graph) Validate() error {
	return g.validate(DefaultMaxStages)
}

func (g Graph) validate(maxStages int) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidGraph}, args...)...))
	}

	parents := g.Parents()
	n := len(parents)
	switch {
	case n == 0:
		fail("graph has no stages")
	case n > maxStages:
		fail("%d stages exceeds the cap of %d", n, maxStages)
	}
	if len(g.Stages) != n {
		fail("%d stage labels for %d parents", len(g.Stages), n)
	}

	ids := make(map[string]Node, len(g.Nodes))
	for _, node := range g.Nodes {
		if _, dup := ids[node.ID]; dup {
			fail("duplicate node id %q", node.ID)
		}
		ids[node.ID] = node
	}

	seen := make([]bool, n)
	for _, p := range parents {
		idx, ok := p.StageIndex()
		if !ok || idx >= n || p.ID != ParentID(idx) {
			fail("parent %q is outside the stage range 0..%d", p.ID, n-1)
			continue
		}
		if seen[idx] {
			fail("stage %d appears twice", idx)
		}
		seen[idx] = true
		if p.Data.Label != StageLabel(idx) {
			fail("parent %q labelled %q, want %q", p.ID, p.Data.Label, StageLabel(idx))
		}

		steps := g.StepsOf(p.ID)
		if len(steps) != StepsPerStage {
			fail("stage %d has %d steps, want %d", idx, len(steps), StepsPerStage)
			continue
		}
		for i, s := range steps {
			t := stepTemplates[i]
			if s.Data.Step != t.step {
				fail("stage %d step %d is %q, want %q", idx, i+1, s.Data.Step, t.step)
			}
			if s.Data.Icon != t.icon {
				fail("step %q has icon %q, want %q", s.ID, s.Data.Icon, t.icon)
			}
			// the first/last flags decide which handles a step declares
			if s.Data.IsFirst != (i == 0) || s.Data.IsLast != (i == StepsPerStage-1) {
				fail("step %q has wrong first/last flags", s.ID)
			}
			if s.Draggable || s.Extent != extentParent {
				fail("step %q must be fixed inside its parent", s.ID)
			}
		}
	}

	for _, node := range g.Nodes {
		if node.Type != KindStep {
			if !node.IsParent() {
				fail("node %q has unknown type %q", node.ID, node.Type)
			}
			continue
		}
		if parent, ok := ids[node.ParentID]; !ok || !parent.IsParent() {
			fail("step %q references missing parent %q", node.ID, node.ParentID)
		}
	}

	errs = append(errs, g.validateEdges(ids, n)...)
	return errors.Join(errs...)
}

// edgeMarkers is the arrow head every edge kind is drawn with.
var edgeMarkers = map[EdgeKind]MarkerType{
	EdgeIntraStage: MarkerArrow,
	EdgeInterStage: MarkerArrowClosed,
	EdgeUser:       MarkerArrow,
}

func (g Graph) validateEdges(nodes map[string]Node, stages int) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidGraph}, args...)...))
	}

	edgeIDs := make(map[string]bool, len(g.Edges))
	inter := make(map[string]bool)
	intraPerStage := make(map[string]int)

	for _, e := range g.Edges {
		if edgeIDs[e.ID] {
			fail("duplicate edge id %q", e.ID)
		}
		edgeIDs[e.ID] = true

		src, srcOK := nodes[e.Source]
		dst, dstOK := nodes[e.Target]
		if !srcOK || !dstOK {
			fail("edge %q has a dangling endpoint %q -> %q", e.ID, e.Source, e.Target)
			continue
		}

		if want, ok := edgeMarkers[e.Kind]; ok && e.MarkerEnd.Type != want {
			fail("%s edge %q has marker %q, want %q", e.Kind, e.ID, e.MarkerEnd.Type, want)
		}

		switch e.Kind {
		case EdgeInterStage:
			if !src.IsParent() || !dst.IsParent() {
				fail("inter-stage edge %q must join two parents", e.ID)
				continue
			}
			if inter[e.Source] {
				fail("stage %s has more than one outgoing inter-stage edge", e.Source)
			}
			inter[e.Source] = true
			from, _ := src.StageIndex()
			to, _ := dst.StageIndex()
			if to != from+1 {
				fail("inter-stage edge %q skips from stage %d to %d", e.ID, from, to)
			}
			if e.Deletable {
				fail("inter-stage edge %q is deletable", e.ID)
			}
		case EdgeIntraStage:
			if src.Type != KindStep || dst.Type != KindStep || src.ParentID != dst.ParentID {
				fail("intra-stage edge %q must join steps of one stage", e.ID)
				continue
			}
			intraPerStage[src.ParentID]++
			if e.Deletable {
				fail("intra-stage edge %q is deletable", e.ID)
			}
		case EdgeUser:
			if !e.Deletable {
				fail("user edge %q is not deletable", e.ID)
			}
		default:
			fail("edge %q has unknown kind %q", e.ID, e.Kind)
		}
	}

	for i := 0; i < stages-1; i++ {
		if !inter[ParentID(i)] {
			fail("missing inter-stage edge %d -> %d", i, i+1)
		}
	}
	for i := 0; i < stages; i++ {
		if got := intraPerStage[ParentID(i)]; got != StepsPerStage-1 {
			fail("stage %d has %d intra-stage edges, want %d", i, got, StepsPerStage-1)
		}
	}
	return errs
}
