package editor

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/stageflow/internal/stage"
)

// Viewport is the nominal canvas size the fit-view box is computed for.
// The SVG scales to the real element size, keeping the aspect ratio.
const (
	ViewportWidth  = 1200
	ViewportHeight = 640
)

// handleRadius is the drawn radius of a connection point.
const handleRadius = 4

type point struct {
	X, Y float64
}

// nodeRect returns the absolute canvas box of n.
func nodeRect(g stage.Graph, n stage.Node) stage.Rect {
	pos := g.AbsolutePosition(n)
	return stage.Rect{X: pos.X, Y: pos.Y, W: n.Style.Width, H: n.Style.Height}
}

func sidePoint(r stage.Rect, side stage.Side) point {
	switch side {
	case stage.SideTop:
		return point{r.X + r.W/2, r.Y}
	case stage.SideBottom:
		return point{r.X + r.W/2, r.Y + r.H}
	case stage.SideLeft:
		return point{r.X, r.Y + r.H/2}
	default:
		return point{r.X + r.W, r.Y + r.H/2}
	}
}

// findHandle picks the handle an edge end attaches to. An empty id takes
// the first handle of the role.
func findHandle(n stage.Node, role stage.HandleRole, id string) (stage.Handle, bool) {
	for _, h := range stage.Handles(n) {
		if h.Role == role && (id == "" || h.ID == id) {
			return h, true
		}
	}
	return stage.Handle{}, false
}

// anchor is the canvas point an edge end attaches to. Nodes without a
// matching handle fall back to their centre.
func anchor(g stage.Graph, n stage.Node, role stage.HandleRole, id string) point {
	r := nodeRect(g, n)
	h, ok := findHandle(n, role, id)
	if !ok {
		return point{r.X + r.W/2, r.Y + r.H/2}
	}
	return sidePoint(r, h.Side)
}

// edgePath returns the SVG path of e, or false when an endpoint is missing.
func edgePath(g stage.Graph, e stage.Edge) (string, bool) {
	src, ok := g.Node(e.Source)
	if !ok {
		return "", false
	}
	dst, ok := g.Node(e.Target)
	if !ok {
		return "", false
	}

	from := anchor(g, src, stage.RoleSource, e.SourceHandle)
	to := anchor(g, dst, stage.RoleTarget, e.TargetHandle)

	var b strings.Builder
	b.WriteString("M " + coord(from))
	if e.Type == "smoothstep" {
		midX := (from.X + to.X) / 2
		b.WriteString(" L " + coord(point{midX, from.Y}))
		b.WriteString(" L " + coord(point{midX, to.Y}))
	}
	b.WriteString(" L " + coord(to))
	return b.String(), true
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func coord(p point) string {
	return num(p.X) + " " + num(p.Y)
}

func viewBox(r stage.Rect) string {
	return num(r.X) + " " + num(r.Y) + " " + num(r.W) + " " + num(r.H)
}
