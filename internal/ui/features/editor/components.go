package editor

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/stageflow/internal/stage"
	"github.com/leapstack-labs/stageflow/internal/ui/resources"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

// Element ids patched by the SSE handlers.
const (
	ToolbarID   = "toolbar"
	CanvasID    = "canvas"
	SnapshotsID = "snapshots"
)

var stepGlyphs = map[string]string{
	"experiment":      "⚗",
	"process":         "⚙",
	"chemistry":       "🧪",
	"property-safety": "🛡",
}

// htmlWriter keeps the first write error so components can print
// without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) printf(format string, args ...any) {
	if h.err != nil {
		return
	}
	_, h.err = fmt.Fprintf(h.w, format, args...)
}

func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

func esc(s string) string {
	return templ.EscapeString(s)
}

func boardPath(board string, parts ...string) string {
	p := "/boards/" + url.PathEscape(board)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// Page renders the full editor document for a board.
func Page(title string, v BoardView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.printf("<!doctype html>\n<html lang=\"en\">\n<head>\n")
		h.printf("<meta charset=\"utf-8\">\n<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		h.printf("<title>%s - Stageflow</title>\n", esc(title))
		h.printf("<link rel=\"stylesheet\" href=\"%s\">\n", resources.StaticPath(resources.Stylesheet))
		h.printf("<script type=\"module\" src=\"%s\"></script>\n", datastarScript)
		h.printf("<script defer src=\"%s\"></script>\n", resources.StaticPath(resources.Script))
		h.printf("</head>\n")
		h.printf("<body data-signals='{\"source\":\"\",\"target\":\"\",\"sourceHandle\":\"\",\"targetHandle\":\"\",\"snapshotName\":\"\"}'>\n")
		h.printf("<div id=\"editor\" data-board=\"%s\" data-init=\"@get('%s')\">\n", esc(v.Board), esc(boardPath(v.Board, "updates")))
		h.render(ctx, Toolbar(v))
		h.render(ctx, Canvas(v))
		h.printf("</div>\n</body>\n</html>\n")
		return h.err
	})
}

// Toolbar renders the controls above the canvas.
func Toolbar(v BoardView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.printf("<header id=\"%s\" class=\"toolbar\">\n", ToolbarID)
		h.printf("<h1>%s</h1>\n", esc(v.Board))

		disabled := ""
		if !v.CanAdd {
			disabled = " disabled"
		}
		h.printf("<button id=\"add-stage\" data-on:click=\"@post('%s')\"%s>Add Stage</button>\n",
			esc(boardPath(v.Board, "stages")), disabled)
		h.printf("<span class=\"stage-count\">%d / %d stages</span>\n", len(v.Graph.Stages), v.MaxStages)

		h.printf("<form class=\"connect\" data-on:submit=\"@post('%s')\">\n", esc(boardPath(v.Board, "edges")))
		h.printf("<select data-bind:source>\n")
		writeNodeOptions(h, v.Graph)
		h.printf("</select>\n<span>&rarr;</span>\n<select data-bind:target>\n")
		writeNodeOptions(h, v.Graph)
		h.printf("</select>\n<button type=\"submit\">Connect</button>\n</form>\n")

		h.printf("<nav class=\"export\"><a href=\"%s\" download>JSON</a> <a href=\"%s\" download>YAML</a></nav>\n",
			esc(boardPath(v.Board, "graph.json")), esc(boardPath(v.Board, "graph.yaml")))

		if v.Persist {
			h.render(ctx, Snapshots(v))
		}
		h.printf("</header>\n")
		return h.err
	})
}

func writeNodeOptions(h *htmlWriter, g stage.Graph) {
	h.printf("<option value=\"\">node</option>\n")
	for _, n := range g.Nodes {
		label := n.Data.Label
		if !n.IsParent() {
			idx, _ := n.StageIndex()
			label = fmt.Sprintf("%s / %s", stage.StageLabel(idx), n.Data.Step)
		}
		h.printf("<option value=\"%s\">%s</option>\n", esc(n.ID), esc(label))
	}
}

// Snapshots renders the save form and the saved snapshot names.
func Snapshots(v BoardView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.printf("<section id=\"%s\" class=\"snapshots\">\n", SnapshotsID)
		h.printf("<input type=\"text\" placeholder=\"%s\" data-bind:snapshot-name>\n", esc(v.Board))
		h.printf("<button data-on:click=\"@post('%s')\">Save</button>\n", esc(boardPath(v.Board, "snapshots")))

		seen := make(map[string]bool)
		h.printf("<ul>\n")
		for _, s := range v.Snapshots {
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			h.printf("<li><button class=\"restore\" data-on:click=\"@post('%s')\">%s</button> <small>%d stages, %s</small></li>\n",
				esc(boardPath(v.Board, "snapshots", s.Name, "restore")), esc(s.Name), s.Stages,
				s.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		h.printf("</ul>\n</section>\n")
		return h.err
	})
}

// Canvas renders the stage graph as SVG.
func Canvas(v BoardView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		g := v.Graph

		h.printf("<main id=\"%s\" class=\"canvas\">\n", CanvasID)
		h.printf("<svg id=\"diagram\" viewBox=\"%s\" preserveAspectRatio=\"xMidYMid meet\" xmlns=\"http://www.w3.org/2000/svg\">\n", viewBox(v.ViewBox))
		h.printf("<defs>\n")
		h.printf("<marker id=\"marker-%s\" viewBox=\"0 0 10 10\" refX=\"10\" refY=\"5\" markerWidth=\"6\" markerHeight=\"6\" orient=\"auto\"><path d=\"M 0 0 L 10 5 L 0 10\" fill=\"none\" stroke=\"%s\"/></marker>\n",
			stage.MarkerArrow, stage.ColorStep)
		h.printf("<marker id=\"marker-%s\" viewBox=\"0 0 10 10\" refX=\"10\" refY=\"5\" markerWidth=\"10\" markerHeight=\"10\" markerUnits=\"userSpaceOnUse\" orient=\"auto\"><path d=\"M 0 0 L 10 5 L 0 10 z\" fill=\"%s\"/></marker>\n",
			stage.MarkerArrowClosed, stage.ColorStage)
		h.printf("</defs>\n")

		for _, p := range g.Parents() {
			writeParent(h, v.Board, g, p)
		}
		for _, n := range g.Nodes {
			if n.Type == stage.KindStep {
				writeStep(h, g, n)
			}
		}

		h.printf("<g class=\"edges\">\n")
		for _, e := range g.Edges {
			writeEdge(h, v.Board, g, e)
		}
		h.printf("</g>\n</svg>\n</main>\n")
		return h.err
	})
}

func writeParent(h *htmlWriter, board string, g stage.Graph, n stage.Node) {
	r := nodeRect(g, n)
	h.printf("<g class=\"node node-parent\" data-node-id=\"%s\" data-x=\"%s\" data-y=\"%s\" transform=\"translate(%s)\">\n",
		esc(n.ID), num(r.X), num(r.Y), coord(point{r.X, r.Y}))
	h.printf("<rect width=\"%s\" height=\"%s\" rx=\"6\"/>\n", num(r.W), num(r.H))
	h.printf("<text class=\"label\" x=\"10\" y=\"20\">%s</text>\n", esc(n.Data.Label))
	h.printf("<text class=\"node-delete\" x=\"%s\" y=\"20\" data-on:click=\"@delete('%s')\">&times;</text>\n",
		num(r.W-18), esc(boardPath(board, "nodes", n.ID)))
	h.printf("</g>\n")
	writeHandles(h, n, r)
}

func writeStep(h *htmlWriter, g stage.Graph, n stage.Node) {
	r := nodeRect(g, n)
	glyph := stepGlyphs[n.Data.Icon]
	h.printf("<g class=\"node node-step\" data-node-id=\"%s\" transform=\"translate(%s)\">\n", esc(n.ID), coord(point{r.X, r.Y}))
	h.printf("<rect width=\"%s\" height=\"%s\" rx=\"4\"/>\n", num(r.W), num(r.H))
	h.printf("<text class=\"icon\" x=\"4\" y=\"15\">%s</text>\n", esc(glyph))
	h.printf("<text class=\"label\" x=\"20\" y=\"15\">%s</text>\n", esc(string(n.Data.Step)))
	h.printf("</g>\n")
	writeHandles(h, n, r)
}

func writeHandles(h *htmlWriter, n stage.Node, r stage.Rect) {
	for _, hd := range stage.Handles(n) {
		p := sidePoint(r, hd.Side)
		h.printf("<circle class=\"handle handle-%s\" data-node-id=\"%s\" data-handle-id=\"%s\" data-role=\"%s\" cx=\"%s\" cy=\"%s\" r=\"%d\"/>\n",
			esc(string(hd.Role)), esc(n.ID), esc(hd.ID), esc(string(hd.Role)), num(p.X), num(p.Y), handleRadius)
	}
}

func writeEdge(h *htmlWriter, board string, g stage.Graph, e stage.Edge) {
	d, ok := edgePath(g, e)
	if !ok {
		return
	}
	class := "edge edge-" + string(e.Kind)
	if e.Animated {
		class += " animated"
	}
	h.printf("<path class=\"%s\" data-edge-id=\"%s\" d=\"%s\" stroke=\"%s\" stroke-width=\"%s\" fill=\"none\" marker-end=\"url(#marker-%s)\"",
		esc(class), esc(e.ID), esc(d), esc(e.Style.Stroke), num(e.Style.StrokeWidth), esc(string(e.MarkerEnd.Type)))
	if e.Deletable {
		h.printf(" data-on:click=\"@delete('%s')\"", esc(boardPath(board, "edges", e.ID)))
	}
	h.printf("/>\n")
}
