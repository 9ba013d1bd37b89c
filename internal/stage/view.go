package stage

import (
	"math"
	"time"
)

// FitView is the camera directive sent to renderers after a stage is
// added.
type FitView struct {
	Duration time.Duration `json:"duration"`
	Padding  float64       `json:"padding"`
	MinZoom  float64       `json:"minZoom"`
	MaxZoom  float64       `json:"maxZoom"`
}

// DefaultFitView matches the editor's re-fit animation.
var DefaultFitView = FitView{
	Duration: 800 * time.Millisecond,
	Padding:  0.75,
	MinZoom:  0.5,
	MaxZoom:  1,
}

// Rect is an axis-aligned box on the canvas.
type Rect struct {
	X, Y, W, H float64
}

// Bounds returns the box enclosing every parent container.
func (g Graph) Bounds() Rect {
	parents := g.Parents()
	if len(parents) == 0 {
		return Rect{W: ParentWidth, H: ParentHeight}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range parents {
		minX = math.Min(minX, p.Position.X)
		minY = math.Min(minY, p.Position.Y)
		maxX = math.Max(maxX, p.Position.X+ParentWidth)
		maxY = math.Max(maxY, p.Position.Y+ParentHeight)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// ViewBox fits b into a viewport of the given size: the box is padded on
// every side, then widened or narrowed so the implied zoom stays inside
// MinZoom..MaxZoom. The result keeps the viewport's aspect ratio and is
// centred on b.
func (f FitView) ViewBox(b Rect, viewportW, viewportH float64) Rect {
	w := b.W * (1 + f.Padding)
	h := b.H * (1 + f.Padding)

	zoom := math.Min(viewportW/w, viewportH/h)
	if f.MaxZoom > 0 {
		zoom = math.Min(zoom, f.MaxZoom)
	}
	if f.MinZoom > 0 {
		zoom = math.Max(zoom, f.MinZoom)
	}

	w, h = viewportW/zoom, viewportH/zoom
	cx, cy := b.X+b.W/2, b.Y+b.H/2
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}
