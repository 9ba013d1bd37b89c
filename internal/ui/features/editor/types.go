package editor

import (
	"github.com/leapstack-labs/stageflow/internal/snapshot"
	"github.com/leapstack-labs/stageflow/internal/stage"
)

// ConnectSignals is the connect request sent by the page.
type ConnectSignals struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
}

// Connection converts the signals into a manager connect request.
func (s ConnectSignals) Connection() stage.Connection {
	return stage.Connection{
		Source:       s.Source,
		Target:       s.Target,
		SourceHandle: s.SourceHandle,
		TargetHandle: s.TargetHandle,
	}
}

// PositionSignals carries a dragged node's new position.
type PositionSignals struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SnapshotSignals names the snapshot to save.
type SnapshotSignals struct {
	SnapshotName string `json:"snapshotName"`
}

// FitViewSignal is the camera directive patched after a stage is added.
// Duration is in milliseconds.
type FitViewSignal struct {
	Duration int64   `json:"duration"`
	Padding  float64 `json:"padding"`
	MinZoom  float64 `json:"minZoom"`
	MaxZoom  float64 `json:"maxZoom"`
	ViewBox  string  `json:"viewBox"`
}

// BoardView is everything needed to render one board.
type BoardView struct {
	Board     string
	Graph     stage.Graph
	CanAdd    bool
	MaxStages int
	ViewBox   stage.Rect
	// Snapshots is nil when snapshot storage is disabled.
	Snapshots []snapshot.Summary
	Persist   bool
}
