package scene

import (
	"context"

	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/ply"
)

// State is the load state of one slot
type State int

const (
	Unloaded State = iota
	Loading
	Ready
	Failed
	// Invalid is reported for every slot of an item with a configuration error
	Invalid
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Settled reports whether the state is terminal for the current batch
func (s State) Settled() bool {
	return s == Ready || s == Failed || s == Invalid
}

// Slot is one URL of a viewer. It moves Unloaded -> Loading -> Ready|Failed
// once per batch and never goes back.
type Slot struct {
	URL   string
	Color ply.Color

	state    State
	geometry *display.Geometry
	material display.Material
	err      error

	ctx    context.Context
	cancel context.CancelFunc
}

// SlotStatus is a snapshot of one slot
type SlotStatus struct {
	URL      string `json:"url"`
	State    State  `json:"state"`
	Error    string `json:"error,omitempty"`
	Vertices int    `json:"vertices,omitempty"`
	Faces    int    `json:"faces,omitempty"`
	Mode     string `json:"mode,omitempty"`
	err      error
}

// Err returns the load error of a failed slot
func (s SlotStatus) Err() error {
	return s.err
}

func (s *Slot) status() SlotStatus {
	st := SlotStatus{URL: s.URL, State: s.state, err: s.err}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	if s.geometry != nil {
		st.Vertices = s.geometry.Len()
		st.Faces = len(s.geometry.Faces)
		st.Mode = s.geometry.Mode.String()
	}
	return st
}
