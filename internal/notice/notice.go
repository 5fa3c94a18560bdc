// Package notice models the dismissible "no results" overlay.
package notice

import "sync"

type State int

const (
	Hidden State = iota
	Visible
)

func (s State) String() string {
	if s == Visible {
		return "visible"
	}
	return "hidden"
}

// Reason records why the overlay was closed.
type Reason string

const (
	ReasonCloseControl Reason = "close_control"
	ReasonBackdrop     Reason = "backdrop"
	ReasonProgrammatic Reason = "programmatic"
)

// Target identifies where a click landed relative to the overlay.
type Target int

const (
	TargetBody Target = iota
	TargetBackdrop
	TargetCloseControl
)

// Modal is a two-state overlay. It starts Hidden and never closes on its
// own.
type Modal struct {
	mu         sync.Mutex
	state      State
	lastReason Reason
}

func New() *Modal {
	return &Modal{}
}

// Open shows the overlay. Opening a visible overlay is a no-op.
func (m *Modal) Open() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Visible
}

// Close hides the overlay and reports whether it was visible.
func (m *Modal) Close(reason Reason) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	wasVisible := m.state == Visible
	m.state = Hidden
	if wasVisible {
		m.lastReason = reason
	}
	return wasVisible
}

// HandleClick closes the overlay when the click hit the backdrop or the
// close control. Clicks inside the body leave it open.
func (m *Modal) HandleClick(target Target) bool {
	switch target {
	case TargetBackdrop:
		return m.Close(ReasonBackdrop)
	case TargetCloseControl:
		return m.Close(ReasonCloseControl)
	default:
		return false
	}
}

func (m *Modal) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Modal) Visible() bool {
	return m.State() == Visible
}

// LastCloseReason is the reason of the most recent Visible->Hidden
// transition, empty if there was none.
func (m *Modal) LastCloseReason() Reason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReason
}
