package notice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartsHidden(t *testing.T) {
	m := New()
	assert.Equal(t, Hidden, m.State())
	assert.Empty(t, m.LastCloseReason())
}

func TestOpenClose(t *testing.T) {
	m := New()
	m.Open()
	assert.True(t, m.Visible())
	m.Open()
	assert.True(t, m.Visible())

	assert.True(t, m.Close(ReasonProgrammatic))
	assert.Equal(t, Hidden, m.State())
	assert.Equal(t, ReasonProgrammatic, m.LastCloseReason())

	assert.False(t, m.Close(ReasonCloseControl))
	assert.Equal(t, ReasonProgrammatic, m.LastCloseReason())
}

func TestHandleClick(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		closed  bool
		reason  Reason
		visible bool
	}{
		{"body keeps it open", TargetBody, false, "", true},
		{"backdrop closes", TargetBackdrop, true, ReasonBackdrop, false},
		{"close control closes", TargetCloseControl, true, ReasonCloseControl, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.Open()
			assert.Equal(t, tt.closed, m.HandleClick(tt.target))
			assert.Equal(t, tt.visible, m.Visible())
			assert.Equal(t, tt.reason, m.LastCloseReason())
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "hidden", Hidden.String())
	assert.Equal(t, "visible", Visible.String())
}
