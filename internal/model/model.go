package model

// Event is the conference-level metadata shown in the page header. All
// fields are display strings formatted by the backend.
type Event struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
}

// Speaker is one entry of the speaker grid. LinkedIn holds the outbound
// profile URL.
type Speaker struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	LinkedIn string `json:"linkedin"`
}

// ScheduleItem is one timeline entry.
//
// ID may equal a reserved break identifier (see render.DefaultBreakID) for
// non-session entries such as lunch. SpeakerDetails is optional; a nil or
// empty slice means no nested speaker list is rendered.
type ScheduleItem struct {
	ID             string    `json:"id"`
	Time           string    `json:"time"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	SpeakerDetails []Speaker `json:"speaker_details,omitempty"`
}

// HasSpeakers reports whether the nested speaker list should be rendered.
func (s ScheduleItem) HasSpeakers() bool {
	return len(s.SpeakerDetails) > 0
}
