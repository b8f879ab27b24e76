package voice

import (
	"context"
	"time"
)

// Phase is the coarse state of an interaction session.
type Phase int

const (
	PhaseInactive Phase = iota
	PhaseIdle
	PhaseListening
)

func (p Phase) String() string {
	switch p {
	case PhaseInactive:
		return "inactive"
	case PhaseIdle:
		return "idle"
	case PhaseListening:
		return "listening"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session owned by a Controller.
type State struct {
	Phase     Phase
	Active    bool
	Listening bool
	Greeted   bool
	LastError error
}

// Utterance is a finalized speech-to-text result.
type Utterance struct {
	Text       string    `json:"text"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Reply is the responder output for one utterance.
type Reply struct {
	Text string `json:"text"`
}

// Listener receives capture backend events. Implementations of Capture must
// call it from their own goroutines, never from inside Start or Stop.
type Listener interface {
	OnUtterance(u Utterance)
	OnCaptureError(err error)
}

// Capture abstracts platform speech recognition.
type Capture interface {
	Start(ctx context.Context, l Listener) error
	Stop(ctx context.Context) error
}

// Responder generates a reply to user speech.
type Responder interface {
	Respond(ctx context.Context, text string) (Reply, error)
}

// Sink abstracts text-to-speech playback. Speak returns once playback
// completed or failed.
type Sink interface {
	Speak(ctx context.Context, text string) error
}

// EventKind enumerates what a Controller publishes on its event channel.
type EventKind string

const (
	EventState     EventKind = "state"
	EventUtterance EventKind = "utterance"
	EventReply     EventKind = "reply"
	EventSpoken    EventKind = "spoken"
	EventError     EventKind = "error"
)

// Event is a single observable controller reaction.
type Event struct {
	Kind  EventKind
	Phase Phase
	Text  string
	Err   error
	At    time.Time
}
