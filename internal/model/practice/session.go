package practice

import "time"

// Speaker identifies who said a transcript line.
type Speaker string

const (
	SpeakerRep      Speaker = "rep"
	SpeakerCustomer Speaker = "customer"
)

// Session captures one practice call.
type Session struct {
	ID         string     `json:"id"`
	ScenarioID string     `json:"scenarioId"`
	Difficulty Difficulty `json:"difficulty"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
}

// Ended reports whether EndSession was called.
func (s Session) Ended() bool {
	return s.EndedAt != nil
}

// Message is a single transcript line.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeedbackType grades a rep utterance.
type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackWarning  FeedbackType = "warning"
	FeedbackNegative FeedbackType = "negative"
)

// Feedback is coaching attached to a rep utterance.
type Feedback struct {
	Type      FeedbackType `json:"type"`
	Message   string       `json:"message"`
	Timestamp int64        `json:"timestamp"` // unix milliseconds
}

// Metrics summarises a practice session. Percentages are 0-100, speaking
// time is in seconds.
type Metrics struct {
	ScriptAdherence  float64 `json:"scriptAdherence"`
	PillarCompletion float64 `json:"pillarCompletion"`
	SpeakingTime     float64 `json:"speakingTime"`
	SuccessRate      float64 `json:"successRate"`
}
