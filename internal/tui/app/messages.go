package app

import "github.com/zhouzirui/callcoach/backend/internal/service/voice"

// StateMsg carries the controller snapshot after a command.
type StateMsg struct {
	State voice.State
	Err   error
}

// VoiceEventMsg wraps an event published by the controller.
type VoiceEventMsg struct {
	Event voice.Event
}

// SpeechMsg is a reply the sink wants rendered.
type SpeechMsg struct {
	Text string
}

// ControllerClosedMsg is sent once the controller loop has exited.
type ControllerClosedMsg struct{}

// ClearHintMsg clears the transient hint line.
type ClearHintMsg struct{}
