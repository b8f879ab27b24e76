package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/callcoach/backend/internal/service/voice"
)

// Keyboard is a capture backend fed by typed lines. While it is running,
// ENTER turns the current line into a finalized utterance.
type Keyboard struct {
	mu       sync.Mutex
	running  bool
	listener voice.Listener
}

var _ voice.Capture = (*Keyboard)(nil)

// NewKeyboard returns a stopped keyboard capture backend.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

func (k *Keyboard) Start(_ context.Context, l voice.Listener) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.running {
		return voice.NewCaptureError(voice.CaptureAlreadyRunning, nil)
	}
	k.running = true
	k.listener = l
	return nil
}

func (k *Keyboard) Stop(_ context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.running {
		return voice.NewCaptureError(voice.CaptureNotRunning, nil)
	}
	k.running = false
	return nil
}

// Listening reports whether typed lines are currently captured.
func (k *Keyboard) Listening() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running
}

// Submit emits line as an utterance. It returns false when capture is not
// running and the line is discarded.
func (k *Keyboard) Submit(line string) bool {
	k.mu.Lock()
	running, l := k.running, k.listener
	k.mu.Unlock()

	line = strings.TrimSpace(line)
	if !running || l == nil || line == "" {
		return false
	}
	l.OnUtterance(voice.Utterance{Text: line, CapturedAt: time.Now()})
	return true
}

// PaneSink renders replies in the transcript pane instead of playing audio.
type PaneSink struct {
	lines chan string
}

var _ voice.Sink = (*PaneSink)(nil)

// NewPaneSink returns a sink whose lines are read by the TUI.
func NewPaneSink() *PaneSink {
	return &PaneSink{lines: make(chan string, 16)}
}

// Speak hands the text to the transcript pane.
func (s *PaneSink) Speak(ctx context.Context, text string) error {
	select {
	case s.lines <- text:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lines exposes texts waiting to be rendered.
func (s *PaneSink) Lines() <-chan string {
	return s.lines
}
