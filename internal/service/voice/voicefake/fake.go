// Package voicefake provides in-memory capture, responder and speech sink
// implementations for exercising a voice.Controller without a browser.
package voicefake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zhouzirui/callcoach/backend/internal/service/voice"
)

// Capture is a scriptable capture backend.
type Capture struct {
	mu       sync.Mutex
	running  bool
	listener voice.Listener
	starts   int
	stops    int
	startErr error
	stopErr  error
	delay    time.Duration
}

// NewCapture returns an idle fake capture backend.
func NewCapture() *Capture {
	return &Capture{}
}

// FailNextStart makes the next Start call return err.
func (c *Capture) FailNextStart(err error) {
	c.mu.Lock()
	c.startErr = err
	c.mu.Unlock()
}

// FailNextStop makes the next Stop call return err.
func (c *Capture) FailNextStop(err error) {
	c.mu.Lock()
	c.stopErr = err
	c.mu.Unlock()
}

// DelayNextStart makes the next Start sleep for d before doing anything,
// regardless of its context.
func (c *Capture) DelayNextStart(d time.Duration) {
	c.mu.Lock()
	c.delay = d
	c.mu.Unlock()
}

func (c *Capture) Start(_ context.Context, l voice.Listener) error {
	c.mu.Lock()
	delay := c.delay
	c.delay = 0
	c.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.starts++
	if err := c.startErr; err != nil {
		c.startErr = nil
		return err
	}
	if c.running {
		return voice.NewCaptureError(voice.CaptureAlreadyRunning, nil)
	}
	c.running = true
	c.listener = l
	return nil
}

func (c *Capture) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stops++
	if err := c.stopErr; err != nil {
		c.stopErr = nil
		return err
	}
	if !c.running {
		return voice.NewCaptureError(voice.CaptureNotRunning, nil)
	}
	c.running = false
	return nil
}

// Running reports whether the fake believes it is capturing.
func (c *Capture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Starts returns how many times Start was called.
func (c *Capture) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

// Stops returns how many times Stop was called.
func (c *Capture) Stops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

// Finalize emits a finalized utterance to the listener bound by the last Start.
func (c *Capture) Finalize(text string) bool {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()
	if l == nil {
		return false
	}
	l.OnUtterance(voice.Utterance{Text: text, CapturedAt: time.Now()})
	return true
}

// Fail emits an asynchronous capture failure and marks the fake stopped.
func (c *Capture) Fail(kind voice.CaptureErrorKind) bool {
	c.mu.Lock()
	l := c.listener
	c.running = false
	c.mu.Unlock()
	if l == nil {
		return false
	}
	l.OnCaptureError(voice.NewCaptureError(kind, nil))
	return true
}

// Responder records every request and answers with Fn, or an echo when Fn
// is nil.
type Responder struct {
	Fn func(ctx context.Context, text string) (string, error)

	mu    sync.Mutex
	calls []string
}

func (r *Responder) Respond(ctx context.Context, text string) (voice.Reply, error) {
	r.mu.Lock()
	r.calls = append(r.calls, text)
	r.mu.Unlock()

	if r.Fn == nil {
		return voice.Reply{Text: "echo: " + text}, nil
	}
	out, err := r.Fn(ctx, text)
	if err != nil {
		return voice.Reply{}, err
	}
	return voice.Reply{Text: out}, nil
}

// Calls returns a copy of every text received.
func (r *Responder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// ErrSpeechFailed is returned by Sink for texts listed in FailOn.
var ErrSpeechFailed = errors.New("speech synthesis failed")

// Sink records spoken texts. Texts in FailOn fail; when Block is set every
// Speak waits for it to be closed or for ctx to end.
type Sink struct {
	FailOn map[string]bool
	Block  chan struct{}

	mu     sync.Mutex
	spoken []string
}

func (s *Sink) Speak(ctx context.Context, text string) error {
	if s.Block != nil {
		select {
		case <-s.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.FailOn[text] {
		return ErrSpeechFailed
	}

	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	return nil
}

// Spoken returns a copy of every text played successfully.
func (s *Sink) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}
