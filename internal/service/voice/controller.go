// Package voice implements the push-to-talk interaction session: capture
// start/stop behind a single toggle, ordered relay of finalized utterances to
// a responder, and FIFO playback of replies through a speech sink.
//
// All session flags are owned by one goroutine. Public operations are
// messages into that goroutine, so a Controller needs no locking and never
// observes a half-applied transition.
package voice

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
)

// ErrInactive is returned when an utterance is submitted to an inactive session.
var ErrInactive = errors.New("voice session inactive")

// ErrQueueFull is wrapped when the turn or reply queue overflows.
var ErrQueueFull = errors.New("queue full")

// Options tune timeouts and queue sizes of a Controller.
type Options struct {
	CaptureTimeout   time.Duration
	ResponderTimeout time.Duration
	SpeechTimeout    time.Duration
	QueueSize        int
	EventBuffer      int
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		CaptureTimeout:   5 * time.Second,
		ResponderTimeout: 30 * time.Second,
		SpeechTimeout:    60 * time.Second,
		QueueSize:        16,
		EventBuffer:      64,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.CaptureTimeout <= 0 {
		o.CaptureTimeout = def.CaptureTimeout
	}
	if o.ResponderTimeout <= 0 {
		o.ResponderTimeout = def.ResponderTimeout
	}
	if o.SpeechTimeout <= 0 {
		o.SpeechTimeout = def.SpeechTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = def.QueueSize
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = def.EventBuffer
	}
	return o
}

type cmdKind int

const (
	cmdActivate cmdKind = iota
	cmdDeactivate
	cmdToggle
	cmdState
	cmdUtterance
	cmdCaptureError
	cmdFault
)

type command struct {
	kind     cmdKind
	greeting string
	utt      Utterance
	err      error
	run      *activation
	result   chan turnResult
	reply    chan State
}

type turnResult struct {
	reply Reply
	err   error
}

type turn struct {
	utt    Utterance
	result chan turnResult
}

func (t turn) deliver(r turnResult) {
	if t.result != nil {
		t.result <- r
	}
}

// activation holds the workers of one Inactive->Active cycle. Cancelling it
// discards every queued turn and reply.
type activation struct {
	ctx    context.Context
	cancel context.CancelFunc
	turns  chan turn
	speech chan string
}

// Controller coordinates one interaction session.
type Controller struct {
	capture   Capture
	responder Responder
	sink      Sink
	opts      Options
	now       func() time.Time

	cmds      chan command
	events    chan Event
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// loop-owned
	active    bool
	listening bool
	greeted   bool
	greeting  string
	lastErr   error
	run       *activation
}

// NewController wires the collaborators and starts the session loop.
func NewController(capture Capture, responder Responder, sink Sink, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		capture:   capture,
		responder: responder,
		sink:      sink,
		opts:      opts,
		now:       time.Now,
		cmds:      make(chan command, 32),
		events:    make(chan Event, opts.EventBuffer),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}
	go c.loop()
	return c
}

// Events exposes every state change, utterance, reply and error. The channel
// is never closed; use Done to learn when the controller stopped.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Done is closed once the controller loop has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Activate moves Inactive to Active-Idle. The greeting, if any, is spoken once
// capture first starts successfully. Calling it on an active session changes nothing.
func (c *Controller) Activate(ctx context.Context, greeting string) (State, error) {
	return c.call(ctx, command{kind: cmdActivate, greeting: greeting})
}

// Deactivate stops capture, clears the session and discards queued replies.
func (c *Controller) Deactivate(ctx context.Context) (State, error) {
	return c.call(ctx, command{kind: cmdDeactivate})
}

// Toggle flips between Active-Idle and Active-Listening. Ignored while inactive.
func (c *Controller) Toggle(ctx context.Context) (State, error) {
	return c.call(ctx, command{kind: cmdToggle})
}

// State returns the current session snapshot.
func (c *Controller) State(ctx context.Context) (State, error) {
	return c.call(ctx, command{kind: cmdState})
}

// OnUtterance queues a finalized utterance for the responder. Responder
// failures surface on the event channel.
func (c *Controller) OnUtterance(u Utterance) {
	c.post(command{kind: cmdUtterance, utt: u})
}

// OnCaptureError records a capture backend failure and forces the session
// back to Active-Idle. The session stays active.
func (c *Controller) OnCaptureError(err error) {
	if err == nil {
		return
	}
	c.post(command{kind: cmdCaptureError, err: err})
}

// Submit queues an utterance and waits for its reply. Responder failures are
// returned as *ResponderError and also published.
func (c *Controller) Submit(ctx context.Context, u Utterance) (Reply, error) {
	result := make(chan turnResult, 1)
	if _, err := c.call(ctx, command{kind: cmdUtterance, utt: u, result: result}); err != nil {
		return Reply{}, err
	}

	select {
	case r := <-result:
		return r.reply, r.err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-c.done:
		return Reply{}, ErrClosed
	}
}

// Close deactivates the session and stops the loop. Safe to call repeatedly.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
	<-c.done
}

func (c *Controller) call(ctx context.Context, cmd command) (State, error) {
	cmd.reply = make(chan State, 1)

	select {
	case c.cmds <- cmd:
	case <-c.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}

	select {
	case st := <-cmd.reply:
		return st, nil
	case <-c.done:
		select {
		case st := <-cmd.reply:
			return st, nil
		default:
			return State{}, ErrClosed
		}
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (c *Controller) post(cmd command) {
	select {
	case c.cmds <- cmd:
	case <-c.done:
	}
}

func (c *Controller) loop() {
	defer close(c.done)

	for {
		select {
		case cmd := <-c.cmds:
			c.handle(cmd)
		case <-c.closing:
			if c.active {
				c.deactivate()
			}
			return
		}
	}
}

func (c *Controller) handle(cmd command) {
	switch cmd.kind {
	case cmdActivate:
		c.activate(cmd.greeting)
	case cmdDeactivate:
		if c.active {
			c.deactivate()
		}
	case cmdToggle:
		c.toggle()
	case cmdUtterance:
		c.acceptUtterance(cmd.utt, cmd.result)
	case cmdCaptureError:
		c.captureFailed(cmd.err)
	case cmdFault:
		if c.active && cmd.run == c.run {
			c.lastErr = cmd.err
		}
	case cmdState:
	}

	if cmd.reply != nil {
		cmd.reply <- c.snapshot()
	}
}

func (c *Controller) activate(greeting string) {
	if c.active {
		return
	}

	c.active = true
	c.listening = false
	c.greeted = false
	c.greeting = strings.TrimSpace(greeting)
	c.lastErr = nil
	c.run = c.startActivation()

	log.Printf("[voice] session activated greeting=%t", c.greeting != "")
	c.publishState()
}

func (c *Controller) deactivate() {
	// Stop is requested even when idle; a backend that is not running
	// answers with CaptureNotRunning, which is ignored.
	c.stopCapture()

	c.run.cancel()
	c.run = nil
	c.active = false
	c.listening = false
	c.greeted = false
	c.greeting = ""
	c.lastErr = nil

	log.Printf("[voice] session deactivated")
	c.publishState()
}

func (c *Controller) toggle() {
	if !c.active {
		log.Printf("[voice] toggle ignored: session inactive")
		return
	}

	if c.listening {
		c.stopCapture()
		c.listening = false
		c.publishState()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.CaptureTimeout)
	defer cancel()

	err := bounded(ctx, func(ctx context.Context) error {
		return c.capture.Start(ctx, c)
	})
	// A start that outlived its timeout may still have succeeded; the
	// backend then reports already-running and is capturing for us.
	if err != nil && !IsCaptureKind(err, CaptureAlreadyRunning) {
		log.Printf("[voice] capture start failed: %v", err)
		c.fail(asCaptureError(err))
		return
	}

	c.listening = true
	if !c.greeted && c.greeting != "" {
		c.greeted = true
		if err := c.enqueueSpeech(c.run, c.greeting); err != nil {
			c.fail(err)
		}
	}
	c.publishState()
}

func (c *Controller) stopCapture() {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.CaptureTimeout)
	defer cancel()

	err := bounded(ctx, c.capture.Stop)
	if err == nil || IsCaptureKind(err, CaptureNotRunning) {
		return
	}
	log.Printf("[voice] capture stop failed: %v", err)
	c.fail(asCaptureError(err))
}

func (c *Controller) acceptUtterance(u Utterance, result chan turnResult) {
	t := turn{utt: u, result: result}

	if !c.active {
		log.Printf("[voice] utterance dropped: session inactive")
		t.deliver(turnResult{err: ErrInactive})
		return
	}

	u.Text = strings.TrimSpace(u.Text)
	if u.Text == "" {
		t.deliver(turnResult{})
		return
	}
	if u.CapturedAt.IsZero() {
		u.CapturedAt = c.now()
	}
	t.utt = u

	// The loop is the only sender, so a free slot stays free until the send.
	if len(c.run.turns) == cap(c.run.turns) {
		err := &ResponderError{Err: ErrQueueFull}
		c.fail(err)
		t.deliver(turnResult{err: err})
		return
	}
	c.publish(Event{Kind: EventUtterance, Text: u.Text})
	c.run.turns <- t
}

func (c *Controller) captureFailed(err error) {
	if !c.active {
		log.Printf("[voice] capture error ignored while inactive: %v", err)
		return
	}

	wasListening := c.listening
	c.listening = false
	c.fail(asCaptureError(err))
	if wasListening {
		c.publishState()
	}
}

func (c *Controller) fail(err error) {
	c.lastErr = err
	c.publish(Event{Kind: EventError, Err: err})
}

func (c *Controller) snapshot() State {
	phase := PhaseInactive
	if c.active {
		phase = PhaseIdle
		if c.listening {
			phase = PhaseListening
		}
	}
	return State{
		Phase:     phase,
		Active:    c.active,
		Listening: c.listening,
		Greeted:   c.greeted,
		LastError: c.lastErr,
	}
}

func (c *Controller) publishState() {
	c.publish(Event{Kind: EventState, Phase: c.snapshot().Phase})
}

func (c *Controller) publish(ev Event) {
	ev.At = c.now()
	select {
	case c.events <- ev:
	default:
		log.Printf("[voice] event buffer full, dropping %s event", ev.Kind)
	}
}

func (c *Controller) startActivation() *activation {
	ctx, cancel := context.WithCancel(context.Background())
	run := &activation{
		ctx:    ctx,
		cancel: cancel,
		turns:  make(chan turn, c.opts.QueueSize),
		speech: make(chan string, c.opts.QueueSize),
	}
	go c.turnWorker(run)
	go c.speechWorker(run)
	return run
}

func (c *Controller) enqueueSpeech(run *activation, text string) error {
	select {
	case run.speech <- text:
		return nil
	default:
		return &SpeechError{Text: text, Err: ErrQueueFull}
	}
}

// turnWorker relays utterances to the responder one at a time, preserving
// arrival order.
func (c *Controller) turnWorker(run *activation) {
	defer func() {
		for {
			select {
			case t := <-run.turns:
				t.deliver(turnResult{err: ErrInactive})
			default:
				return
			}
		}
	}()

	for {
		select {
		case <-run.ctx.Done():
			return
		case t := <-run.turns:
			reply, err := c.respond(run.ctx, t.utt.Text)
			if run.ctx.Err() != nil {
				t.deliver(turnResult{err: ErrInactive})
				return
			}
			if err != nil {
				rerr := &ResponderError{Err: err}
				log.Printf("[voice] responder failed: %v", err)
				c.publish(Event{Kind: EventError, Err: rerr})
				c.post(command{kind: cmdFault, run: run, err: rerr})
				t.deliver(turnResult{err: rerr})
				continue
			}

			c.publish(Event{Kind: EventReply, Text: reply.Text})
			if strings.TrimSpace(reply.Text) != "" {
				if qerr := c.enqueueSpeech(run, reply.Text); qerr != nil {
					c.publish(Event{Kind: EventError, Err: qerr})
					c.post(command{kind: cmdFault, run: run, err: qerr})
				}
			}
			t.deliver(turnResult{reply: reply})
		}
	}
}

// speechWorker plays queued replies in FIFO order. A failed playback is
// reported and the next reply is still played.
func (c *Controller) speechWorker(run *activation) {
	for {
		select {
		case <-run.ctx.Done():
			return
		case text := <-run.speech:
			if run.ctx.Err() != nil {
				return
			}

			ctx, cancel := context.WithTimeout(run.ctx, c.opts.SpeechTimeout)
			err := bounded(ctx, func(ctx context.Context) error {
				return c.sink.Speak(ctx, text)
			})
			cancel()

			if run.ctx.Err() != nil {
				return
			}
			if err != nil {
				serr := &SpeechError{Text: text, Err: err}
				log.Printf("[voice] speech failed: %v", err)
				c.publish(Event{Kind: EventError, Err: serr})
				c.post(command{kind: cmdFault, run: run, err: serr})
				continue
			}
			c.publish(Event{Kind: EventSpoken, Text: text})
		}
	}
}

func (c *Controller) respond(ctx context.Context, text string) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ResponderTimeout)
	defer cancel()

	ch := make(chan turnResult, 1)
	go func() {
		reply, err := c.responder.Respond(ctx, text)
		ch <- turnResult{reply: reply, err: err}
	}()

	select {
	case r := <-ch:
		return r.reply, r.err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// bounded runs fn and gives up once ctx expires, so a backend that ignores
// its context cannot stall the caller.
func bounded(ctx context.Context, fn func(context.Context) error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
