package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	voiceService "github.com/zhouzirui/callcoach/backend/internal/service/voice"
)

const writeWait = 10 * time.Second

var errConnectionClosed = errors.New("websocket connection closed")

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// bridge 让浏览器同时充当语音识别后端和语音播放端。
// 识别的启停通过 capture 帧下发，失败由浏览器异步回报 capture_error；
// 播放通过 speak 帧下发，并等待带相同 id 的 spoken 回执。
type bridge struct {
	conn      *websocket.Conn
	sessionID string
	language  string

	writeMu sync.Mutex

	mu        sync.Mutex
	capturing bool
	listener  voiceService.Listener
	pending   map[string]chan error

	closed    chan struct{}
	closeOnce sync.Once
}

var (
	_ voiceService.Capture = (*bridge)(nil)
	_ voiceService.Sink    = (*bridge)(nil)
)

func newBridge(conn *websocket.Conn, sessionID, language string) *bridge {
	return &bridge{
		conn:      conn,
		sessionID: sessionID,
		language:  language,
		pending:   make(map[string]chan error),
		closed:    make(chan struct{}),
	}
}

// Start asks the browser to begin speech recognition.
func (b *bridge) Start(_ context.Context, l voiceService.Listener) error {
	b.mu.Lock()
	if b.capturing {
		b.mu.Unlock()
		return voiceService.NewCaptureError(voiceService.CaptureAlreadyRunning, nil)
	}
	b.capturing = true
	b.listener = l
	b.mu.Unlock()

	err := b.send("capture", map[string]any{"action": "start", "language": b.language})
	if err != nil {
		b.mu.Lock()
		b.capturing = false
		b.mu.Unlock()
		return voiceService.NewCaptureError(voiceService.CaptureFailed, err)
	}
	return nil
}

// Stop asks the browser to end speech recognition.
func (b *bridge) Stop(_ context.Context) error {
	b.mu.Lock()
	if !b.capturing {
		b.mu.Unlock()
		return voiceService.NewCaptureError(voiceService.CaptureNotRunning, nil)
	}
	b.capturing = false
	b.mu.Unlock()

	if err := b.send("capture", map[string]any{"action": "stop"}); err != nil {
		return voiceService.NewCaptureError(voiceService.CaptureFailed, err)
	}
	return nil
}

// Speak sends the text for playback and waits for the browser's spoken ack.
func (b *bridge) Speak(ctx context.Context, text string) error {
	id := uuid.NewString()
	ack := make(chan error, 1)

	b.mu.Lock()
	b.pending[id] = ack
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if err := b.send("speak", map[string]any{"id": id, "text": text}); err != nil {
		return err
	}

	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-b.closed:
		return errConnectionClosed
	}
}

// deliverUtterance forwards a final transcript to the listener bound by Start.
func (b *bridge) deliverUtterance(text string) bool {
	b.mu.Lock()
	l := b.listener
	b.mu.Unlock()
	if l == nil {
		return false
	}
	l.OnUtterance(voiceService.Utterance{Text: text, CapturedAt: time.Now()})
	return true
}

// captureFailed marks recognition stopped and reports the reason.
func (b *bridge) captureFailed(reason string) bool {
	b.mu.Lock()
	b.capturing = false
	l := b.listener
	b.mu.Unlock()
	if l == nil {
		return false
	}

	kind := voiceService.ParseCaptureErrorKind(reason)
	var cause error
	if reason != "" && string(kind) != reason {
		cause = errors.New(reason)
	}
	l.OnCaptureError(voiceService.NewCaptureError(kind, cause))
	return true
}

// acknowledge resolves a pending Speak. Unknown or repeated ids are ignored.
func (b *bridge) acknowledge(id, failure string) bool {
	b.mu.Lock()
	ack, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if !ok {
		return false
	}

	var err error
	if failure != "" {
		err = errors.New(failure)
	}
	ack <- err
	return true
}

func (b *bridge) close() {
	b.closeOnce.Do(func() { close(b.closed) })
}

func (b *bridge) send(msgType string, data interface{}) error {
	return b.write(outgoingMessage{
		Type:      msgType,
		SessionID: b.sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (b *bridge) sendError(message string, kind string) error {
	data := map[string]any{"message": message}
	if kind != "" {
		data["kind"] = kind
	}
	return b.send("error", data)
}

func (b *bridge) write(msg outgoingMessage) error {
	select {
	case <-b.closed:
		return errConnectionClosed
	default:
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return b.conn.WriteJSON(msg)
}

func (b *bridge) ping() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}
