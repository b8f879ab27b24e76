package voice

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/callcoach/backend/internal/service/ai"
	practiceService "github.com/zhouzirui/callcoach/backend/internal/service/practice"
	voiceService "github.com/zhouzirui/callcoach/backend/internal/service/voice"
)

const (
	readWait     = 60 * time.Second
	pingInterval = 54 * time.Second
)

// WebSocketHandler 将浏览器连接桥接到语音会话控制器，每个连接一个控制器。
type WebSocketHandler struct {
	practiceSvc *practiceService.Service
	generator   ai.Generator
	knowledge   practiceService.KnowledgeSource
	opts        voiceService.Options
	language    string
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器。knowledge 可以为 nil。
func NewWebSocketHandler(practiceSvc *practiceService.Service, generator ai.Generator, knowledge practiceService.KnowledgeSource, opts voiceService.Options, language string) *WebSocketHandler {
	if generator == nil {
		generator = ai.Echo{}
	}
	if language == "" {
		language = "en-US"
	}
	return &WebSocketHandler{
		practiceSvc: practiceSvc,
		generator:   generator,
		knowledge:   knowledge,
		opts:        opts,
		language:    language,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/practice/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type activateMessage struct {
	Greeting *string `json:"greeting,omitempty"`
}

type transcriptMessage struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

type captureErrorMessage struct {
	Reason string `json:"reason"`
}

type spokenMessage struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type stateMessage struct {
	Phase     string `json:"phase"`
	Active    bool   `json:"active"`
	Listening bool   `json:"listening"`
	Greeted   bool   `json:"greeted"`
	LastError string `json:"lastError,omitempty"`
}

// liveSession 是单个连接上的控制器及其桥接。
type liveSession struct {
	bridge   *bridge
	ctrl     *voiceService.Controller
	greeting string
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	session, err := h.practiceSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if session.Ended() {
		http.Error(w, "session already ended", http.StatusConflict)
		return
	}

	scenario, err := h.practiceSvc.Scenario(session.ScenarioID)
	if err != nil {
		http.Error(w, "scenario not found", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	b := newBridge(conn, sessionID, h.language)
	recorder := practiceService.NewTurnRecorder(h.practiceSvc, h.generator, h.knowledge, sessionID)
	live := &liveSession{
		bridge:   b,
		ctrl:     voiceService.NewController(b, recorder, b, h.opts),
		greeting: scenario.WelcomeMessage,
	}
	defer func() {
		b.close()
		live.ctrl.Close()
		log.Printf("[websocket] connection closed for session: %s", sessionID)
	}()

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	go h.pingLoop(ctx, b)
	go h.forwardEvents(ctx, live)

	b.send("info", map[string]any{
		"type":       "connected",
		"scenario":   scenario.ID,
		"difficulty": session.Difficulty,
		"language":   h.language,
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readWait))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			b.sendError("session mismatch", "")
			continue
		}

		h.handleMessage(ctx, live, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, live *liveSession, msg *inboundMessage) {
	switch msg.Type {
	case "activate":
		var payload activateMessage
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				live.bridge.sendError("invalid activate payload", "")
				return
			}
		}
		greeting := live.greeting
		if payload.Greeting != nil {
			greeting = *payload.Greeting
		}
		h.sendResult(live, "activate")(live.ctrl.Activate(ctx, greeting))
	case "deactivate":
		h.sendResult(live, "deactivate")(live.ctrl.Deactivate(ctx))
	case "toggle":
		h.sendResult(live, "toggle")(live.ctrl.Toggle(ctx))
	case "transcript":
		var payload transcriptMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			live.bridge.sendError("invalid transcript payload", "")
			return
		}
		// 只转发最终结果，中间结果直接丢弃。
		if !payload.IsFinal || strings.TrimSpace(payload.Text) == "" {
			return
		}
		if !live.bridge.deliverUtterance(payload.Text) {
			log.Printf("[websocket] transcript dropped: capture never started session=%s", live.bridge.sessionID)
		}
	case "capture_error":
		var payload captureErrorMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			live.bridge.sendError("invalid capture_error payload", "")
			return
		}
		live.bridge.captureFailed(payload.Reason)
	case "spoken":
		var payload spokenMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			live.bridge.sendError("invalid spoken payload", "")
			return
		}
		if !live.bridge.acknowledge(payload.ID, payload.Error) {
			log.Printf("[websocket] ignoring ack for unknown speak id=%s", payload.ID)
		}
	default:
		live.bridge.sendError("unsupported message type: "+msg.Type, "")
	}
}

// sendResult 在命令失败时回报错误；状态变化由事件流推送。
func (h *WebSocketHandler) sendResult(live *liveSession, op string) func(voiceService.State, error) {
	return func(_ voiceService.State, err error) {
		if err != nil {
			log.Printf("[websocket] %s failed: %v", op, err)
			live.bridge.sendError(op+" failed: "+err.Error(), "")
		}
	}
}

// forwardEvents 把控制器事件转成 state/utterance/reply/error 帧。
func (h *WebSocketHandler) forwardEvents(ctx context.Context, live *liveSession) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-live.ctrl.Done():
			return
		case ev := <-live.ctrl.Events():
			var err error
			switch ev.Kind {
			case voiceService.EventState:
				st, stateErr := live.ctrl.State(ctx)
				if stateErr != nil {
					return
				}
				err = live.bridge.send("state", toStateMessage(st))
			case voiceService.EventUtterance:
				err = live.bridge.send("utterance", map[string]any{"text": ev.Text})
			case voiceService.EventReply:
				err = live.bridge.send("reply", map[string]any{"text": ev.Text})
			case voiceService.EventError:
				err = live.bridge.sendError(ev.Err.Error(), errorKind(ev.Err))
			}
			if err != nil && !errors.Is(err, errConnectionClosed) {
				log.Printf("[websocket] failed to forward %s event: %v", ev.Kind, err)
			}
		}
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, b *bridge) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.ping(); err != nil {
				log.Printf("[websocket] ping failed: %v", err)
				return
			}
		}
	}
}

func toStateMessage(st voiceService.State) stateMessage {
	msg := stateMessage{
		Phase:     st.Phase.String(),
		Active:    st.Active,
		Listening: st.Listening,
		Greeted:   st.Greeted,
	}
	if st.LastError != nil {
		msg.LastError = st.LastError.Error()
	}
	return msg
}

func errorKind(err error) string {
	var captureErr *voiceService.CaptureError
	var responderErr *voiceService.ResponderError
	var speechErr *voiceService.SpeechError
	switch {
	case errors.As(err, &captureErr):
		return string(captureErr.Kind)
	case errors.As(err, &responderErr):
		return "responder"
	case errors.As(err, &speechErr):
		return "speech"
	default:
		return ""
	}
}
