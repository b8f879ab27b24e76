package stream

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/ai"
	practiceService "github.com/zhouzirui/callcoach/backend/internal/service/practice"
	"github.com/zhouzirui/callcoach/backend/pkg/utils"
)

// Handler runs typed practice turns and streams the result as Server-Sent Events.
type Handler struct {
	practiceSvc *practiceService.Service
	generator   ai.Generator
	knowledge   practiceService.KnowledgeSource
}

// New creates a stream handler. knowledge may be nil.
func New(practiceSvc *practiceService.Service, generator ai.Generator, knowledge practiceService.KnowledgeSource) *Handler {
	if generator == nil {
		generator = ai.Echo{}
	}
	return &Handler{
		practiceSvc: practiceSvc,
		generator:   generator,
		knowledge:   knowledge,
	}
}

// RegisterRoutes 注册文本练习的流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/practice/turn/stream", h.handleTurn)
}

// StreamEvent is the payload of every event on the stream.
type StreamEvent struct {
	SessionID string             `json:"sessionId"`
	Speaker   practice.Speaker   `json:"speaker,omitempty"`
	Content   string             `json:"content,omitempty"`
	Feedback  *practice.Feedback `json:"feedback,omitempty"`
	Finished  bool               `json:"finished,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// 会话校验在建立事件流之前完成，错误仍以普通JSON返回
	session, err := h.practiceSvc.GetSession(r.Context(), payload.SessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if session.Ended() {
		utils.RespondError(w, http.StatusConflict, practiceService.ErrSessionEnded.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	utils.SendSSEEvent(w, flusher, "start", StreamEvent{SessionID: session.ID})

	recorder := practiceService.NewTurnRecorder(h.practiceSvc, h.generator, h.knowledge, session.ID)
	ex, err := recorder.Exchange(r.Context(), payload.Text)

	if ex.Rep.Message.ID != "" {
		utils.SendSSEEvent(w, flusher, "feedback", StreamEvent{
			SessionID: session.ID,
			Speaker:   practice.SpeakerRep,
			Content:   ex.Rep.Message.Text,
			Feedback:  ex.Rep.Feedback,
		})
	}

	if err != nil {
		log.Printf("[stream] turn failed for session=%s: %v", session.ID, err)
		msg := err.Error()
		if errors.Is(err, practiceService.ErrEmptyText) {
			msg = "text is required"
		}
		utils.SendSSEEvent(w, flusher, "error", StreamEvent{SessionID: session.ID, Error: msg})
		return
	}

	utils.SendSSEEvent(w, flusher, "message", StreamEvent{
		SessionID: session.ID,
		Speaker:   practice.SpeakerCustomer,
		Content:   ex.Reply,
	})
	utils.SendSSEEvent(w, flusher, "end", StreamEvent{SessionID: session.ID, Finished: true})

	log.Printf("[stream] completed turn for session=%s", session.ID)
}
