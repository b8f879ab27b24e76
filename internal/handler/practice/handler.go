package practice

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	model "github.com/zhouzirui/callcoach/backend/internal/model/practice"
	practiceService "github.com/zhouzirui/callcoach/backend/internal/service/practice"
	"github.com/zhouzirui/callcoach/backend/pkg/utils"
)

// Handler 练习会话的HTTP处理器
type Handler struct {
	practiceSvc *practiceService.Service
}

// New 创建练习会话处理器
func New(practiceSvc *practiceService.Service) *Handler {
	return &Handler{practiceSvc: practiceSvc}
}

// RegisterRoutes 注册练习相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/practice/session/start", h.handleStartSession)
	r.Post("/practice/session/end", h.handleEndSession)
	r.Get("/practice/session/{sessionID}", h.handleGetSession)
	r.Post("/practice/process-transcript", h.handleProcessTranscript)
	r.Get("/practice/feedback/{sessionID}", h.handleFeedback)
	r.Get("/practice/metrics/{sessionID}", h.handleMetrics)
	r.Get("/practice/transcript/{sessionID}", h.handleTranscript)
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ScenarioID string `json:"scenarioId"`
		Difficulty string `json:"difficulty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.practiceSvc.StartSession(r.Context(), payload.ScenarioID, payload.Difficulty)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	metrics, err := h.practiceSvc.EndSession(r.Context(), payload.SessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, metrics)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.practiceSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleProcessTranscript 记录销售代表的一句话并返回即时反馈
func (h *Handler) handleProcessTranscript(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.practiceSvc.RecordTurn(r.Context(), payload.SessionID, model.SpeakerRep, payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn.Feedback)
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	notes, err := h.practiceSvc.Feedback(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, notes)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.practiceSvc.Metrics(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, metrics)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.practiceSvc.Transcript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// respondServiceError 将服务层错误映射为HTTP状态码
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, practiceService.ErrSessionNotFound),
		errors.Is(err, practiceService.ErrScenarioNotFound):
		status = http.StatusNotFound
	case errors.Is(err, practiceService.ErrSessionEnded):
		status = http.StatusConflict
	case errors.Is(err, practiceService.ErrScenarioRequired),
		errors.Is(err, practiceService.ErrInvalidDifficulty),
		errors.Is(err, practiceService.ErrEmptyText):
		status = http.StatusBadRequest
	}
	utils.RespondError(w, status, err.Error())
}
