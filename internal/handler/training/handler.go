package training

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	model "github.com/zhouzirui/callcoach/backend/internal/model/training"
	trainingService "github.com/zhouzirui/callcoach/backend/internal/service/training"
	"github.com/zhouzirui/callcoach/backend/pkg/utils"
)

// Handler 训练资料的HTTP处理器
type Handler struct {
	trainingSvc *trainingService.Service
}

// New 创建训练资料处理器
func New(trainingSvc *trainingService.Service) *Handler {
	return &Handler{trainingSvc: trainingSvc}
}

// RegisterRoutes 注册训练资料相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/training", func(tr chi.Router) {
		tr.Post("/documents", h.handleAddDocument)
		tr.Get("/documents", h.handleListDocuments)
		tr.Get("/status", h.handleStatus)
		tr.Delete("/", h.handleClear)
	})
}

// handleAddDocument 上传资料；PDF 文本由客户端提取后提交
func (h *Handler) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Type    string `json:"type"`
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.trainingSvc.Add(r.Context(), model.Document{
		Type:    model.DocumentType(payload.Type),
		Title:   payload.Title,
		Content: payload.Content,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, trainingService.ErrTitleRequired) ||
			errors.Is(err, trainingService.ErrContentRequired) ||
			errors.Is(err, trainingService.ErrInvalidType) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.trainingSvc.List())
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.trainingSvc.Status())
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	h.trainingSvc.Clear()
	utils.RespondNoContent(w)
}
