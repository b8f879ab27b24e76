package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	practiceHandler "github.com/zhouzirui/callcoach/backend/internal/handler/practice"
	"github.com/zhouzirui/callcoach/backend/internal/handler/scenario"
	"github.com/zhouzirui/callcoach/backend/internal/handler/stream"
	trainingHandler "github.com/zhouzirui/callcoach/backend/internal/handler/training"
	voiceHandler "github.com/zhouzirui/callcoach/backend/internal/handler/voice"
	middlewarePkg "github.com/zhouzirui/callcoach/backend/internal/middleware"
	practiceModel "github.com/zhouzirui/callcoach/backend/internal/model/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/ai"
	practiceService "github.com/zhouzirui/callcoach/backend/internal/service/practice"
	trainingService "github.com/zhouzirui/callcoach/backend/internal/service/training"
	voiceService "github.com/zhouzirui/callcoach/backend/internal/service/voice"
	"github.com/zhouzirui/callcoach/backend/pkg/utils"
)

// Dependencies 汇总路由需要的服务实例。
type Dependencies struct {
	Scenarios   practiceModel.Store
	PracticeSvc *practiceService.Service
	TrainingSvc *trainingService.Service
	// Generator 为 nil 时使用 ai.Echo。
	Generator    ai.Generator
	VoiceOptions voiceService.Options
	Language     string
	TriggerKey   string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS())

	generator := deps.Generator
	if generator == nil {
		generator = ai.Echo{}
	}

	var knowledge practiceService.KnowledgeSource
	if deps.TrainingSvc != nil {
		knowledge = deps.TrainingSvc
	}

	scenarioHandler := scenario.New(deps.Scenarios)
	sessionHandler := practiceHandler.New(deps.PracticeSvc)
	trainingRoutes := trainingHandler.New(deps.TrainingSvc)
	streamHandler := stream.New(deps.PracticeSvc, generator, knowledge)
	wsHandler := voiceHandler.NewWebSocketHandler(deps.PracticeSvc, generator, knowledge, deps.VoiceOptions, deps.Language)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		scenarioHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		trainingRoutes.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		// 前端按键与识别语言配置
		api.Get("/practice/config", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{
				"language":   deps.Language,
				"triggerKey": deps.TriggerKey,
			})
		})
	})

	return r
}
