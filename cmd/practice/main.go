package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/callcoach/backend/internal/config"
	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
	trainingModel "github.com/zhouzirui/callcoach/backend/internal/model/training"
	"github.com/zhouzirui/callcoach/backend/internal/service/ai"
	practiceService "github.com/zhouzirui/callcoach/backend/internal/service/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/training"
	"github.com/zhouzirui/callcoach/backend/internal/service/voice"
	"github.com/zhouzirui/callcoach/backend/internal/tui/app"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	scenarioID := flag.String("scenario", "cold-calling", "scenario id (cold-calling, first-time, investment)")
	difficulty := flag.String("difficulty", "beginner", "beginner or advanced")
	greeting := flag.String("greeting", "Hello? Who's calling?", "line the customer says when you first start talking")
	knowledgePath := flag.String("property", "", "optional text file describing the property")
	logPath := flag.String("log", "", "write logs to this file instead of discarding them")
	flag.Parse()

	// bubbletea 占用终端，日志默认丢弃
	log.SetOutput(io.Discard)
	if *logPath != "" {
		f, err := tea.LogToFile(*logPath, "practice")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	scenarios := practice.NewMemoryStore(practice.Seed())
	practiceSvc := practiceService.NewService(scenarios)
	trainingSvc := training.NewService()

	if *knowledgePath != "" {
		raw, err := os.ReadFile(*knowledgePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read property file: %v\n", err)
			os.Exit(1)
		}
		if _, err := trainingSvc.Add(ctx, trainingModel.Document{
			Type:    trainingModel.TypePDF,
			Title:   *knowledgePath,
			Content: string(raw),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load property file: %v\n", err)
			os.Exit(1)
		}
	}

	session, err := practiceSvc.StartSession(ctx, *scenarioID, *difficulty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start session: %v\n", err)
		os.Exit(1)
	}
	scenario, _ := practiceSvc.Scenario(session.ScenarioID)

	var generator ai.Generator = ai.Echo{}
	if cfg.AI.Enabled() {
		if svc, err := ai.NewService(ctx, cfg.AI); err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
		} else {
			generator = svc
		}
	}

	keyboard := app.NewKeyboard()
	sink := app.NewPaneSink()
	ctrl := voice.NewController(
		keyboard,
		practiceService.NewTurnRecorder(practiceSvc, generator, trainingSvc, session.ID),
		sink,
		voice.Options{
			CaptureTimeout:   cfg.Practice.CaptureTimeout,
			ResponderTimeout: cfg.Practice.ResponderTimeout,
			SpeechTimeout:    cfg.Practice.SpeechTimeout,
			QueueSize:        cfg.Practice.ReplyQueue,
		},
	)

	model := app.New(app.Config{
		Scenario:   scenario,
		Difficulty: session.Difficulty,
		Greeting:   *greeting,
		Controller: ctrl,
		Keyboard:   keyboard,
		Sink:       sink,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := p.Run()
	ctrl.Close()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}

	metrics, err := practiceSvc.EndSession(ctx, session.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to end session: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Script adherence:  %.0f%%\n", metrics.ScriptAdherence)
	fmt.Printf("Pillar completion: %.0f%%\n", metrics.PillarCompletion)
	fmt.Printf("Speaking time:     %.0fs\n", metrics.SpeakingTime)
	fmt.Printf("Success rate:      %.0f%%\n", metrics.SuccessRate)
}
