package practice_test

import (
	"context"
	"errors"
	"testing"

	model "github.com/zhouzirui/callcoach/backend/internal/model/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/practice"
)

func newService() *practice.Service {
	return practice.NewService(model.NewMemoryStore(model.Seed()))
}

func TestStartSessionValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	cases := []struct {
		name       string
		scenario   string
		difficulty string
		want       error
	}{
		{"missing scenario", "", "beginner", practice.ErrScenarioRequired},
		{"unknown scenario", "door-knocking", "beginner", practice.ErrScenarioNotFound},
		{"bad difficulty", "cold-calling", "expert", practice.ErrInvalidDifficulty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.StartSession(ctx, tc.scenario, tc.difficulty); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestStartSessionDefaultsToBeginner(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	session, err := svc.StartSession(ctx, "investment", "")
	if err != nil {
		t.Fatalf("StartSession err: %v", err)
	}
	if session.Difficulty != model.Beginner {
		t.Fatalf("unexpected difficulty: %s", session.Difficulty)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ScenarioID != "investment" {
		t.Fatalf("unexpected scenario: %s", got.ScenarioID)
	}
}

func TestRecordTurnGradesRepOnly(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, _ := svc.StartSession(ctx, "cold-calling", "advanced")

	rep, err := svc.RecordTurn(ctx, session.ID, model.SpeakerRep, "I understand. What would help you most?")
	if err != nil {
		t.Fatalf("RecordTurn err: %v", err)
	}
	if rep.Feedback == nil || rep.Feedback.Type != model.FeedbackPositive {
		t.Fatalf("expected positive feedback, got %+v", rep.Feedback)
	}

	customer, err := svc.RecordTurn(ctx, session.ID, model.SpeakerCustomer, "Who is this?")
	if err != nil {
		t.Fatalf("RecordTurn err: %v", err)
	}
	if customer.Feedback != nil {
		t.Fatalf("customer turns must not be graded: %+v", customer.Feedback)
	}

	if _, err := svc.RecordTurn(ctx, session.ID, model.SpeakerRep, "   "); !errors.Is(err, practice.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}

	transcript, _ := svc.Transcript(ctx, session.ID)
	if len(transcript) != 2 || transcript[1].Speaker != model.SpeakerCustomer {
		t.Fatalf("unexpected transcript: %+v", transcript)
	}
	notes, _ := svc.Feedback(ctx, session.ID)
	if len(notes) != 1 {
		t.Fatalf("expected one feedback entry, got %d", len(notes))
	}
}

func TestMetricsAndEndSession(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, _ := svc.StartSession(ctx, "cold-calling", "beginner")

	lines := []string{
		"Hi, my name is Sam from Oak Realty. Is now a good time?",
		"Why are you thinking about selling, and what price would work for you?",
	}
	for _, line := range lines {
		if _, err := svc.RecordTurn(ctx, session.ID, model.SpeakerRep, line); err != nil {
			t.Fatalf("RecordTurn err: %v", err)
		}
	}

	metrics, err := svc.EndSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("EndSession err: %v", err)
	}
	// introduction, permission, qualification of five steps.
	if metrics.ScriptAdherence != 60 {
		t.Fatalf("unexpected adherence: %v", metrics.ScriptAdherence)
	}
	// motivation and price of five pillars.
	if metrics.PillarCompletion != 40 {
		t.Fatalf("unexpected pillar completion: %v", metrics.PillarCompletion)
	}
	if metrics.SpeakingTime <= 0 {
		t.Fatalf("expected speaking time, got %v", metrics.SpeakingTime)
	}
	if metrics.SuccessRate != 100 {
		t.Fatalf("unexpected success rate: %v", metrics.SuccessRate)
	}

	if _, err := svc.EndSession(ctx, session.ID); !errors.Is(err, practice.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
	if _, err := svc.RecordTurn(ctx, session.ID, model.SpeakerRep, "one more thing"); !errors.Is(err, practice.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Metrics(ctx, "missing"); !errors.Is(err, practice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Transcript(ctx, "missing"); !errors.Is(err, practice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.EndSession(ctx, "missing"); !errors.Is(err, practice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
