package practice

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/callcoach/backend/internal/analysis/feedback"
	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
)

var (
	ErrScenarioRequired  = errors.New("scenario id is required")
	ErrScenarioNotFound  = errors.New("scenario not found")
	ErrInvalidDifficulty = errors.New("difficulty must be beginner or advanced")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionEnded      = errors.New("session already ended")
	ErrEmptyText         = errors.New("transcript text is empty")
)

// Turn is the outcome of recording one transcript line. Feedback is only
// set for rep turns.
type Turn struct {
	Message  practice.Message   `json:"message"`
	Feedback *practice.Feedback `json:"feedback,omitempty"`
}

// Service tracks practice sessions in memory.
type Service struct {
	scenarios practice.Store
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]practice.Session
	messages map[string][]practice.Message
	feedback map[string][]practice.Feedback
}

// NewService creates a practice service backed by the given scenario store.
func NewService(scenarios practice.Store) *Service {
	return &Service{
		scenarios: scenarios,
		now:       func() time.Time { return time.Now().UTC() },
		sessions:  make(map[string]practice.Session),
		messages:  make(map[string][]practice.Message),
		feedback:  make(map[string][]practice.Feedback),
	}
}

// Scenario resolves a scenario by id.
func (s *Service) Scenario(id string) (practice.Scenario, error) {
	scenario, ok := s.scenarios.FindByID(id)
	if !ok {
		return practice.Scenario{}, ErrScenarioNotFound
	}
	return scenario, nil
}

// StartSession opens a practice call. An empty difficulty means beginner.
func (s *Service) StartSession(_ context.Context, scenarioID, difficulty string) (practice.Session, error) {
	scenarioID = strings.TrimSpace(scenarioID)
	if scenarioID == "" {
		return practice.Session{}, ErrScenarioRequired
	}
	if _, ok := s.scenarios.FindByID(scenarioID); !ok {
		return practice.Session{}, ErrScenarioNotFound
	}

	level := practice.Beginner
	if strings.TrimSpace(difficulty) != "" {
		parsed, err := practice.ParseDifficulty(difficulty)
		if err != nil {
			return practice.Session{}, ErrInvalidDifficulty
		}
		level = parsed
	}

	session := practice.Session{
		ID:         uuid.NewString(),
		ScenarioID: scenarioID,
		Difficulty: level,
		StartedAt:  s.now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]practice.Message, 0, 16)
	s.feedback[session.ID] = nil
	s.mu.Unlock()

	log.Printf("[practice] session started id=%s scenario=%s difficulty=%s", session.ID, scenarioID, level)
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (practice.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return practice.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// EndSession closes the session and returns its final metrics.
func (s *Service) EndSession(_ context.Context, sessionID string) (practice.Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return practice.Metrics{}, ErrSessionNotFound
	}
	if session.Ended() {
		return practice.Metrics{}, ErrSessionEnded
	}

	ended := s.now()
	session.EndedAt = &ended
	s.sessions[sessionID] = session

	metrics := computeMetrics(s.messages[sessionID], s.feedback[sessionID])
	log.Printf("[practice] session ended id=%s adherence=%.0f pillars=%.0f", sessionID, metrics.ScriptAdherence, metrics.PillarCompletion)
	return metrics, nil
}

// RecordTurn appends a transcript line. Rep turns are graded and the
// resulting feedback is stored with the session.
func (s *Service) RecordTurn(_ context.Context, sessionID string, speaker practice.Speaker, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return Turn{}, ErrSessionNotFound
	}
	if session.Ended() {
		return Turn{}, ErrSessionEnded
	}

	now := s.now()
	message := practice.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Speaker:   speaker,
		Text:      text,
		CreatedAt: now,
	}
	s.messages[sessionID] = append(s.messages[sessionID], message)

	result := Turn{Message: message}
	if speaker == practice.SpeakerRep {
		decision := feedback.Analyze(text)
		fb := practice.Feedback{
			Type:      decision.Type,
			Message:   decision.Message,
			Timestamp: now.UnixMilli(),
		}
		s.feedback[sessionID] = append(s.feedback[sessionID], fb)
		result.Feedback = &fb
	}
	return result, nil
}

// Transcript returns the stored lines of a session in order.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]practice.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]practice.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Feedback returns the coaching notes collected for a session.
func (s *Service) Feedback(_ context.Context, sessionID string) ([]practice.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrSessionNotFound
	}
	return append([]practice.Feedback{}, s.feedback[sessionID]...), nil
}

// Metrics computes the live metrics of a session.
func (s *Service) Metrics(_ context.Context, sessionID string) (practice.Metrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return practice.Metrics{}, ErrSessionNotFound
	}
	return computeMetrics(s.messages[sessionID], s.feedback[sessionID]), nil
}
