package practice

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/ai"
	"github.com/zhouzirui/callcoach/backend/internal/service/voice"
)

// KnowledgeSource supplies the current property document, if any.
type KnowledgeSource interface {
	CurrentPDFContent() (string, bool)
}

// TurnRecorder is the voice.Responder of a practice session: it records the
// rep's utterance, asks the generator for the customer's answer and records
// that too.
type TurnRecorder struct {
	service   *Service
	generator ai.Generator
	knowledge KnowledgeSource
	sessionID string
}

var _ voice.Responder = (*TurnRecorder)(nil)

// NewTurnRecorder binds a recorder to one practice session. knowledge may be nil.
func NewTurnRecorder(service *Service, generator ai.Generator, knowledge KnowledgeSource, sessionID string) *TurnRecorder {
	return &TurnRecorder{
		service:   service,
		generator: generator,
		knowledge: knowledge,
		sessionID: sessionID,
	}
}

// Exchange is one rep line and the customer's answer to it.
type Exchange struct {
	Rep   Turn
	Reply string
}

// Respond implements voice.Responder.
func (r *TurnRecorder) Respond(ctx context.Context, text string) (voice.Reply, error) {
	ex, err := r.Exchange(ctx, text)
	if err != nil {
		return voice.Reply{}, err
	}
	return voice.Reply{Text: ex.Reply}, nil
}

// Exchange records the rep's line with its feedback, generates the customer's
// answer and records that as well.
func (r *TurnRecorder) Exchange(ctx context.Context, text string) (Exchange, error) {
	session, err := r.service.GetSession(ctx, r.sessionID)
	if err != nil {
		return Exchange{}, err
	}
	scenario, err := r.service.Scenario(session.ScenarioID)
	if err != nil {
		return Exchange{}, err
	}

	history, err := r.service.Transcript(ctx, r.sessionID)
	if err != nil {
		return Exchange{}, err
	}

	turn, err := r.service.RecordTurn(ctx, r.sessionID, practice.SpeakerRep, text)
	if err != nil {
		return Exchange{}, err
	}

	req := ai.ReplyRequest{
		SessionID:  r.sessionID,
		Scenario:   scenario,
		Difficulty: session.Difficulty,
		History:    history,
		Utterance:  turn.Message.Text,
	}
	if r.knowledge != nil {
		if content, ok := r.knowledge.CurrentPDFContent(); ok {
			req.Knowledge = content
		}
	}

	answer, err := r.generator.Reply(ctx, req)
	if err != nil {
		return Exchange{Rep: turn}, fmt.Errorf("generate customer reply: %w", err)
	}

	if _, err := r.service.RecordTurn(ctx, r.sessionID, practice.SpeakerCustomer, answer); err != nil && !errors.Is(err, ErrEmptyText) {
		return Exchange{Rep: turn}, err
	}
	return Exchange{Rep: turn, Reply: answer}, nil
}
