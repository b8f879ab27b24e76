package practice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	model "github.com/zhouzirui/callcoach/backend/internal/model/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/ai"
	"github.com/zhouzirui/callcoach/backend/internal/service/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/voice"
	"github.com/zhouzirui/callcoach/backend/internal/service/voice/voicefake"
)

type capturingGenerator struct {
	requests []ai.ReplyRequest
	err      error
}

func (g *capturingGenerator) Reply(ctx context.Context, req ai.ReplyRequest) (string, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	return ai.Echo{}.Reply(ctx, req)
}

type staticKnowledge string

func (k staticKnowledge) CurrentPDFContent() (string, bool) {
	return string(k), k != ""
}

func TestTurnRecorderRecordsBothSides(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, err := svc.StartSession(ctx, "first-time", "advanced")
	require.NoError(t, err)

	gen := &capturingGenerator{}
	recorder := practice.NewTurnRecorder(svc, gen, staticKnowledge("2 bed condo"), session.ID)

	reply, err := recorder.Respond(ctx, "Hello there")
	require.NoError(t, err)
	require.Equal(t, "AI Response (advanced mode): Hello there", reply.Text)

	_, err = recorder.Respond(ctx, "Is now a good time?")
	require.NoError(t, err)

	require.Len(t, gen.requests, 2)
	require.Empty(t, gen.requests[0].History)
	require.Len(t, gen.requests[1].History, 2)
	require.Equal(t, "2 bed condo", gen.requests[1].Knowledge)
	require.Equal(t, "first-time", gen.requests[1].Scenario.ID)

	transcript, err := svc.Transcript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 4)
	require.Equal(t, model.SpeakerRep, transcript[2].Speaker)
	require.Equal(t, model.SpeakerCustomer, transcript[3].Speaker)
}

func TestTurnRecorderPropagatesGeneratorError(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, err := svc.StartSession(ctx, "cold-calling", "")
	require.NoError(t, err)

	boom := errors.New("model offline")
	recorder := practice.NewTurnRecorder(svc, &capturingGenerator{err: boom}, nil, session.ID)

	_, err = recorder.Respond(ctx, "hello")
	require.ErrorIs(t, err, boom)
}

func TestTurnRecorderExchangeReturnsFeedback(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, err := svc.StartSession(ctx, "cold-calling", "beginner")
	require.NoError(t, err)

	recorder := practice.NewTurnRecorder(svc, ai.Echo{}, nil, session.ID)
	ex, err := recorder.Exchange(ctx, "Would you be open to a quick chat about your property?")
	require.NoError(t, err)

	require.NotNil(t, ex.Rep.Feedback)
	require.Equal(t, model.FeedbackPositive, ex.Rep.Feedback.Type)
	require.Equal(t, "AI Response (beginner mode): Would you be open to a quick chat about your property?", ex.Reply)
}

func TestTurnRecorderDrivesController(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	session, err := svc.StartSession(ctx, "cold-calling", "beginner")
	require.NoError(t, err)

	sink := &voicefake.Sink{}
	ctrl := voice.NewController(voicefake.NewCapture(), practice.NewTurnRecorder(svc, ai.Echo{}, nil, session.ID), sink, voice.Options{})
	defer ctrl.Close()

	_, err = ctrl.Activate(ctx, "")
	require.NoError(t, err)

	reply, err := ctrl.Submit(ctx, voice.Utterance{Text: "my name is Sam"})
	require.NoError(t, err)
	require.Equal(t, "AI Response (beginner mode): my name is Sam", reply.Text)

	require.Eventually(t, func() bool {
		return len(sink.Spoken()) == 1
	}, time.Second, 10*time.Millisecond)

	notes, err := svc.Feedback(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
}
