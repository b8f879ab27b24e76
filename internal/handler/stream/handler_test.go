package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/callcoach/backend/internal/model/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/ai"
	practiceService "github.com/zhouzirui/callcoach/backend/internal/service/practice"
)

type sseEvent struct {
	name string
	data StreamEvent
}

type failingGenerator struct{}

func (failingGenerator) Reply(context.Context, ai.ReplyRequest) (string, error) {
	return "", errors.New("model offline")
}

func setup(t *testing.T, gen ai.Generator) (*chi.Mux, *practiceService.Service, model.Session) {
	t.Helper()
	svc := practiceService.NewService(model.NewMemoryStore(model.Seed()))
	session, err := svc.StartSession(context.Background(), "investment", "advanced")
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, gen, nil).RegisterRoutes(r)
	return r, svc, session
}

func post(t *testing.T, r http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/practice/turn/stream", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.data))
		case line == "":
			if current.name != "" {
				events = append(events, current)
			}
			current = sseEvent{}
		}
	}
	return events
}

func names(events []sseEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.name)
	}
	return out
}

func TestStreamTurnEmitsFeedbackAndReply(t *testing.T) {
	r, svc, session := setup(t, ai.Echo{})

	resp := post(t, r, map[string]string{"sessionId": session.ID, "text": "Thanks for your time, what would help you most?"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))

	events := parseEvents(t, resp.Body.String())
	require.Equal(t, []string{"start", "feedback", "message", "end"}, names(events))

	require.NotNil(t, events[1].data.Feedback)
	require.Equal(t, model.FeedbackPositive, events[1].data.Feedback.Type)
	require.Equal(t, model.SpeakerCustomer, events[2].data.Speaker)
	require.Equal(t, "AI Response (advanced mode): Thanks for your time, what would help you most?", events[2].data.Content)
	require.True(t, events[3].data.Finished)

	transcript, err := svc.Transcript(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
}

func TestStreamTurnGeneratorFailureKeepsRepTurn(t *testing.T) {
	r, svc, session := setup(t, failingGenerator{})

	resp := post(t, r, map[string]string{"sessionId": session.ID, "text": "Is now a good time?"})
	events := parseEvents(t, resp.Body.String())
	require.Equal(t, []string{"start", "feedback", "error"}, names(events))
	require.Contains(t, events[2].data.Error, "model offline")

	transcript, err := svc.Transcript(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 1)
}

func TestStreamTurnRejectsEmptyText(t *testing.T) {
	r, _, session := setup(t, ai.Echo{})

	events := parseEvents(t, post(t, r, map[string]string{"sessionId": session.ID, "text": "   "}).Body.String())
	require.Equal(t, []string{"start", "error"}, names(events))
	require.Equal(t, "text is required", events[1].data.Error)
}

func TestStreamTurnSessionChecks(t *testing.T) {
	r, svc, session := setup(t, ai.Echo{})

	require.Equal(t, http.StatusNotFound, post(t, r, map[string]string{"sessionId": "missing", "text": "hi"}).Code)

	_, err := svc.EndSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, post(t, r, map[string]string{"sessionId": session.ID, "text": "hi"}).Code)
}
