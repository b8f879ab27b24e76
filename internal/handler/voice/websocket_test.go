package voice

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/callcoach/backend/internal/model/practice"
	"github.com/zhouzirui/callcoach/backend/internal/service/ai"
	practiceService "github.com/zhouzirui/callcoach/backend/internal/service/practice"
	voiceService "github.com/zhouzirui/callcoach/backend/internal/service/voice"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func (c *client) send(msgType string, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{"type": msgType, "data": json.RawMessage(raw)}))
}

// expect reads frames until one of msgType arrives, skipping the rest.
func (c *client) expect(msgType string) frame {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(c.t, c.conn.SetReadDeadline(deadline))
		var f frame
		require.NoError(c.t, c.conn.ReadJSON(&f), "waiting for %s frame", msgType)
		if f.Type == msgType {
			return f
		}
	}
}

// expectAll reads frames until every listed type has arrived once. Frames
// sent by different workers may interleave in any order.
func (c *client) expectAll(types ...string) map[string]frame {
	c.t.Helper()
	want := make(map[string]bool, len(types))
	for _, typ := range types {
		want[typ] = true
	}

	got := make(map[string]frame, len(types))
	deadline := time.Now().Add(3 * time.Second)
	for len(got) < len(want) {
		require.NoError(c.t, c.conn.SetReadDeadline(deadline))
		var f frame
		require.NoError(c.t, c.conn.ReadJSON(&f), "waiting for %v frames", types)
		if _, seen := got[f.Type]; want[f.Type] && !seen {
			got[f.Type] = f
		}
	}
	return got
}

func (c *client) expectState(phase string) stateMessage {
	c.t.Helper()
	for {
		var st stateMessage
		require.NoError(c.t, json.Unmarshal(c.expect("state").Data, &st))
		if st.Phase == phase {
			return st
		}
	}
}

func setupServer(t *testing.T) (*httptest.Server, *practiceService.Service, model.Session) {
	t.Helper()
	svc := practiceService.NewService(model.NewMemoryStore(model.Seed()))
	session, err := svc.StartSession(context.Background(), "cold-calling", "beginner")
	require.NoError(t, err)

	handler := NewWebSocketHandler(svc, ai.Echo{}, nil, voiceService.Options{
		CaptureTimeout:   time.Second,
		ResponderTimeout: time.Second,
		SpeechTimeout:    2 * time.Second,
	}, "en-US")

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc, session
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/practice/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &client{t: t, conn: conn}
	c.expect("info")
	return c
}

func TestWebSocketRejectsUnknownSession(t *testing.T) {
	srv, _, _ := setupServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/practice/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 404, resp.StatusCode)
}

func TestWebSocketPushToTalkRoundTrip(t *testing.T) {
	srv, svc, session := setupServer(t)
	c := dial(t, srv, session.ID)

	c.send("activate", map[string]any{"greeting": "Hello, who is this?"})
	c.expectState("idle")

	c.send("toggle", nil)
	frames := c.expectAll("capture", "speak")

	var capture struct {
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(frames["capture"].Data, &capture))
	require.Equal(t, "start", capture.Action)

	var speak struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(frames["speak"].Data, &speak))
	require.Equal(t, "Hello, who is this?", speak.Text)
	c.send("spoken", map[string]string{"id": speak.ID})

	c.send("transcript", map[string]any{"text": "my name is", "isFinal": false})
	c.send("transcript", map[string]any{"text": "My name is Sam from Oak Realty", "isFinal": true})

	frames = c.expectAll("utterance", "speak")

	var utterance struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(frames["utterance"].Data, &utterance))
	require.Equal(t, "My name is Sam from Oak Realty", utterance.Text)

	require.NoError(t, json.Unmarshal(frames["speak"].Data, &speak))
	require.Equal(t, "AI Response (beginner mode): My name is Sam from Oak Realty", speak.Text)
	c.send("spoken", map[string]string{"id": speak.ID})

	transcript, err := svc.Transcript(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	require.Equal(t, model.SpeakerRep, transcript[0].Speaker)

	c.send("toggle", nil)
	require.NoError(t, json.Unmarshal(c.expect("capture").Data, &capture))
	require.Equal(t, "stop", capture.Action)
}

func TestWebSocketCaptureErrorReturnsToIdle(t *testing.T) {
	srv, _, session := setupServer(t)
	c := dial(t, srv, session.ID)

	c.send("activate", map[string]any{"greeting": ""})
	c.expectState("idle")
	c.send("toggle", nil)
	c.expectState("listening")

	c.send("capture_error", map[string]string{"reason": "not-allowed"})

	var errFrame struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(c.expect("error").Data, &errFrame))
	require.Equal(t, string(voiceService.CapturePermissionDenied), errFrame.Kind)

	st := c.expectState("idle")
	require.True(t, st.Active)
	require.NotEmpty(t, st.LastError)
}

func TestWebSocketUnsupportedMessage(t *testing.T) {
	srv, _, session := setupServer(t)
	c := dial(t, srv, session.ID)

	c.send("dance", nil)

	var errFrame struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(c.expect("error").Data, &errFrame))
	require.Contains(t, errFrame.Message, "dance")
}
