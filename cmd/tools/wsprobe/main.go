package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/callcoach/backend/pkg/utils"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type session struct {
	ID         string `json:"id"`
	ScenarioID string `json:"scenarioId"`
	Difficulty string `json:"difficulty"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	server := flag.String("server", "http://localhost:8080", "后端地址")
	scenario := flag.String("scenario", "cold-calling", "场景 ID")
	difficulty := flag.String("difficulty", "beginner", "难度: beginner 或 advanced")
	lines := flag.String("lines", "Hi, my name is Sam from Oak Realty.|Is now a good time?|What price are you hoping for?", "以 | 分隔的销售代表台词")
	timeout := flag.Duration("timeout", 45*time.Second, "整体超时时间")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sess, err := startSession(ctx, *server, *scenario, *difficulty)
	if err != nil {
		log.Fatalf("创建练习会话失败: %v", err)
	}
	log.Printf("练习会话已创建: id=%s scenario=%s difficulty=%s", sess.ID, sess.ScenarioID, sess.Difficulty)

	conn, err := dial(ctx, *server, sess.ID)
	if err != nil {
		log.Fatalf("WebSocket 连接失败: %v", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}

	p := &probe{conn: conn}
	p.send("activate", nil)
	p.send("toggle", nil)
	p.waitFor("capture")

	for _, line := range strings.Split(*lines, "|") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		log.Printf("> %s", line)
		p.send("transcript", map[string]any{"text": line, "isFinal": true})
		reply := p.waitFor("reply")
		log.Printf("< %s", textOf(reply))
	}

	p.send("toggle", nil)
	p.send("deactivate", nil)

	metrics, err := endSession(ctx, *server, sess.ID)
	if err != nil {
		log.Fatalf("结束会话失败: %v", err)
	}
	log.Printf("会话指标: %s", metrics)
}

type probe struct {
	conn *websocket.Conn
}

func (p *probe) send(msgType string, data any) {
	msg := map[string]any{"type": msgType, "timestamp": time.Now().UnixMilli()}
	if data != nil {
		msg["data"] = data
	}
	if err := p.conn.WriteJSON(msg); err != nil {
		log.Fatalf("发送 %s 失败: %v", msgType, err)
	}
}

// waitFor 读取帧直到出现指定类型；期间像浏览器一样确认 speak 帧。
func (p *probe) waitFor(msgType string) frame {
	for {
		var f frame
		if err := p.conn.ReadJSON(&f); err != nil {
			log.Fatalf("等待 %s 帧失败: %v", msgType, err)
		}

		switch f.Type {
		case "speak":
			var speak struct {
				ID   string `json:"id"`
				Text string `json:"text"`
			}
			if err := json.Unmarshal(f.Data, &speak); err == nil {
				log.Printf("[speak] %s", speak.Text)
				p.send("spoken", map[string]string{"id": speak.ID})
			}
		case "error":
			log.Printf("[error] %s", string(f.Data))
		case "state":
			log.Printf("[state] %s", string(f.Data))
		}

		if f.Type == msgType {
			return f
		}
	}
}

func textOf(f frame) string {
	var payload struct {
		Text string `json:"text"`
	}
	_ = json.Unmarshal(f.Data, &payload)
	return payload.Text
}

func startSession(ctx context.Context, server, scenario, difficulty string) (session, error) {
	var sess session
	err := postJSON(ctx, server+"/api/practice/session/start", map[string]string{
		"scenarioId": scenario,
		"difficulty": difficulty,
	}, &sess)
	return sess, err
}

func endSession(ctx context.Context, server, sessionID string) (string, error) {
	var metrics map[string]any
	if err := postJSON(ctx, server+"/api/practice/session/end", map[string]string{"sessionId": sessionID}, &metrics); err != nil {
		return "", err
	}
	raw, _ := json.Marshal(metrics)
	return string(raw), nil
}

func postJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr utils.ErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s: status %d: %s", endpoint, resp.StatusCode, apiErr.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func dial(ctx context.Context, server, sessionID string) (*websocket.Conn, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/practice/ws/" + sessionID

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	return conn, err
}
