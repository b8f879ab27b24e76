package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
)

// ReplyRequest carries everything a generator needs to answer one rep turn.
type ReplyRequest struct {
	SessionID  string
	Scenario   practice.Scenario
	Difficulty practice.Difficulty
	History    []practice.Message
	Utterance  string
	// Knowledge 是训练资料中当前房源文档的内容，可以为空。
	Knowledge string
}

// Generator produces the simulated customer's reply.
type Generator interface {
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

// Echo is the offline generator used when no model is configured.
type Echo struct{}

// Reply formats the utterance the same way the stub customer always has.
func (Echo) Reply(_ context.Context, req ReplyRequest) (string, error) {
	return echoText(req.Difficulty, req.Utterance), nil
}

// echoText renders "AI Response (<difficulty> mode): <text>".
func echoText(difficulty practice.Difficulty, text string) string {
	if difficulty == "" {
		difficulty = practice.Beginner
	}
	return fmt.Sprintf("AI Response (%s mode): %s", difficulty, strings.TrimSpace(text))
}
