package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/callcoach/backend/internal/config"
	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
)

// Service plays the customer with an LLM chain.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	historyLimit int
}

// NewService creates the customer chain on top of the configured ark model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg.HistoryLimit)
}

// NewServiceWithModel compiles the prompt chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, historyLimit int) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile customer chain: %w", err)
	}

	if historyLimit < 1 {
		historyLimit = 10
	}

	return &Service{chain: runnable, historyLimit: historyLimit}, nil
}

// Reply implements Generator.
func (s *Service) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	response, err := s.chain.Invoke(ctx, s.buildChainInput(req))
	if err != nil {
		return "", fmt.Errorf("failed to run customer chain: %w", err)
	}

	content := strings.TrimSpace(response.Content)
	log.Printf("[ai] generated reply for session=%s, scenario=%s, length=%d", req.SessionID, req.Scenario.ID, len(content))
	return content, nil
}

func (s *Service) buildChainInput(req ReplyRequest) map[string]any {
	return map[string]any{
		"system":  BuildSystemPrompt(req.Scenario, req.Difficulty, req.Knowledge),
		"history": buildHistoryMessages(req.History, s.historyLimit),
		"query":   req.Utterance,
	}
}

func buildHistoryMessages(messages []practice.Message, limit int) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > limit {
		startIdx = len(messages) - limit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Speaker {
		case practice.SpeakerRep:
			history = append(history, schema.UserMessage(msg.Text))
		case practice.SpeakerCustomer:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return history
}
