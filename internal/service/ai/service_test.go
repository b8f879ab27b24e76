package ai

import (
	"context"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
)

type recordingModel struct {
	mu    sync.Mutex
	input []*schema.Message
	reply string
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.input = input
	m.mu.Unlock()
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *recordingModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *recordingModel) BindTools([]*schema.ToolInfo) error {
	return nil
}

func TestEchoReply(t *testing.T) {
	got, err := Echo{}.Reply(context.Background(), ReplyRequest{Difficulty: practice.Advanced, Utterance: " hello "})
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if got != "AI Response (advanced mode): hello" {
		t.Fatalf("unexpected echo: %q", got)
	}
}

func TestEchoDefaultsToBeginner(t *testing.T) {
	got, err := Echo{}.Reply(context.Background(), ReplyRequest{Utterance: "hi"})
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if got != "AI Response (beginner mode): hi" {
		t.Fatalf("unexpected echo: %q", got)
	}
}

func TestBuildSystemPromptIncludesScenarioAndKnowledge(t *testing.T) {
	scenario := practice.Seed()[2]
	prompt := BuildSystemPrompt(scenario, practice.Advanced, "3 bed, 2 bath, roof replaced in 2019")

	for _, want := range []string{scenario.Title, scenario.CustomerProfile, "Advanced", "roof replaced in 2019"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildSystemPromptTruncatesKnowledgeOnRuneBoundary(t *testing.T) {
	// the limit lands in the middle of the two-byte "é"
	knowledge := strings.Repeat("a", knowledgeLimit-1) + "é and more"
	prompt := BuildSystemPrompt(practice.Seed()[0], practice.Beginner, knowledge)

	if !utf8.ValidString(prompt) {
		t.Fatal("prompt contains invalid UTF-8")
	}
	if strings.Contains(prompt, "and more") {
		t.Fatal("knowledge beyond the limit must be dropped")
	}

	if got := truncateUTF8("héllo", 2); got != "h" {
		t.Fatalf("truncateUTF8 = %q", got)
	}
	if got := truncateUTF8("short", 10); got != "short" {
		t.Fatalf("truncateUTF8 = %q", got)
	}
}

func TestBuildHistoryMessagesKeepsTail(t *testing.T) {
	var messages []practice.Message
	for i := 0; i < 6; i++ {
		speaker := practice.SpeakerRep
		if i%2 == 1 {
			speaker = practice.SpeakerCustomer
		}
		messages = append(messages, practice.Message{Speaker: speaker, Text: string(rune('a' + i))})
	}

	history := buildHistoryMessages(messages, 4)
	if len(history) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(history))
	}
	if history[0].Content != "c" || history[0].Role != schema.User {
		t.Fatalf("unexpected first history message: %+v", history[0])
	}
	if history[3].Role != schema.Assistant {
		t.Fatalf("expected assistant last, got %s", history[3].Role)
	}
}

func TestServiceReplyRunsChain(t *testing.T) {
	ctx := context.Background()
	fake := &recordingModel{reply: "  Who is this?  "}

	svc, err := NewServiceWithModel(ctx, fake, 10)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}

	scenario := practice.Seed()[0]
	got, err := svc.Reply(ctx, ReplyRequest{
		SessionID:  "s1",
		Scenario:   scenario,
		Difficulty: practice.Beginner,
		History: []practice.Message{
			{Speaker: practice.SpeakerRep, Text: "Hello"},
			{Speaker: practice.SpeakerCustomer, Text: "Hi"},
		},
		Utterance: "Is this the owner of 12 Oak Street?",
	})
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if got != "Who is this?" {
		t.Fatalf("unexpected reply: %q", got)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.input) != 4 {
		t.Fatalf("expected system + 2 history + query, got %d", len(fake.input))
	}
	if fake.input[0].Role != schema.System || !strings.Contains(fake.input[0].Content, scenario.Title) {
		t.Fatalf("unexpected system message: %+v", fake.input[0])
	}
	if last := fake.input[3]; last.Role != schema.User || last.Content != "Is this the owner of 12 Oak Street?" {
		t.Fatalf("unexpected query message: %+v", last)
	}
}
