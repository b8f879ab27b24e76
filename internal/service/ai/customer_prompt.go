package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
)

// knowledgeLimit 限制注入提示词的资料长度，避免超出上下文窗口。
const knowledgeLimit = 4000

var difficultyHints = map[practice.Difficulty][]string{
	practice.Beginner: {
		"Be polite and reasonably open to the conversation",
		"Answer questions about the property when asked directly",
		"Raise at most one mild objection",
	},
	practice.Advanced: {
		"Be skeptical and guarded; you get calls like this every week",
		"Push back on price and question the caller's credibility",
		"Only share details once the caller has built some rapport",
		"End the call if the caller is pushy or rambles",
	},
}

var conversationRules = []string{
	"Stay in character as the property owner at all times",
	"Never coach the caller or mention that this is a practice session",
	"Reply in one to three short spoken sentences",
	"Do not use lists, markdown or emojis; the reply is read aloud",
}

// BuildSystemPrompt renders the customer persona for a scenario.
func BuildSystemPrompt(scenario practice.Scenario, difficulty practice.Difficulty, knowledge string) string {
	profile := scenario.CustomerProfile
	if profile == "" {
		profile = "A homeowner receiving a call from a real estate agent."
	}

	hints := difficultyHints[difficulty]
	if len(hints) == 0 {
		hints = difficultyHints[practice.Beginner]
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, `You are role-playing a property owner on a phone call with a real estate sales rep.

Scenario: %s
Who you are: %s
Difficulty: %s

Behaviour:
- %s

Rules:
- %s`,
		scenario.Title,
		profile,
		difficulty.Label(),
		strings.Join(hints, "\n- "),
		strings.Join(conversationRules, "\n- "),
	)

	if knowledge = strings.TrimSpace(knowledge); knowledge != "" {
		knowledge = truncateUTF8(knowledge, knowledgeLimit)
		builder.WriteString("\n\nFacts about your property (use them consistently):\n")
		builder.WriteString(knowledge)
	}

	return builder.String()
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
