package practice

import (
	"fmt"
	"strings"
)

// Scenario describes a practice call the rep can rehearse.
type Scenario struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	WelcomeMessage  string `json:"welcomeMessage,omitempty"`
	CustomerProfile string `json:"customerProfile,omitempty"` // who the AI plays
}

// Difficulty selects how cooperative the simulated customer is.
type Difficulty string

const (
	Beginner Difficulty = "beginner"
	Advanced Difficulty = "advanced"
)

// ParseDifficulty accepts the two known levels, case-insensitively.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(raw))) {
	case Beginner:
		return Beginner, nil
	case Advanced:
		return Advanced, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", raw)
	}
}

// Label returns the capitalised name used in prompts and UI.
func (d Difficulty) Label() string {
	switch d {
	case Beginner:
		return "Beginner"
	case Advanced:
		return "Advanced"
	default:
		return string(d)
	}
}

// Seed provides the built-in practice scenarios.
func Seed() []Scenario {
	return []Scenario{
		{
			ID:              "cold-calling",
			Name:            "Cold Calling Practice",
			Title:           "Cold Calling Practice",
			Description:     "Practice cold calling with AI-powered voice interactions.",
			WelcomeMessage:  "Welcome to cold calling practice. Press spacebar to begin.",
			CustomerProfile: "A homeowner who did not expect the call, is busy, and has not decided whether to sell.",
		},
		{
			ID:              "first-time",
			Name:            "First-Time Sellers",
			Title:           "First-Time Sellers",
			Description:     "Practice with inexperienced home sellers who need guidance through the process.",
			WelcomeMessage:  "Welcome to first-time seller practice. Press spacebar to begin.",
			CustomerProfile: "A first-time seller who is nervous about the process and asks many basic questions.",
		},
		{
			ID:              "investment",
			Name:            "Investment Property Owners",
			Title:           "Investment Property Owners",
			Description:     "Work with experienced investors focused on ROI and market analysis.",
			WelcomeMessage:  "Welcome to investment property practice. Press spacebar to begin.",
			CustomerProfile: "An experienced investor who owns several rentals and pushes back with numbers and ROI.",
		},
	}
}

// Pillar is one of the topics a good qualification call must cover.
type Pillar struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"-"`
}

// Pillars returns the conversation pillars tracked during a call.
func Pillars() []Pillar {
	return []Pillar{
		{
			ID:          "vacancy",
			Name:        "Vacancy",
			Description: "Current living situation and moving timeline",
			Keywords:    []string{"live", "living", "vacant", "empty", "tenant", "occupied", "move out", "moving"},
		},
		{
			ID:          "condition",
			Name:        "Condition",
			Description: "Property condition and needed repairs",
			Keywords:    []string{"condition", "repair", "roof", "kitchen", "renovat", "update", "fix", "foundation"},
		},
		{
			ID:          "motivation",
			Name:        "Motivation",
			Description: "Reasons for selling and urgency level",
			Keywords:    []string{"why", "reason", "motivat", "relocat", "divorce", "inherit", "downsiz"},
		},
		{
			ID:          "price",
			Name:        "Price",
			Description: "Price expectations and market value",
			Keywords:    []string{"price", "worth", "value", "offer", "number", "owe", "mortgage", "asking"},
		},
		{
			ID:          "timeframe",
			Name:        "Timeframe",
			Description: "Desired timeline for selling",
			Keywords:    []string{"when", "timeline", "timeframe", "soon", "month", "weeks", "deadline", "close by"},
		},
	}
}

// ScriptStep is a checkpoint of the call script.
type ScriptStep struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	Keywords []string `json:"-"`
}

// Script returns the default call script used for adherence scoring.
func Script() []ScriptStep {
	return []ScriptStep{
		{ID: "introduction", Prompt: "Introduce yourself and your company", Keywords: []string{"my name is", "this is", "i'm calling from", "i am calling from", "i work with"}},
		{ID: "permission", Prompt: "Ask for a moment of their time", Keywords: []string{"do you have a minute", "is now a good time", "quick question", "a moment", "bad time"}},
		{ID: "discovery", Prompt: "Ask about the property", Keywords: []string{"tell me about", "the property", "the house", "the home"}},
		{ID: "qualification", Prompt: "Cover motivation, price and timeline", Keywords: []string{"why are you", "what price", "how soon", "when would you"}},
		{ID: "next-step", Prompt: "Agree on a next step", Keywords: []string{"schedule", "appointment", "follow up", "call you back", "send you", "meet"}},
	}
}
