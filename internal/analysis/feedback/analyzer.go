package feedback

import (
	"strings"
	"unicode"

	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
)

// Decision is the coaching verdict for one rep utterance.
type Decision struct {
	Type    practice.FeedbackType
	Score   int
	Message string
}

type bucket struct {
	phrases []string
	words   []string
}

var keywordBuckets = map[practice.FeedbackType]bucket{
	practice.FeedbackPositive: {
		phrases: []string{
			"i understand", "that makes sense", "i appreciate", "thank you", "tell me more", "how do you feel",
			"what would", "help you", "walk me through", "sounds like", "if i heard you", "no pressure",
		},
		words: []string{"thanks", "great", "absolutely", "understand", "appreciate"},
	},
	practice.FeedbackWarning: {
		phrases: []string{"you know", "kind of", "sort of", "i guess", "i mean", "to be honest"},
		words:   []string{"um", "uh", "erm", "basically", "literally", "maybe", "actually"},
	},
	practice.FeedbackNegative: {
		phrases: []string{
			"you have to", "you need to", "trust me", "take it or leave it", "final offer", "calm down",
			"you're wrong", "you are wrong", "not my problem", "listen to me",
		},
		words: []string{"obviously", "whatever", "stupid", "ridiculous", "cheap"},
	},
}

const (
	questionBoost  = 2
	monologueWords = 60
)

var messages = map[practice.FeedbackType]string{
	practice.FeedbackPositive: "Good rapport: you acknowledged the seller and kept the conversation open.",
	practice.FeedbackWarning:  "Watch the filler words and hedging; slow down and be direct.",
	practice.FeedbackNegative: "Too pushy: avoid pressuring or dismissing the seller.",
}

// Analyze grades a rep utterance with keyword heuristics.
func Analyze(utterance string) Decision {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return Decision{Type: practice.FeedbackWarning, Message: "No speech detected; speak clearly into the microphone."}
	}

	words := tokenize(text)
	scores := scoreText(text, words)

	switch {
	case scores[practice.FeedbackNegative] > 0 && scores[practice.FeedbackNegative] >= scores[practice.FeedbackPositive]:
		return decide(practice.FeedbackNegative, scores)
	case len(words) > monologueWords:
		return Decision{
			Type:    practice.FeedbackWarning,
			Score:   len(words),
			Message: "Keep your turns short and let the seller talk.",
		}
	case scores[practice.FeedbackWarning] > scores[practice.FeedbackPositive]:
		return decide(practice.FeedbackWarning, scores)
	case scores[practice.FeedbackPositive] > 0:
		return decide(practice.FeedbackPositive, scores)
	default:
		return Decision{
			Type:    practice.FeedbackWarning,
			Message: "Try an open-ended question to keep the seller talking.",
		}
	}
}

func decide(label practice.FeedbackType, scores map[practice.FeedbackType]int) Decision {
	return Decision{Type: label, Score: scores[label], Message: messages[label]}
}

func scoreText(text string, words []string) map[practice.FeedbackType]int {
	normalized := strings.ToLower(text)
	present := make(map[string]struct{}, len(words))
	for _, w := range words {
		present[w] = struct{}{}
	}

	scores := make(map[practice.FeedbackType]int)
	for label, b := range keywordBuckets {
		for _, phrase := range b.phrases {
			if strings.Contains(normalized, phrase) {
				scores[label] += 3
			}
		}
		for _, word := range b.words {
			if _, ok := present[word]; ok {
				scores[label] += 2
			}
		}
	}

	if questions := strings.Count(text, "?"); questions > 0 {
		scores[practice.FeedbackPositive] += questions * questionBoost
	}
	return scores
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// DetectPillars returns the IDs of the pillars an utterance touches.
func DetectPillars(text string) []string {
	normalized := strings.ToLower(text)
	var hits []string
	for _, pillar := range practice.Pillars() {
		if containsAny(normalized, pillar.Keywords) {
			hits = append(hits, pillar.ID)
		}
	}
	return hits
}

// DetectSteps returns the IDs of the script steps an utterance covers.
func DetectSteps(text string) []string {
	normalized := strings.ToLower(text)
	var hits []string
	for _, step := range practice.Script() {
		if containsAny(normalized, step.Keywords) {
			hits = append(hits, step.ID)
		}
	}
	return hits
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
