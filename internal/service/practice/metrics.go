package practice

import (
	"math"
	"strings"

	"github.com/zhouzirui/callcoach/backend/internal/analysis/feedback"
	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
)

// wordsPerMinute 是估算说话时长时使用的平均语速。
const wordsPerMinute = 150

func computeMetrics(messages []practice.Message, notes []practice.Feedback) practice.Metrics {
	steps := make(map[string]struct{})
	pillars := make(map[string]struct{})
	words := 0

	for _, msg := range messages {
		if msg.Speaker != practice.SpeakerRep {
			continue
		}
		words += len(strings.Fields(msg.Text))
		for _, id := range feedback.DetectSteps(msg.Text) {
			steps[id] = struct{}{}
		}
		for _, id := range feedback.DetectPillars(msg.Text) {
			pillars[id] = struct{}{}
		}
	}

	return practice.Metrics{
		ScriptAdherence:  percent(len(steps), len(practice.Script())),
		PillarCompletion: percent(len(pillars), len(practice.Pillars())),
		SpeakingTime:     round1(float64(words) * 60 / wordsPerMinute),
		SuccessRate:      successRate(notes),
	}
}

// successRate counts positive feedback fully and warnings as half.
func successRate(notes []practice.Feedback) float64 {
	if len(notes) == 0 {
		return 0
	}

	var score float64
	for _, fb := range notes {
		switch fb.Type {
		case practice.FeedbackPositive:
			score++
		case practice.FeedbackWarning:
			score += 0.5
		}
	}
	return round1(score / float64(len(notes)) * 100)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
