// Package assessment scores the seven-question burnout questionnaire.
package assessment

import (
	"fmt"

	"github.com/burnoutcheck/backend/internal/apperr"
)

const (
	// QuestionCount is the number of questions that must be answered.
	QuestionCount = 7
	// MaxAnswerValue is the highest answer value of every question.
	MaxAnswerValue = 3
	// MaxRawScore is the sum of the highest answers.
	MaxRawScore = QuestionCount * MaxAnswerValue
)

// Level is the qualitative burnout classification.
type Level string

const (
	LevelLow      Level = "Low"
	LevelModerate Level = "Moderate"
	LevelHigh     Level = "High"
)

var previews = map[Level]string{
	LevelLow:      "You're managing well! Your burnout risk is low.",
	LevelModerate: "You're showing signs of moderate burnout.",
	LevelHigh:     "Your burnout risk is high. It's important to take action now.",
}

// Answer labels per question, indexed by answer value.
var answerLabels = map[int][]string{
	1: {"Never", "Sometimes", "Often", "Always"},
	2: {"Never", "Sometimes", "Often", "Always"},
	3: {"High and energized", "Moderate", "Low", "Very low or none"},
	4: {"Never", "Sometimes", "Often", "Always"},
	5: {"Very satisfied", "Somewhat satisfied", "Not very satisfied", "Not satisfied at all"},
	6: {"Excellent", "Good", "Poor", "Very poor"},
	7: {"Always", "Often", "Sometimes", "Never"},
}

// Questions lists the question texts in order, as used in the report prompt.
var Questions = [QuestionCount]string{
	"Mental exhaustion after work",
	"Thinking about work outside hours",
	"Morning motivation level",
	"Feeling overwhelmed by tasks",
	"Work-life balance satisfaction",
	"Sleep quality on workdays",
	"Sense of meaning in work",
}

// Result is the outcome of scoring one questionnaire.
type Result struct {
	Raw     int
	Score   int
	Level   Level
	Preview string
	Labels  map[int]string
}

// Score validates answers and computes score, level and answer labels.
// answers maps question id (1..7) to answer value (0..3).
func Score(answers map[int]int) (Result, error) {
	if len(answers) != QuestionCount {
		return Result{}, apperr.ValidationFailed(fmt.Sprintf("All %d questions must be answered", QuestionCount))
	}

	raw := 0
	labels := make(map[int]string, QuestionCount)
	for q, v := range answers {
		label, err := Label(q, v)
		if err != nil {
			return Result{}, err
		}
		labels[q] = label
		raw += v
	}

	score := ScoreFromRaw(raw)
	level := Classify(score)
	return Result{
		Raw:     raw,
		Score:   score,
		Level:   level,
		Preview: Preview(level),
		Labels:  labels,
	}, nil
}

// ScoreFromRaw maps a raw sum onto 0..100, rounding half up.
// 100*raw/21 is never exactly half an integer, so integer rounding is exact.
func ScoreFromRaw(raw int) int {
	return (200*raw + MaxRawScore) / (2 * MaxRawScore)
}

// Classify maps a score to its level: <=33 Low, 34..66 Moderate, >=67 High.
func Classify(score int) Level {
	switch {
	case score <= 33:
		return LevelLow
	case score <= 66:
		return LevelModerate
	default:
		return LevelHigh
	}
}

// Preview returns the fixed preview sentence of a level.
func Preview(level Level) string {
	return previews[level]
}

// Label returns the label of answer value for question q.
func Label(q, value int) (string, error) {
	labels, ok := answerLabels[q]
	if !ok {
		return "", apperr.ValidationFailed(fmt.Sprintf("Unknown question %d", q))
	}
	if value < 0 || value >= len(labels) {
		return "", apperr.ValidationFailed(fmt.Sprintf("Answer for question %d must be between 0 and %d", q, len(labels)-1))
	}
	return labels[value], nil
}
