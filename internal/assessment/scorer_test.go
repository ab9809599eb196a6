package assessment

import (
	"math"
	"testing"

	"github.com/burnoutcheck/backend/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answersWithSum(sum int) map[int]int {
	a := make(map[int]int, QuestionCount)
	for q := 1; q <= QuestionCount; q++ {
		v := sum
		if v > MaxAnswerValue {
			v = MaxAnswerValue
		}
		a[q] = v
		sum -= v
	}
	return a
}

func TestScoreEveryRawSum(t *testing.T) {
	for raw := 0; raw <= MaxRawScore; raw++ {
		res, err := Score(answersWithSum(raw))
		require.NoError(t, err)

		want := int(math.Round(float64(raw) / 21 * 100))
		assert.Equal(t, raw, res.Raw)
		assert.Equal(t, want, res.Score, "raw %d", raw)
		assert.GreaterOrEqual(t, res.Score, 0)
		assert.LessOrEqual(t, res.Score, 100)
		assert.Equal(t, Classify(res.Score), res.Level)
		assert.NotEmpty(t, res.Preview)
		assert.Len(t, res.Labels, QuestionCount)
	}
}

func TestScoreExamples(t *testing.T) {
	tests := []struct {
		raw   int
		score int
		level Level
	}{
		{0, 0, LevelLow},
		{7, 33, LevelLow},
		{8, 38, LevelModerate},
		{13, 62, LevelModerate},
		{14, 67, LevelHigh},
		{21, 100, LevelHigh},
	}
	for _, tt := range tests {
		res, err := Score(answersWithSum(tt.raw))
		require.NoError(t, err)
		assert.Equal(t, tt.score, res.Score)
		assert.Equal(t, tt.level, res.Level)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  Level
	}{
		{0, LevelLow},
		{33, LevelLow},
		{34, LevelModerate},
		{66, LevelModerate},
		{67, LevelHigh},
		{100, LevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %d", tt.score)
	}
}

func TestScoreLabels(t *testing.T) {
	res, err := Score(map[int]int{1: 0, 2: 1, 3: 2, 4: 3, 5: 0, 6: 1, 7: 3})
	require.NoError(t, err)

	assert.Equal(t, "Never", res.Labels[1])
	assert.Equal(t, "Sometimes", res.Labels[2])
	assert.Equal(t, "Low", res.Labels[3])
	assert.Equal(t, "Always", res.Labels[4])
	assert.Equal(t, "Very satisfied", res.Labels[5])
	assert.Equal(t, "Good", res.Labels[6])
	assert.Equal(t, "Never", res.Labels[7])
}

func TestScoreRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		answers map[int]int
	}{
		{"empty", map[int]int{}},
		{"six answers", map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0}},
		{"eight answers", map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0, 7: 0, 8: 0}},
		{"unknown question", map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0, 9: 0}},
		{"value too high", map[int]int{1: 4, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0, 7: 0}},
		{"negative value", map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0, 7: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(tt.answers)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
		})
	}
}
