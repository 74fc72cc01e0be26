package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  Level
	}{
		{0, LevelLow},
		{7, LevelLow},
		{8, LevelMedium},
		{14, LevelMedium},
		{15, LevelHigh},
		{19, LevelHigh},
		{20, LevelCritical},
		{25, LevelCritical},
		{-3, LevelLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.score), "score %d", tc.score)
	}
}

func TestClassifyMonotonic(t *testing.T) {
	prev := Classify(0).Rank()
	for score := 1; score <= 40; score++ {
		rank := Classify(score).Rank()
		assert.GreaterOrEqual(t, rank, prev, "score %d", score)
		prev = rank
	}
}

func TestScoreGrid(t *testing.T) {
	for p := MinRating; p <= MaxRating; p++ {
		for s := MinRating; s <= MaxRating; s++ {
			assert.Equal(t, p*s, Score(p, s))
		}
	}

	assert.Equal(t, Rating{Probability: 3, Severity: 3, Score: 9, Level: LevelMedium}, Rate(3, 3))
	assert.Equal(t, Rating{Probability: 5, Severity: 5, Score: 25, Level: LevelCritical}, Rate(5, 5))
	assert.Equal(t, Rating{Probability: 1, Severity: 1, Score: 1, Level: LevelLow}, Rate(1, 1))
}

func TestRateOutOfRangeDoesNotFail(t *testing.T) {
	rating := Rate(6, 6)
	assert.Equal(t, 36, rating.Score)
	assert.Equal(t, LevelCritical, rating.Level)
	assert.False(t, InRange(6))
	assert.True(t, InRange(1))
	assert.False(t, InRange(0))
}

func TestMatrix(t *testing.T) {
	grid := Matrix()
	assert.Len(t, grid, MaxRating)
	for i, row := range grid {
		assert.Len(t, row, MaxRating)
		for j, cell := range row {
			assert.Equal(t, i+1, cell.Probability)
			assert.Equal(t, j+1, cell.Severity)
			assert.Equal(t, Classify(cell.Score), cell.Level)
		}
	}
	assert.Equal(t, LevelCritical, grid[4][4].Level)
}

func TestLevelValid(t *testing.T) {
	for _, level := range Levels {
		assert.True(t, level.Valid())
	}
	assert.False(t, Level("extreme").Valid())
	assert.Equal(t, -1, Level("extreme").Rank())
}

func TestThresholdsMatchClassify(t *testing.T) {
	for level, min := range Thresholds() {
		assert.Equal(t, level, Classify(min))
		assert.Less(t, Classify(min-1).Rank(), level.Rank())
	}
}
