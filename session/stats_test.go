package session

import (
	"testing"
	"time"

	"github.com/jsphweid/chordcoach/model"
	"github.com/stretchr/testify/assert"
)

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil, 0)
	assert.Equal(t, model.SessionStats{}, stats)
}

func TestComputeStats(t *testing.T) {
	attempts := []model.AttemptResult{
		{Correct: true, Confidence: 1},
		{Correct: true, Confidence: 0.95},
		{Correct: false, Confidence: 0.6},
		{Skipped: true},
		{Correct: true, Confidence: 0.6},
	}

	stats := ComputeStats(attempts, time.Minute)

	assert := assert.New(t)
	assert.Equal(5, stats.Total)
	assert.Equal(3, stats.Correct)
	assert.Equal(1, stats.Skipped)
	assert.Equal(100+95+60, stats.Score)
	assert.Equal(1, stats.Streak)
	assert.Equal(2, stats.MaxStreak)
	assert.InDelta(60.0, stats.Accuracy, 1e-9)
	assert.InDelta((1+0.95+0.6+0+0.6)/5, stats.AverageConfidence, 1e-9)
	assert.Equal(time.Minute, stats.Elapsed)
}
