package session

import (
	"time"

	"github.com/jsphweid/chordcoach/model"
	"github.com/jsphweid/chordcoach/util"
)

// AttemptScore is what a correct attempt adds to the score.
func AttemptScore(a model.AttemptResult) int {
	if !a.Correct {
		return 0
	}
	return util.Round(a.Confidence * 100)
}

// ComputeStats derives session statistics from the attempt log. elapsed is
// passed through unchanged.
func ComputeStats(attempts []model.AttemptResult, elapsed time.Duration) model.SessionStats {
	stats := model.SessionStats{Total: len(attempts), Elapsed: elapsed}
	confidences := make([]float64, 0, len(attempts))
	for _, a := range attempts {
		confidences = append(confidences, a.Confidence)
		if a.Skipped {
			stats.Skipped++
		}
		if a.Correct {
			stats.Correct++
			stats.Score += AttemptScore(a)
			stats.Streak++
			if stats.Streak > stats.MaxStreak {
				stats.MaxStreak = stats.Streak
			}
		} else {
			stats.Streak = 0
		}
	}
	if stats.Total > 0 {
		stats.Accuracy = float64(stats.Correct) / float64(stats.Total) * 100
	}
	stats.AverageConfidence = util.Mean(confidences)
	return stats
}
