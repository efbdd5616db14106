package model

import "time"

type SessionState string

const (
	Idle            SessionState = "idle"
	WaitingForInput SessionState = "waiting_for_input"
	Evaluating      SessionState = "evaluating"
	SuccessFeedback SessionState = "success_feedback"
	FailFeedback    SessionState = "fail_feedback"
	Paused          SessionState = "paused"
	Completed       SessionState = "completed"
)

type PracticeTask struct {
	ID               string `json:"id"`
	Root             string `json:"root"`
	TemplateName     string `json:"template_name"`
	RequireInversion bool   `json:"require_inversion"`
	// TargetInversion of 0 leaves the voicing unconstrained.
	TargetInversion int `json:"target_inversion"`
}

type AttemptResult struct {
	TaskID     string        `json:"task_id"`
	Detected   *ChordMatch   `json:"detected"`
	Correct    bool          `json:"correct"`
	Skipped    bool          `json:"skipped"`
	Confidence float64       `json:"confidence"`
	Timestamp  time.Time     `json:"timestamp"`
	Elapsed    time.Duration `json:"elapsed"`
}

type SessionStats struct {
	Total             int           `json:"total"`
	Correct           int           `json:"correct"`
	Skipped           int           `json:"skipped"`
	Score             int           `json:"score"`
	Streak            int           `json:"streak"`
	MaxStreak         int           `json:"max_streak"`
	Accuracy          float64       `json:"accuracy"`
	AverageConfidence float64       `json:"average_confidence"`
	Elapsed           time.Duration `json:"elapsed"`
}
