package model

type ClassifyRequestBody struct {
	Notes Notes `json:"notes"`
}

type ClassifyResponse struct {
	Key   string      `json:"key"`
	Match *ChordMatch `json:"match"`
}

type MidiRequestBody struct {
	Bytes []int `json:"bytes"`
}

type SessionResponse struct {
	State       SessionState  `json:"state"`
	Task        *PracticeTask `json:"task"`
	TaskIndex   int           `json:"task_index"`
	TaskCount   int           `json:"task_count"`
	Score       int           `json:"score"`
	Streak      int           `json:"streak"`
	ActiveNotes Notes         `json:"active_notes"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
