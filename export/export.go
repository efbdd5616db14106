// Package export writes finished practice sessions somewhere durable.
package export

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/jsphweid/chordcoach/model"
	"github.com/jsphweid/chordcoach/session"
	"github.com/pkg/errors"
)

// Report is everything worth keeping about one session.
type Report struct {
	SessionID  string                `json:"session_id"`
	Difficulty string                `json:"difficulty"`
	ExportedAt time.Time             `json:"exported_at"`
	Tasks      []model.PracticeTask  `json:"tasks"`
	Attempts   []model.AttemptResult `json:"attempts"`
	Stats      model.SessionStats    `json:"stats"`
}

func NewReport(id string, e *session.Engine, at time.Time) Report {
	return Report{
		SessionID:  id,
		Difficulty: e.Options().Difficulty,
		ExportedAt: at,
		Tasks:      e.Tasks(),
		Attempts:   e.Attempts(),
		Stats:      e.Stats(),
	}
}

// task finds the task an attempt answered.
func (r Report) task(id string) (model.PracticeTask, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.PracticeTask{}, false
}

type Exporter interface {
	Export(ctx context.Context, r Report) error
}

// JSONExporter writes the report as a single JSON document.
type JSONExporter struct {
	W      io.Writer
	Indent bool
}

func (j JSONExporter) Export(_ context.Context, r Report) error {
	enc := json.NewEncoder(j.W)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return errors.Wrapf(err, "encoding session %s", r.SessionID)
	}
	return nil
}
