package session

import (
	"github.com/google/uuid"
	"github.com/jsphweid/chordcoach/chord"
	"github.com/jsphweid/chordcoach/model"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// GenerateTasks draws n tasks from the named tier. Roots and templates are
// drawn independently per task; tiers that require inversions ask for a
// specific inversion about half of the time, limited to inversions that
// classify back to the requested chord. Task ids come from rng too, so
// a seeded rng yields the same sequence every time.
func GenerateTasks(tierName string, n int, rng *rand.Rand) ([]model.PracticeTask, error) {
	tier, err := LookupTier(tierName)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "session length must be at least 1, got %d", n)
	}

	tasks := make([]model.PracticeTask, 0, n)
	for i := 0; i < n; i++ {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, errors.Wrap(err, "could not create task id")
		}
		task := model.PracticeTask{
			ID:           id.String(),
			Root:         tier.Roots[rng.Intn(len(tier.Roots))],
			TemplateName: tier.Templates[rng.Intn(len(tier.Templates))],
		}
		if tier.RequireInversions && rng.Intn(2) == 1 {
			tmpl, ok := chord.Lookup(task.TemplateName)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidConfig, "tier %q names unknown template %q", tier.Name, task.TemplateName)
			}
			if valid := chord.Inversions(tmpl); len(valid) > 0 {
				task.RequireInversion = true
				task.TargetInversion = valid[rng.Intn(len(valid))]
			}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Matches reports whether a classification satisfies a task. A nil match
// never does.
func Matches(task model.PracticeTask, m *model.ChordMatch, requirePerfect bool) bool {
	if m == nil {
		return false
	}
	if m.ChordRoot != task.Root || m.TemplateName != task.TemplateName {
		return false
	}
	if task.RequireInversion && task.TargetInversion != 0 && m.Inversion != task.TargetInversion {
		return false
	}
	if requirePerfect && m.Confidence < 1 {
		return false
	}
	return true
}
