package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jsphweid/chordcoach/chord"
	"github.com/jsphweid/chordcoach/model"
)

var inversionNames = []string{"root position", "1st inversion", "2nd inversion", "3rd inversion"}

func inversionName(i int) string {
	if i >= 0 && i < len(inversionNames) {
		return inversionNames[i]
	}
	return fmt.Sprintf("inversion %d", i)
}

// RenderTask prints the chord the player should play next, e.g.
// "[3/10] Play: E minor (1st inversion)".
func RenderTask(task model.PracticeTask, index, total int) string {
	name := task.Root + " " + task.TemplateName
	if task.RequireInversion {
		name += " (" + inversionName(task.TargetInversion) + ")"
	}
	progress := StyleMuted.Render(fmt.Sprintf("[%d/%d]", index+1, total))
	return fmt.Sprintf("%s Play: %s", progress, StyleHeader.Render(name))
}

// DescribeMatch names a detected chord including its voicing and any
// extra or missing notes.
func DescribeMatch(m *model.ChordMatch) string {
	if m == nil {
		return "no chord recognised"
	}
	desc := m.ChordRoot + " " + m.TemplateName
	if m.Inversion > 0 {
		desc += fmt.Sprintf(" (%s, %s in the bass)", inversionName(m.Inversion), m.Root)
	}
	var notes []string
	if m.HasExtraNotes {
		notes = append(notes, "extra notes")
	}
	if m.HasOmittedNotes {
		notes = append(notes, "missing notes")
	}
	if len(notes) > 0 {
		desc += " with " + strings.Join(notes, " and ")
	}
	return desc
}

func RenderAttempt(a model.AttemptResult, played []int) string {
	switch {
	case a.Skipped:
		return StyleWarning.Render("Skipped")
	case a.Correct:
		return fmt.Sprintf("%s %s %s",
			StyleSuccess.Render("Correct!"),
			DescribeMatch(a.Detected),
			StyleMuted.Render(fmt.Sprintf("%.0f%% in %s", a.Confidence*100, a.Elapsed.Round(10*time.Millisecond))))
	}
	var names []string
	for _, n := range played {
		names = append(names, chord.NoteName(n))
	}
	return fmt.Sprintf("%s heard %s %s",
		StyleError.Render("Not quite:"),
		DescribeMatch(a.Detected),
		StyleMuted.Render("("+strings.Join(names, " ")+")"))
}

func RenderStats(s model.SessionStats) string {
	t := NewTable("Metric", "Value")
	t.AddRow("Chords", fmt.Sprintf("%d", s.Total))
	t.AddRow("Correct", fmt.Sprintf("%d", s.Correct))
	t.AddRow("Skipped", fmt.Sprintf("%d", s.Skipped))
	t.AddRow("Accuracy", fmt.Sprintf("%.0f%%", s.Accuracy))
	t.AddRow("Average confidence", fmt.Sprintf("%.0f%%", s.AverageConfidence*100))
	t.AddRow("Score", fmt.Sprintf("%d", s.Score))
	t.AddRow("Best streak", fmt.Sprintf("%d", s.MaxStreak))
	t.AddRow("Time", s.Elapsed.Round(time.Second).String())
	return StyleHeader.Render("Session complete") + "\n" + t.Render()
}
