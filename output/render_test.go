package output

import (
	"os"
	"testing"
	"time"

	"github.com/jsphweid/chordcoach/model"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	SetNoColor(true)
	os.Exit(m.Run())
}

func TestRenderTask(t *testing.T) {
	assert.Equal(t, "[1/10] Play: C major",
		RenderTask(model.PracticeTask{Root: "C", TemplateName: "major"}, 0, 10))
	assert.Equal(t, "[4/10] Play: E minor (2nd inversion)",
		RenderTask(model.PracticeTask{Root: "E", TemplateName: "minor", RequireInversion: true, TargetInversion: 2}, 3, 10))
}

func TestDescribeMatch(t *testing.T) {
	tests := []struct {
		match *model.ChordMatch
		want  string
	}{
		{nil, "no chord recognised"},
		{&model.ChordMatch{Root: "C", ChordRoot: "C", TemplateName: "major"}, "C major"},
		{&model.ChordMatch{Root: "E", ChordRoot: "C", TemplateName: "major", Inversion: 1}, "C major (1st inversion, E in the bass)"},
		{&model.ChordMatch{Root: "C", ChordRoot: "C", TemplateName: "major", HasExtraNotes: true}, "C major with extra notes"},
		{&model.ChordMatch{Root: "C", ChordRoot: "C", TemplateName: "major7", HasOmittedNotes: true}, "C major7 with missing notes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DescribeMatch(tt.match))
	}
}

func TestRenderAttempt(t *testing.T) {
	correct := model.AttemptResult{
		Detected:   &model.ChordMatch{Root: "G", ChordRoot: "G", TemplateName: "major"},
		Correct:    true,
		Confidence: 1,
		Elapsed:    1234 * time.Millisecond,
	}
	assert.Equal(t, "Correct! G major 100% in 1.23s", RenderAttempt(correct, []int{55, 59, 62}))

	wrong := model.AttemptResult{
		Detected: &model.ChordMatch{Root: "A", ChordRoot: "A", TemplateName: "minor"},
	}
	assert.Equal(t, "Not quite: heard A minor (A3 C4 E4)", RenderAttempt(wrong, []int{57, 60, 64}))

	assert.Equal(t, "Skipped", RenderAttempt(model.AttemptResult{Skipped: true}, nil))
}

func TestRenderStats(t *testing.T) {
	out := RenderStats(model.SessionStats{
		Total:             4,
		Correct:           3,
		Score:             295,
		MaxStreak:         2,
		Accuracy:          75,
		AverageConfidence: 0.7375,
		Elapsed:           95 * time.Second,
	})
	assert.Contains(t, out, "Session complete")
	assert.Contains(t, out, "Accuracy            75%")
	assert.Contains(t, out, "Score               295")
	assert.Contains(t, out, "Time                1m35s")
}

func TestTableAlignsColumns(t *testing.T) {
	tbl := NewTable("Key", "Chord")
	tbl.AddRow("60-64-67", "C major")
	tbl.AddRow("64-67-72", "C major (1st inversion)", "ignored")

	assert.Equal(t, ""+
		"Key       Chord\n"+
		"────────  ───────────────────────\n"+
		"60-64-67  C major\n"+
		"64-67-72  C major (1st inversion)\n", tbl.Render())
}
