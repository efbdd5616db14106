package chord

import (
	"fmt"
	"strings"

	"github.com/jsphweid/chordcoach/model"
	"golang.org/x/exp/slices"
)

// Confidences are kept in hundredths so that ties compare exactly.
const (
	exactScore     = 100
	inversionScore = 95
	subsetScore    = 60
	supersetScore  = 70
	perNoteScore   = 10
)

type candidate struct {
	template  string
	score     int
	inversion int
	// rootOffset is the template root's distance above the bass pitch class.
	rootOffset int
	extra      bool
	omitted    bool
}

// CreateChordKey renders notes in ascending order, e.g. "60-64-67". The
// input is left untouched.
func CreateChordKey(notes []int) string {
	sorted := slices.Clone(notes)
	slices.Sort(sorted)
	parts := make([]string, len(sorted))
	for i, note := range sorted {
		parts[i] = fmt.Sprintf("%v", note)
	}
	return strings.Join(parts, "-")
}

// Fingerprint reduces notes to their pitch classes measured upwards from the
// pitch class of the lowest sounding note, sorted and without duplicates.
func Fingerprint(notes []int) []int {
	if len(notes) == 0 {
		return nil
	}
	bass := lowest(notes)
	var res []int
	for _, n := range notes {
		interval := ((n-bass)%12 + 12) % 12
		if !slices.Contains(res, interval) {
			res = append(res, interval)
		}
	}
	slices.Sort(res)
	return res
}

// Classify names the chord formed by an unordered collection of pitch
// numbers. It returns nil when fewer than two distinct pitch classes are
// present or when nothing in the catalog relates to the notes.
func Classify(notes []int) *model.ChordMatch {
	fp := Fingerprint(notes)
	if len(fp) < 2 {
		return nil
	}

	var best *candidate
	for _, t := range catalog {
		for _, c := range relate(t, fp) {
			if best == nil || c.score > best.score {
				c := c
				best = &c
			}
		}
	}
	if best == nil {
		return nil
	}

	bass := lowest(notes)
	return &model.ChordMatch{
		Root:            PitchClassName(bass),
		ChordRoot:       PitchClassName(bass + best.rootOffset),
		TemplateName:    best.template,
		Inversion:       best.inversion,
		Confidence:      float64(best.score) / 100,
		HasExtraNotes:   best.extra,
		HasOmittedNotes: best.omitted,
	}
}

// relate lists every way fp matches t, in priority order: exact, inversion,
// subset, superset.
func relate(t model.ChordTemplate, fp []int) []candidate {
	var res []candidate
	pattern := t.Intervals

	if slices.Equal(fp, pattern) {
		res = append(res, candidate{template: t.Name, score: exactScore})
	}

	for r := 1; r < len(pattern); r++ {
		if slices.Equal(fp, rotate(pattern, r)) {
			res = append(res, candidate{
				template:   t.Name,
				score:      inversionScore,
				inversion:  r,
				rootOffset: 12 - pattern[r],
			})
		}
	}

	if len(fp) >= 2 && len(fp) < len(pattern) && isSubset(fp, pattern) {
		score := subsetScore - perNoteScore*(len(pattern)-len(fp))
		if score > 0 {
			res = append(res, candidate{template: t.Name, score: score, omitted: true})
		}
	}

	if len(pattern) < len(fp) && isSubset(pattern, fp) {
		score := supersetScore - perNoteScore*(len(fp)-len(pattern))
		if score > 0 {
			res = append(res, candidate{template: t.Name, score: score, extra: true})
		}
	}

	return res
}

func isSubset(small, big []int) bool {
	for _, v := range small {
		if !slices.Contains(big, v) {
			return false
		}
	}
	return true
}

func lowest(notes []int) int {
	res := notes[0]
	for _, n := range notes[1:] {
		if n < res {
			res = n
		}
	}
	return res
}
