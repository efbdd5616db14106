package chord

import (
	"fmt"

	"github.com/jsphweid/chordcoach/model"
	"golang.org/x/exp/slices"
)

// catalog order is the tie-break order for equally confident matches.
var catalog = []model.ChordTemplate{
	{Name: "major", Intervals: []int{0, 4, 7}},
	{Name: "minor", Intervals: []int{0, 3, 7}},
	{Name: "diminished", Intervals: []int{0, 3, 6}},
	{Name: "augmented", Intervals: []int{0, 4, 8}},
	{Name: "major7", Intervals: []int{0, 4, 7, 11}},
	{Name: "minor7", Intervals: []int{0, 3, 7, 10}},
	{Name: "dominant7", Intervals: []int{0, 4, 7, 10}},
	{Name: "diminished7", Intervals: []int{0, 3, 6, 9}},
	{Name: "sus2", Intervals: []int{0, 2, 7}},
	{Name: "sus4", Intervals: []int{0, 5, 7}},
	{Name: "major6", Intervals: []int{0, 4, 7, 9}},
	{Name: "minor6", Intervals: []int{0, 3, 7, 9}},
}

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Templates returns a copy of the template catalog in declaration order.
func Templates() []model.ChordTemplate {
	res := make([]model.ChordTemplate, len(catalog))
	for i, t := range catalog {
		res[i] = model.ChordTemplate{Name: t.Name, Intervals: slices.Clone(t.Intervals)}
	}
	return res
}

func Lookup(name string) (model.ChordTemplate, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return model.ChordTemplate{Name: t.Name, Intervals: slices.Clone(t.Intervals)}, true
		}
	}
	return model.ChordTemplate{}, false
}

// InversionCount is the number of non-root voicings a template has.
func InversionCount(t model.ChordTemplate) int {
	if len(t.Intervals) == 0 {
		return 0
	}
	return len(t.Intervals) - 1
}

func PitchClassName(pc int) string {
	return pitchClassNames[((pc%12)+12)%12]
}

func PitchClass(name string) (int, bool) {
	for i, n := range pitchClassNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func PitchClassNames() []string {
	return pitchClassNames[:]
}

// NoteName renders a pitch number as a name with octave, e.g. 60 -> C4.
func NoteName(pitch int) string {
	return fmt.Sprintf("%s%d", PitchClassName(pitch), pitch/12-1)
}

// rotate returns the r-th inversion of a root-position pattern: the first r
// intervals move up an octave and the result is re-rooted at 0.
func rotate(intervals []int, r int) []int {
	res := make([]int, 0, len(intervals))
	res = append(res, intervals[r:]...)
	for _, v := range intervals[:r] {
		res = append(res, v+12)
	}
	base := res[0]
	for i := range res {
		res[i] -= base
	}
	return res
}

// Voicing spells a template as MIDI pitches with root pc in octave 4 and the
// given inversion in the bass.
func Voicing(rootPC int, t model.ChordTemplate, inversion int) []int {
	base := 60 + ((rootPC%12)+12)%12
	res := make([]int, 0, len(t.Intervals))
	for _, iv := range rotateRaw(t.Intervals, inversion) {
		res = append(res, base+iv)
	}
	return res
}

// Inversions lists the inversions of t that classify back to t itself. Some
// voicings read as a different chord with higher confidence, e.g. every
// rotation of diminished7 is another diminished7 in root position.
func Inversions(t model.ChordTemplate) []int {
	var res []int
	for r := 1; r <= InversionCount(t); r++ {
		m := Classify(Voicing(0, t, r))
		if m != nil && m.TemplateName == t.Name && m.Inversion == r && m.ChordRoot == PitchClassName(0) {
			res = append(res, r)
		}
	}
	return res
}

// rotateRaw moves the first r intervals up an octave without re-rooting.
func rotateRaw(intervals []int, r int) []int {
	if r <= 0 || r >= len(intervals) {
		return append([]int(nil), intervals...)
	}
	res := make([]int, 0, len(intervals))
	res = append(res, intervals[r:]...)
	for _, v := range intervals[:r] {
		res = append(res, v+12)
	}
	return res
}
