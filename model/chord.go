package model

import "golang.org/x/exp/slices"

// Notes is a collection of absolute pitch numbers (0-127, 60 = middle C).
type Notes = []int

// NoteSet is a sorted collection of unique pitch numbers. Two sets are equal
// when they have the same size and members, regardless of the order the
// notes were pressed in.
type NoteSet []int

func NewNoteSet(notes ...int) NoteSet {
	set := make(NoteSet, 0, len(notes))
	for _, n := range notes {
		if !slices.Contains(set, n) {
			set = append(set, n)
		}
	}
	slices.Sort(set)
	return set
}

func (s NoteSet) Equal(other NoteSet) bool {
	return slices.Equal(s, other)
}

type ChordTemplate struct {
	Name      string
	Intervals []int
}

type ChordMatch struct {
	// Root is the name of the lowest sounding pitch.
	Root string `json:"root"`
	// ChordRoot is the root of the matched template, which differs from Root
	// for inversions.
	ChordRoot       string  `json:"chord_root"`
	TemplateName    string  `json:"template_name"`
	Inversion       int     `json:"inversion"`
	Confidence      float64 `json:"confidence"`
	HasExtraNotes   bool    `json:"has_extra_notes"`
	HasOmittedNotes bool    `json:"has_omitted_notes"`
}
