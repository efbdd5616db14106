package model

import "time"

type NoteKind int

const (
	NoteOn NoteKind = iota
	NoteOff
)

func (k NoteKind) String() string {
	if k == NoteOff {
		return "off"
	}
	return "on"
}

type NoteEvent struct {
	Pitch     int       `json:"pitch"`
	Velocity  int       `json:"velocity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Kind      NoteKind  `json:"kind"`
}

type StableChordSnapshot struct {
	Notes      NoteSet   `json:"notes"`
	Velocities []int     `json:"velocities"`
	Timestamp  time.Time `json:"timestamp"`
}

// Clone returns a copy that shares no memory with s.
func (s StableChordSnapshot) Clone() StableChordSnapshot {
	c := StableChordSnapshot{Timestamp: s.Timestamp}
	c.Notes = append(NoteSet{}, s.Notes...)
	c.Velocities = append([]int{}, s.Velocities...)
	return c
}

type DeviceInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer,omitempty"`
}
