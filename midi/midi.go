// Package midi turns raw MIDI bytes from hardware ports, serial links and
// HTTP clients into note events for the aggregator.
package midi

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	gomidi "gitlab.com/gomidi/midi/v2"
)

var ErrInvalidMessage = errors.New("invalid midi message")

type Kind int

const (
	NoteOn Kind = iota
	NoteOff
	ControlChange
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	case ControlChange:
		return "control-change"
	}
	return "unknown"
}

// Input is one decoded channel message. For notes Data1 is the pitch and
// Data2 the velocity; for control changes they are controller and value.
type Input struct {
	Kind      Kind
	Channel   int
	Data1     int
	Data2     int
	Timestamp time.Time
}

// NoteSink receives decoded notes. The aggregator implements it.
type NoteSink interface {
	NoteOn(pitch, velocity int, ts time.Time)
	NoteOff(pitch int, ts time.Time)
}

// Decode parses a three byte channel message. A Note On with velocity 0 is
// reported as NoteOff.
func Decode(raw []byte, ts time.Time) (Input, error) {
	if len(raw) < 3 {
		return Input{}, errors.Wrapf(ErrInvalidMessage, "need 3 bytes, got %d", len(raw))
	}
	if raw[0] < 0x80 || raw[1] > 0x7f || raw[2] > 0x7f {
		return Input{}, errors.Wrapf(ErrInvalidMessage, "malformed bytes % x", raw[:3])
	}

	msg := gomidi.Message(raw[:3])
	var ch, key, val uint8
	in := Input{Timestamp: ts}
	switch {
	case msg.GetNoteStart(&ch, &key, &val):
		in.Kind = NoteOn
	case msg.GetNoteEnd(&ch, &key):
		in.Kind = NoteOff
		val = raw[2]
	case msg.GetControlChange(&ch, &key, &val):
		in.Kind = ControlChange
	default:
		return Input{}, errors.Wrapf(ErrInvalidMessage, "unsupported status 0x%02x", raw[0])
	}
	in.Channel = int(ch)
	in.Data1 = int(key)
	in.Data2 = int(val)
	return in, nil
}

// Feed routes note inputs to sink. Control changes are dropped.
func Feed(sink NoteSink, in Input) {
	switch in.Kind {
	case NoteOn:
		sink.NoteOn(in.Data1, in.Data2, in.Timestamp)
	case NoteOff:
		sink.NoteOff(in.Data1, in.Timestamp)
	default:
		log.WithFields(log.Fields{
			"kind":       in.Kind,
			"controller": in.Data1,
			"value":      in.Data2,
		}).Debug("ignoring midi input")
	}
}

// FeedBytes decodes raw and feeds the result to sink.
func FeedBytes(sink NoteSink, raw []byte, ts time.Time) error {
	in, err := Decode(raw, ts)
	if err != nil {
		return err
	}
	Feed(sink, in)
	return nil
}
