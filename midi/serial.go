package midi

import (
	"bufio"
	"io"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// SerialPort is a MIDI stream arriving over a serial link, e.g. a
// microcontroller bridging a DIN socket.
type SerialPort struct {
	name string
	port serial.Port
}

func OpenSerial(name string, baud int) (*SerialPort, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "opening serial port %s at %d baud", name, baud)
	}
	log.WithFields(log.Fields{
		"device": name,
		"baud":   baud,
	}).Info("serial port opened")
	return &SerialPort{name: name, port: p}, nil
}

func (s *SerialPort) Name() string {
	return s.name
}

func (s *SerialPort) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialPort) Close() error {
	log.WithField("device", s.name).Info("closing serial port")
	return s.port.Close()
}

// dataLength is the number of data bytes that follow a channel status.
func dataLength(status byte) int {
	switch status & 0xf0 {
	case 0xc0, 0xd0:
		return 1
	default:
		return 2
	}
}

// ReadStream splits a raw MIDI byte stream into channel messages and hands
// each one to fn. Running status is honoured, real-time bytes are skipped
// and system messages are discarded. It returns nil at EOF.
func ReadStream(r io.Reader, fn func(msg []byte)) error {
	br := bufio.NewReader(r)
	var status byte
	var data []byte
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading midi stream")
		}
		switch {
		case b >= 0xf8:
			continue
		case b >= 0xf0:
			status, data = 0, nil
			continue
		case b >= 0x80:
			status, data = b, nil
			continue
		case status == 0:
			continue
		}
		data = append(data, b)
		if len(data) == dataLength(status) {
			msg := append([]byte{status}, data...)
			data = nil
			fn(msg)
		}
	}
}

// FeedStream decodes every note message on r into sink until r is
// exhausted.
func FeedStream(r io.Reader, sink NoteSink) error {
	return ReadStream(r, func(msg []byte) {
		if len(msg) < 3 {
			return
		}
		if err := FeedBytes(sink, msg, time.Now()); err != nil {
			log.WithError(err).Debug("skipping serial midi message")
		}
	})
}
