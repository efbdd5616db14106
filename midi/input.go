package midi

import (
	"strconv"
	"time"

	"github.com/jsphweid/chordcoach/model"
	"github.com/jsphweid/chordcoach/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	ErrUnsupportedPlatform = errors.New("no midi driver available on this platform")
	ErrDeviceNotFound      = errors.New("midi device not found")
)

// Virtual and system ports that are never picked automatically.
var excludedPorts = []string{"Midi Through", "Through Port", "Dummy"}

func driverIns() ([]drivers.In, error) {
	drv := drivers.Get()
	if drv == nil {
		return nil, ErrUnsupportedPlatform
	}
	ins, err := drv.Ins()
	if err != nil {
		return nil, errors.Wrap(err, "listing midi inputs")
	}
	return ins, nil
}

func deviceInfo(in drivers.In) model.DeviceInfo {
	return model.DeviceInfo{ID: strconv.Itoa(in.Number()), Name: in.String()}
}

// ListInputs enumerates the hardware inputs of the registered driver,
// skipping loopback ports.
func ListInputs() ([]model.DeviceInfo, error) {
	ins, err := driverIns()
	if err != nil {
		return nil, err
	}
	var res []model.DeviceInfo
	for _, in := range ins {
		if excluded(in.String()) {
			log.WithField("device", in.String()).Debug("midi input excluded")
			continue
		}
		res = append(res, deviceInfo(in))
	}
	return res, nil
}

func excluded(name string) bool {
	for _, pat := range excludedPorts {
		if util.ContainsFold(name, pat) {
			return true
		}
	}
	return false
}

// FindInput matches query against port numbers first and then against
// port names, case-insensitively.
func FindInput(devices []model.DeviceInfo, query string) (model.DeviceInfo, error) {
	for _, d := range devices {
		if d.ID == query {
			return d, nil
		}
	}
	for _, d := range devices {
		if util.ContainsFold(d.Name, query) {
			return d, nil
		}
	}
	return model.DeviceInfo{}, errors.Wrapf(ErrDeviceNotFound, "no input matching %q", query)
}

// OpenInput opens the port selected by query, which is a port number or a
// part of its name.
func OpenInput(query string) (drivers.In, model.DeviceInfo, error) {
	ins, err := driverIns()
	if err != nil {
		return nil, model.DeviceInfo{}, err
	}
	devices := make([]model.DeviceInfo, len(ins))
	for i, in := range ins {
		devices[i] = deviceInfo(in)
	}
	dev, err := FindInput(devices, query)
	if err != nil {
		return nil, dev, err
	}
	for _, in := range ins {
		if strconv.Itoa(in.Number()) != dev.ID {
			continue
		}
		if err := in.Open(); err != nil {
			return nil, dev, errors.Wrapf(err, "opening %q", dev.Name)
		}
		return in, dev, nil
	}
	return nil, dev, errors.Wrapf(ErrDeviceNotFound, "port %s vanished", dev.ID)
}

func listen(in drivers.In, sink NoteSink, onErr func(error)) (func(), error) {
	name := in.String()
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
		decoded, err := Decode([]byte(msg), time.Now())
		if err != nil {
			log.WithField("msg", msg.String()).Debug("unhandled midi message")
			return
		}
		Feed(sink, decoded)
	}, gomidi.HandleError(func(listenErr error) {
		log.WithFields(log.Fields{
			"device": name,
			"error":  listenErr,
		}).Warn("midi listener error")
		onErr(listenErr)
	}))
	if err != nil {
		_ = in.Close()
		return nil, errors.Wrapf(err, "listen %q", name)
	}
	return func() {
		stop()
		_ = in.Close()
	}, nil
}
