package cmd

import (
	"context"
	"time"

	"github.com/jsphweid/chordcoach/aggregator"
	"github.com/jsphweid/chordcoach/midi"
	"github.com/jsphweid/chordcoach/model"
	"golang.org/x/sync/errgroup"
)

// startInput feeds agg from the configured serial port, or else from the
// configured or only MIDI keyboard the watcher finds. Both stop with ctx.
// A missing driver or an absent configured port fails before anything runs.
func startInput(ctx context.Context, g *errgroup.Group, agg *aggregator.Aggregator) error {
	if cfg.Serial.Port != "" {
		port, err := midi.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return err
		}
		dev := model.DeviceInfo{ID: port.Name(), Name: port.Name()}
		agg.HandleConnect(dev)
		g.Go(func() error {
			<-ctx.Done()
			return port.Close()
		})
		g.Go(func() error {
			err := midi.FeedStream(port, agg)
			agg.HandleDisconnect(dev)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
		return nil
	}

	var opts []midi.WatcherOption
	if cfg.Midi.Port != "" {
		opts = append(opts, midi.WithPort(cfg.Midi.Port))
	}
	watcher := midi.NewWatcher(agg, agg, opts...)
	if err := watcher.Start(); err != nil {
		watcher.Close()
		return err
	}
	g.Go(func() error {
		return watcher.Run(ctx, time.Second)
	})
	return nil
}
