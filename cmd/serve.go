package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jsphweid/chordcoach/aggregator"
	"github.com/jsphweid/chordcoach/server"
	"github.com/jsphweid/chordcoach/session"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr     string
	serveHardware bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&serveHardware, "hardware", false, "also read a local MIDI keyboard or serial port")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the chord matcher and a practice session over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		agg := aggregator.New(aggregator.WithStabilityWindow(cfg.AggregatorWindow()))
		defer agg.Dispose()
		engine, err := session.New(cfg.SessionOptions())
		if err != nil {
			return err
		}
		defer engine.Dispose()
		engine.Attach(agg)

		addr := serveAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}

		g, gctx := errgroup.WithContext(ctx)
		if serveHardware {
			if err := startInput(gctx, g, agg); err != nil {
				return err
			}
		}
		g.Go(func() error {
			return server.New(agg, engine, log.WithField("component", "server")).ListenAndServe(gctx, addr)
		})
		return g.Wait()
	},
}
