package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jsphweid/chordcoach/aggregator"
	"github.com/jsphweid/chordcoach/export"
	"github.com/jsphweid/chordcoach/model"
	"github.com/jsphweid/chordcoach/output"
	"github.com/jsphweid/chordcoach/session"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	practiceDifficulty string
	practiceLength     int
	practiceSave       string
)

func init() {
	practiceCmd.Flags().StringVarP(&practiceDifficulty, "difficulty", "d", "", "beginner, intermediate, advanced or expert")
	practiceCmd.Flags().IntVarP(&practiceLength, "length", "n", 0, "number of chords in the session")
	practiceCmd.Flags().StringVar(&practiceSave, "save", "", "write the session report as JSON to this file")
	rootCmd.AddCommand(practiceCmd)
}

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Runs a chord practice session on a MIDI keyboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cfg.SessionOptions()
		if practiceDifficulty != "" {
			opts.Difficulty = practiceDifficulty
		}
		if practiceLength > 0 {
			opts.SessionLength = practiceLength
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return practice(ctx, cmd.OutOrStdout(), opts)
	},
}

func practice(ctx context.Context, out io.Writer, opts session.Options) error {
	agg := aggregator.New(aggregator.WithStabilityWindow(cfg.AggregatorWindow()))
	defer agg.Dispose()
	engine, err := session.New(opts)
	if err != nil {
		return err
	}
	defer engine.Dispose()
	engine.Attach(agg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var once sync.Once

	engine.OnUpdate(func(u session.Update) {
		switch u.State {
		case model.WaitingForInput:
			if u.Task != nil {
				fmt.Fprintln(out, output.RenderTask(*u.Task, engine.TaskIndex(), len(engine.Tasks())))
			}
		case model.SuccessFeedback, model.FailFeedback:
			if u.Attempt != nil {
				fmt.Fprintln(out, output.RenderAttempt(*u.Attempt, agg.GetStableNotes().Notes))
			}
		case model.Paused:
			fmt.Fprintln(out, output.StyleWarning.Render("Paused: waiting for the keyboard to come back"))
		case model.Completed:
			once.Do(cancel)
		}
	})
	agg.Subscribe(aggregator.DeviceConnected, func(e aggregator.Event) error {
		if engine.State() == model.Paused {
			return engine.Start()
		}
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	if err := startInput(gctx, g, agg); err != nil {
		return err
	}
	if err := engine.Start(); err != nil {
		return err
	}
	err = g.Wait()

	fmt.Fprintln(out, output.RenderStats(engine.Stats()))
	if exportErr := exportSession(context.Background(), engine); exportErr != nil {
		log.WithError(exportErr).Error("exporting session failed")
	}
	return err
}

func exporters() ([]export.Exporter, func(), error) {
	var res []export.Exporter
	closeAll := func() {}
	if practiceSave != "" {
		f, err := os.Create(practiceSave)
		if err != nil {
			return nil, closeAll, errors.Wrap(err, "creating report file")
		}
		closeAll = func() { f.Close() }
		res = append(res, export.JSONExporter{W: f, Indent: true})
	}
	if cfg.Export.Table != "" {
		client, err := export.NewDynamoClient(cfg.Export.Endpoint, cfg.Export.Region)
		if err != nil {
			return nil, closeAll, err
		}
		res = append(res, export.DynamoExporter{Client: client, Table: cfg.Export.Table})
	}
	return res, closeAll, nil
}

func exportSession(ctx context.Context, engine *session.Engine) error {
	if len(engine.Attempts()) == 0 {
		return nil
	}
	exps, closeAll, err := exporters()
	defer closeAll()
	if err != nil {
		return err
	}
	report := export.NewReport(uuid.NewString(), engine, time.Now())
	g, ctx := errgroup.WithContext(ctx)
	for _, exp := range exps {
		exp := exp
		g.Go(func() error { return exp.Export(ctx, report) })
	}
	return g.Wait()
}
