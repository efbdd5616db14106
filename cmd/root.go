package cmd

import (
	"os"

	"github.com/jsphweid/chordcoach/config"
	"github.com/jsphweid/chordcoach/output"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
)

var (
	cfgFile string
	verbose bool
	noColor bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "chordcoach",
	Short:        "Chord recognition and practice for MIDI keyboards",
	Long:         `Recognises chords played on a MIDI keyboard and runs timed practice sessions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
		output.ConfigureColor(os.Stdout, noColor)
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/chordcoach/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
