package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jsphweid/chordcoach/chord"
	"github.com/jsphweid/chordcoach/model"
	"github.com/jsphweid/chordcoach/output"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var classifyJSON bool

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the match as JSON")
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:     "classify <note> [note...]",
	Short:   "Names the chord formed by MIDI note numbers",
	Example: "  chordcoach classify 64 67 72",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := Classify(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if classifyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		if res.Match == nil {
			fmt.Fprintf(out, "%s: %s\n", res.Key, output.DescribeMatch(nil))
			return nil
		}
		fmt.Fprintf(out, "%s: %s %s\n", res.Key, output.DescribeMatch(res.Match),
			output.StyleMuted.Render(fmt.Sprintf("(confidence %.2f)", res.Match.Confidence)))
		return nil
	},
}

func parseNotes(args []string) (model.Notes, error) {
	notes := make(model.Notes, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 || n > 127 {
			return nil, errors.Errorf("%q is not a MIDI note number (0-127)", arg)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// Classify parses note numbers and runs them through the matcher.
func Classify(args []string) (model.ClassifyResponse, error) {
	notes, err := parseNotes(args)
	if err != nil {
		return model.ClassifyResponse{}, err
	}
	return model.ClassifyResponse{
		Key:   chord.CreateChordKey(notes),
		Match: chord.Classify(notes),
	}, nil
}
