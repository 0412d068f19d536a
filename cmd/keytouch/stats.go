package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/keytouch/internal/engine"
	"github.com/ayusman/keytouch/internal/gesture"
)

func statsCmd() *cobra.Command {
	var fromDB bool

	cmd := &cobra.Command{
		Use:   "stats <file|id>",
		Short: "Show path statistics for each touchpoint of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := loadRecording(args[0], fromDB)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromDB, "id", false, "treat the argument as a stored recording ID")

	return cmd
}

// pathStats accumulates the statistics of a recorded path.
func pathStats(coords []gesture.InputSample) *gesture.CumulativePathStats {
	stats := gesture.NewStats()
	for _, s := range coords {
		stats = stats.Extend(s)
	}
	return stats
}

func printStats(w io.Writer, rec *engine.Recording) {
	start, end := rec.Span()
	fmt.Fprintf(w, "%s %d touchpoints over %.0fms\n",
		color.CyanString("Recording"), len(rec.Touchpoints()), end-start)

	for i, tp := range rec.Touchpoints() {
		coords := tp.Path.Coords
		status := color.GreenString("complete")
		switch {
		case tp.Path.WasCancelled:
			status = color.RedString("cancelled")
		case !tp.Path.IsComplete:
			status = color.YellowString("open")
		}

		fmt.Fprintf(w, "\n%s %d (%s)\n", color.CyanString("Touchpoint"), i+1, status)
		if len(coords) == 0 {
			fmt.Fprintln(w, "  no samples")
			continue
		}

		stats := pathStats(coords)
		direction := string(stats.CardinalDirection())
		if direction == "" {
			direction = "-"
		}
		fmt.Fprintf(w, "  item:      %s → %s\n", coords[0].Item, coords[len(coords)-1].Item)
		fmt.Fprintf(w, "  samples:   %d\n", stats.SampleCount())
		fmt.Fprintf(w, "  duration:  %.0fms\n", stats.Duration())
		fmt.Fprintf(w, "  distance:  %.1fpx raw, %.1fpx direct\n", stats.RawDistance(), stats.DirectDistance())
		fmt.Fprintf(w, "  direction: %s (%.0f°)\n", direction, stats.AngleInDegrees())
		fmt.Fprintf(w, "  speed:     %.1fpx/s mean, %.1f variance\n", stats.SpeedMean(), stats.SpeedVariance())
	}
}
