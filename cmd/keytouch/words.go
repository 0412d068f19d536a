package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/keytouch/internal/wordbreak"
)

func wordsCmd() *cobra.Command {
	var joiners []string

	cmd := &cobra.Command{
		Use:   "words <text>",
		Short: "Split text into word spans",
		Long: `Split text into word spans with the default word breaker. Spans
separated only by a joiner character are merged into one word.

Examples:
  keytouch words "don't stop"
  keytouch words --join "-" "well-known fact"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			breaker := wordbreak.Breaker(wordbreak.Default)
			if len(joiners) > 0 {
				breaker = wordbreak.Join(breaker, joiners)
			}

			for _, span := range breaker(strings.Join(args, " ")) {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d-%-3d %s\n", span.Start, span.End, color.CyanString("%q", span.Text))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&joiners, "join", "j", []string{"'"}, "characters that join adjacent words")

	return cmd
}
