package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/keytouch/internal/app"
	"github.com/ayusman/keytouch/internal/engine"
	"github.com/ayusman/keytouch/internal/keyboard"
	"github.com/ayusman/keytouch/internal/store"
)

// readRecordingFile parses a recording from path, or stdin for "-".
func readRecordingFile(path string) (*engine.Recording, []byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read recording: %w", err)
	}
	rec, err := engine.ParseRecording(data)
	if err != nil {
		return nil, nil, err
	}
	return rec, data, nil
}

// loadRecording reads a recording from a file, or from the database when
// fromDB is set and arg is a recording ID.
func loadRecording(arg string, fromDB bool) (*engine.Recording, error) {
	if !fromDB {
		rec, _, err := readRecordingFile(arg)
		return rec, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	stored, err := st.Recordings().GetByID(arg)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", arg, err)
	}
	return engine.ParseRecording(stored.Data)
}

func replayCmd() *cobra.Command {
	var (
		fromDB     bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "replay <file|id>",
		Short: "Replay a recording through a headless recognizer",
		Long: `Replay a recording on a simulated clock and print every recognized
gesture stage. Shape templates come from the database.

Examples:
  keytouch replay tap.json
  keytouch replay --id 3f2a... --json
  cat tap.json | keytouch replay -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := loadRecording(args[0], fromDB)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var st *store.Store
			if _, statErr := os.Stat(cfg.Store.Path); statErr == nil {
				st, err = openStore(cfg)
				if err != nil {
					return err
				}
				defer st.Close()
			}

			layout := keyboard.DefaultLayout()
			defs, err := app.BuildModels(cfg, layout, st)
			if err != nil {
				return err
			}
			result, err := app.Replay(defs, cfg, layout, rec, nil)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printReplay(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromDB, "id", false, "treat the argument as a stored recording ID")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")

	return cmd
}

func printReplay(w io.Writer, result *app.ReplayResult) {
	if len(result.Stages) == 0 {
		fmt.Fprintln(w, color.YellowString("no gestures recognized"))
		return
	}

	cancelled := make(map[string]bool, len(result.Cancelled))
	for _, id := range result.Cancelled {
		cancelled[id] = true
	}

	for i, s := range result.Stages {
		marker := color.GreenString("✓")
		if cancelled[s.Sequence] {
			marker = color.RedString("✗")
		}
		fmt.Fprintf(w, "%3d %s %-28s %s\n", i+1, marker, color.CyanString(s.Label),
			strings.Join(s.Stage.SourceIDs, ","))
	}

	for _, layer := range result.Layers {
		fmt.Fprintf(w, "    layer → %s\n", color.YellowString(layer))
	}
}
