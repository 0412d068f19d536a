package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/keytouch/internal/preview"
	"github.com/ayusman/keytouch/internal/store"
)

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "record",
		Aliases: []string{"rec"},
		Short:   "Manage saved input recordings",
		Long: `Import, list and export input recordings kept in the database.

Examples:
  keytouch record import flick.json --name flick-up
  keytouch record list
  keytouch record export 3f2a... -o flick.json
  keytouch record preview 3f2a... -o flick.jpg`,
	}

	cmd.AddCommand(
		recordImportCmd(),
		recordListCmd(),
		recordExportCmd(),
		recordPreviewCmd(),
		recordDeleteCmd(),
	)

	return cmd
}

// withStore opens the configured store for the duration of f.
func withStore(f func(st *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return f(st)
}

func recordImportCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Save a recording file in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, data, err := readRecordingFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			return withStore(func(st *store.Store) error {
				start, end := rec.Span()
				stored := &store.Recording{
					Name:        name,
					Touchpoints: len(rec.Touchpoints()),
					DurationMs:  end - start,
					Data:        data,
				}
				if err := st.Recordings().Create(stored); err != nil {
					return fmt.Errorf("save recording: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", color.GreenString("✓ imported"), stored.Name, stored.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "recording name (default: file name)")

	return cmd
}

func recordListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				recordings, err := st.Recordings().List()
				if err != nil {
					return err
				}
				if len(recordings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("no recordings"))
					return nil
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTOUCHPOINTS\tDURATION\tCREATED")
				for _, r := range recordings {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%.0fms\t%s\n",
						r.ID, r.Name, r.Touchpoints, r.DurationMs, r.CreatedAt.Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			})
		},
	}
}

func recordExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a saved recording as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				rec, err := st.Recordings().GetByID(args[0])
				if err != nil {
					return fmt.Errorf("recording %s: %w", args[0], err)
				}
				if output == "" || output == "-" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), string(rec.Data))
					return err
				}
				if err := os.WriteFile(output, rec.Data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓ exported"), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func recordPreviewCmd() *cobra.Command {
	var (
		output string
		fromDB bool
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:   "preview <file|id>",
		Short: "Render a recording's paths to a JPEG image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := loadRecording(args[0], fromDB)
			if err != nil {
				return err
			}

			data, err := preview.RenderJPEG(rec, preview.Options{Width: width, Height: height})
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + ".jpg"
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓ rendered"), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output image (default: <name>.jpg)")
	cmd.Flags().BoolVar(&fromDB, "id", false, "treat the argument as a stored recording ID")
	cmd.Flags().IntVar(&width, "width", preview.DefaultWidth, "image width")
	cmd.Flags().IntVar(&height, "height", preview.DefaultHeight, "image height")

	return cmd
}

func recordDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved recording",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				if err := st.Recordings().Delete(args[0]); err != nil {
					return fmt.Errorf("recording %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓ deleted"), args[0])
				return nil
			})
		},
	}
}
