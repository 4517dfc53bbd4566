package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tracklog/internal/corrections"
	"tracklog/internal/store"
	"tracklog/internal/units"
)

var correctionsCmd = &cobra.Command{
	Use:   "corrections",
	Short: "Manage manual lap corrections",
	Long: `Lap corrections override the distance, duration, or sport recorded in
an activity file, keyed by the file's first-lap start time and the lap
number. They apply on the next import of the file.`,
}

var correctionsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Load corrections from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		corrs, err := corrections.ParseJSON(data)
		if err != nil {
			return err
		}

		rows := make([]store.Correction, len(corrs))
		for i, c := range corrs {
			rows[i] = store.Correction{
				StartTime: c.StartTime,
				LapNumber: c.LapNumber,
				Sport:     c.Sport,
				Distance:  c.Distance,
				Duration:  c.Duration,
			}
		}
		if err := e.db.UpsertCorrections(rows); err != nil {
			return err
		}
		fmt.Printf("imported %d corrections\n", len(rows))
		return nil
	},
}

var correctionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all corrections as JSON to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		rows, err := e.db.ListCorrections()
		if err != nil {
			return err
		}
		corrs := make([]corrections.Correction, len(rows))
		for i, r := range rows {
			corrs[i] = corrections.Correction{
				StartTime: r.StartTime,
				LapNumber: r.LapNumber,
				Sport:     r.Sport,
				Distance:  r.Distance,
				Duration:  r.Duration,
			}
		}
		data, err := corrections.MarshalJSON(corrs)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var correctionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored corrections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		rows, err := e.db.ListCorrections()
		if err != nil {
			return err
		}
		for _, r := range rows {
			fmt.Printf("%s lap %d:", r.StartTime.Format("2006-01-02 15:04:05"), r.LapNumber)
			if r.Sport != nil {
				fmt.Printf(" sport=%s", *r.Sport)
			}
			if r.Distance != nil {
				fmt.Printf(" distance=%.2fmi", *r.Distance)
			}
			if r.Duration != nil {
				fmt.Printf(" duration=%s", units.FormatHMS(*r.Duration))
			}
			fmt.Println()
		}
		fmt.Printf("%d corrections\n", len(rows))
		return nil
	},
}

func init() {
	correctionsCmd.AddCommand(correctionsImportCmd, correctionsExportCmd, correctionsListCmd)
	rootCmd.AddCommand(correctionsCmd)
}
