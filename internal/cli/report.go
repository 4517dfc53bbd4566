package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tracklog/internal/report"
	"tracklog/internal/sport"
	"tracklog/internal/store"
)

var (
	flagGroup    string
	flagSport    string
	flagYear     int
	flagRaceType string
)

var reportCmd = &cobra.Command{
	Use:   "report [pattern...]",
	Short: "Text reports over imported activities",
	Long: `Render text reports. Patterns select what to show: a year (2024), a
month (2024-03), a day (2024-03-01), a sport name, or an imported filename.
Without a pattern the most recent activity's file report is shown. The
totals, races, scale, and file subcommands give direct access to each
report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		if len(args) == 0 {
			return latestFileReport(e)
		}
		for _, pattern := range args {
			if err := runPattern(e, pattern); err != nil {
				return err
			}
		}
		return nil
	},
}

func latestFileReport(e *env) error {
	latest, err := e.db.ListSummaries(store.SummaryFilter{Limit: 1})
	if err != nil {
		return err
	}
	if len(latest) == 0 {
		return errors.New("no activities imported yet")
	}
	return printFileReport(e, &latest[0])
}

func printFileReport(e *env, sum *store.Summary) error {
	points, err := e.db.GetTrack(sum.ID)
	if err != nil {
		return err
	}
	fmt.Print(report.RenderFile(report.ForFile(sum, points, float64(e.cfg.MaxHR))))
	return nil
}

// runPattern maps one report pattern onto a concrete query: a date prefix
// narrows a grouped report, a sport name filters it, anything else is tried
// as a filename.
func runPattern(e *env, pattern string) error {
	if sp, ok := sport.Parse(pattern); ok {
		rows, err := e.db.GroupedTotals(store.GroupByMonth, store.SummaryFilter{Sport: sp})
		if err != nil {
			return err
		}
		fmt.Print(report.RenderTotals("month", rows))
		return nil
	}

	for _, window := range []struct {
		layout string
		group  string
		step   func(time.Time) time.Time
	}{
		{"2006", store.GroupByMonth, func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }},
		{"2006-01", store.GroupByDay, func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
		{"2006-01-02", store.GroupByDay, func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	} {
		after, err := time.ParseInLocation(window.layout, pattern, time.UTC)
		if err != nil {
			continue
		}
		f := store.SummaryFilter{After: after, Before: window.step(after)}
		if window.layout == "2006-01-02" {
			// A single day lists its files rather than aggregating them.
			sums, err := e.db.ListSummaries(f)
			if err != nil {
				return err
			}
			for i := range sums {
				if err := printFileReport(e, &sums[i]); err != nil {
					return err
				}
				fmt.Println()
			}
			return nil
		}
		rows, err := e.db.GroupedTotals(window.group, f)
		if err != nil {
			return err
		}
		fmt.Print(report.RenderTotals(window.group, rows))
		return nil
	}

	sum, err := e.db.GetSummaryByFilename(pattern)
	if errors.Is(err, store.ErrSummaryNotFound) {
		return fmt.Errorf("pattern %q matches no year, month, day, sport, or filename", pattern)
	}
	if err != nil {
		return err
	}
	return printFileReport(e, sum)
}

var reportFileCmd = &cobra.Command{
	Use:   "file <filename-or-id>",
	Short: "Per-activity report with mile splits and heart-rate zones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		sum, err := e.db.GetSummaryByFilename(args[0])
		if errors.Is(err, store.ErrSummaryNotFound) {
			sum, err = e.db.GetSummary(args[0])
		}
		if err != nil {
			return err
		}
		return printFileReport(e, sum)
	},
}

// totalsFilter translates the report flags into a store filter.
func totalsFilter() (store.SummaryFilter, error) {
	var f store.SummaryFilter
	if flagSport != "" {
		sp, ok := sport.Parse(flagSport)
		if !ok {
			return f, fmt.Errorf("unknown sport %q", flagSport)
		}
		f.Sport = sp
	}
	if flagYear > 0 {
		f.After = time.Date(flagYear, 1, 1, 0, 0, 0, 0, time.UTC)
		f.Before = f.After.AddDate(1, 0, 0)
	}
	return f, nil
}

var reportTotalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Aggregate totals grouped by day, month, year, or sport",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		f, err := totalsFilter()
		if err != nil {
			return err
		}
		rows, err := e.db.GroupedTotals(flagGroup, f)
		if err != nil {
			return err
		}
		fmt.Print(report.RenderTotals(flagGroup, rows))
		return nil
	},
}

var reportRacesCmd = &cobra.Command{
	Use:   "races",
	Short: "List race results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		races, err := e.db.ListRaceResults(flagRaceType)
		if err != nil {
			return err
		}
		fmt.Print(report.RenderRaces(races))
		return nil
	},
}

var reportScaleCmd = &cobra.Command{
	Use:   "scale",
	Short: "List body-composition measurements",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		rows, err := e.db.ListScaleMeasurements()
		if err != nil {
			return err
		}
		fmt.Print(report.RenderScale(rows))
		return nil
	},
}

func init() {
	reportTotalsCmd.Flags().StringVar(&flagGroup, "group", store.GroupByYear, "grouping: day, month, year, or sport")
	reportTotalsCmd.Flags().StringVar(&flagSport, "sport", "", "restrict to one sport")
	reportTotalsCmd.Flags().IntVar(&flagYear, "year", 0, "restrict to one year")
	reportRacesCmd.Flags().StringVar(&flagRaceType, "type", "", "race type: personal, world_record_men, world_record_women")

	reportCmd.AddCommand(reportFileCmd, reportTotalsCmd, reportRacesCmd, reportScaleCmd)
	rootCmd.AddCommand(reportCmd)
}
