package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"tracklog/internal/service"
)

var flagProcAll bool

var procCmd = &cobra.Command{
	Use:   "proc [file...]",
	Short: "Import activity files",
	Long: `Parse and import activity files. Without arguments the configured
import directory is walked; with arguments only the named files are
processed. Files whose content is unchanged since the last import are
skipped. After importing, all provider reconciliation passes run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		svc := service.NewProcessService(afero.NewOsFs(), e.db, e.log, e.cfg.NWorkers)

		progress := make(chan service.Progress)
		done := make(chan struct{})
		go func() {
			defer close(done)
			drawProgress(progress)
		}()

		var result *service.ProcessResult
		if len(args) > 0 && !flagProcAll {
			result, err = svc.ProcessFiles(ctx, args, progress)
		} else {
			result, err = svc.ProcessDir(ctx, e.cfg.ImportDir, progress)
		}
		<-done
		if err != nil {
			return err
		}

		printProcessResult(result)
		return nil
	},
}

// drawProgress renders one bar per pipeline phase.
func drawProgress(progress <-chan service.Progress) {
	var bar *progressbar.ProgressBar
	phase := ""
	for p := range progress {
		if p.Phase != phase {
			if bar != nil {
				bar.Finish()
				fmt.Println()
			}
			phase = p.Phase
			total := p.Total
			if total <= 0 {
				total = -1 // spinner: provider fetches don't know their size up front
			}
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(phase),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		if bar != nil && p.Completed > 0 {
			bar.Set(p.Completed)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
}

func printProcessResult(r *service.ProcessResult) {
	fmt.Printf("%d files: %d imported, %d unchanged, %d failed\n",
		r.Files, r.Processed, r.Unchanged, len(r.Failures))
	for _, f := range r.Failures {
		fmt.Printf("  FAILED %s: %v\n", f.File, f.Err)
	}
	for _, rec := range r.Reconcile {
		if rec.Candidates == 0 {
			continue
		}
		fmt.Printf("reconcile %s: %d candidates, %d linked, %d unmatched",
			rec.Provider, rec.Candidates, rec.Linked, rec.Unmatched)
		if len(rec.Ambiguities) > 0 {
			fmt.Printf(", %d ambiguous", len(rec.Ambiguities))
		}
		fmt.Println()
	}
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-run provider reconciliation without importing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		svc := service.NewProcessService(afero.NewOsFs(), e.db, e.log, e.cfg.NWorkers)
		results, err := svc.Reconcile(cmd.Context())
		if err != nil {
			return err
		}
		for _, rec := range results {
			fmt.Printf("%s: %d candidates, %d linked, %d unmatched, %d ambiguous\n",
				rec.Provider, rec.Candidates, rec.Linked, rec.Unmatched, len(rec.Ambiguities))
			for _, amb := range rec.Ambiguities {
				fmt.Printf("  ambiguous record %s matches summaries %v\n", amb.RecordID, amb.SummaryIDs)
			}
		}
		return nil
	},
}

func init() {
	procCmd.Flags().BoolVar(&flagProcAll, "all", false, "process the whole import directory")
	rootCmd.AddCommand(procCmd)
	rootCmd.AddCommand(reconcileCmd)
}
