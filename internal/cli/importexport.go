package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"tracklog/internal/service"
)

var (
	flagTable string
	flagFile  string
)

var exportCmd = &cobra.Command{
	Use:   "export --table <name> [--file <path>]",
	Short: "Export a table as JSON",
	Long: `Export one auxiliary table (` + strings.Join(service.Tables(), ", ") + `)
as JSON, to stdout or to --file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		svc := service.NewProcessService(afero.NewOsFs(), e.db, e.log, e.cfg.NWorkers)
		data, err := svc.Export(flagTable)
		if err != nil {
			return err
		}
		if flagFile == "" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(flagFile, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", flagFile, err)
		}
		fmt.Printf("exported %s to %s\n", flagTable, flagFile)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import --table <name> --file <path>",
	Short: "Import a table from JSON (or scale text)",
	Long: `Import rows into one auxiliary table (` + strings.Join(service.Tables(), ", ") + `).
The scale table also accepts the compact text form, one
mass,fat,water,muscle,bone line per measurement with tenths as integers.
Existing rows with the same key are updated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		data, err := os.ReadFile(flagFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", flagFile, err)
		}
		svc := service.NewProcessService(afero.NewOsFs(), e.db, e.log, e.cfg.NWorkers)
		n, err := svc.Import(flagTable, data)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d rows into %s\n", n, flagTable)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&flagTable, "table", "", "table to export")
	exportCmd.Flags().StringVar(&flagFile, "file", "", "output path (default stdout)")
	exportCmd.MarkFlagRequired("table")

	importCmd.Flags().StringVar(&flagTable, "table", "", "table to import into")
	importCmd.Flags().StringVar(&flagFile, "file", "", "input path")
	importCmd.MarkFlagRequired("table")
	importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(exportCmd, importCmd)
}
