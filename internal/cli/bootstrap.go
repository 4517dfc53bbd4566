package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tracklog/internal/config"
	"tracklog/internal/store"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the config file, database, and import directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.CreateExample(); err != nil {
			return err
		}
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Opening runs the migrations.
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("creating database: %w", err)
		}
		db.Close()

		if err := os.MkdirAll(cfg.ImportDir, 0755); err != nil {
			return fmt.Errorf("creating import directory: %w", err)
		}

		fmt.Printf("config:     %s\n", filepath.Join(dir, "config.json"))
		fmt.Printf("database:   %s\n", cfg.DBPath)
		fmt.Printf("import dir: %s\n", cfg.ImportDir)
		fmt.Println("\nEdit the config to add provider credentials, then drop activity")
		fmt.Println("files into the import directory and run: tracklog proc")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}
