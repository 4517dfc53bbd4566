package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"tracklog/internal/logging"
	"tracklog/internal/server"
	"tracklog/internal/service"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		// The server logs structured JSON regardless of the console default.
		if flagLogFormat == "" {
			e.log = logging.New(e.cfg.Log.Level, logging.FormatJSON)
		}

		addr := e.cfg.HTTP.Addr
		if flagAddr != "" {
			addr = flagAddr
		}

		proc := service.NewProcessService(afero.NewOsFs(), e.db, e.log, e.cfg.NWorkers)
		srv := server.New(e.db, proc, e.cfg.ImportDir, float64(e.cfg.MaxHR), e.log)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
