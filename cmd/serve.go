package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hookcatch/hookcatch/internal/server"
	"github.com/hookcatch/hookcatch/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the capture and query HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.ListenAddr = serveAddr
		}

		s, err := store.NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer s.Close()

		srv := server.New(cfg, s)
		log.Info().Str("addr", cfg.ListenAddr).Str("database", cfg.DatabasePath).Msg("starting server")
		return srv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
