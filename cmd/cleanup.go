package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hookcatch/hookcatch/internal/store"
)

var cleanupOlderThan time.Duration

// cleanupCmd deletes captured requests older than the given age. It is
// operator-invoked; nothing schedules it automatically.
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete captured requests older than a given age",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer s.Close()

		cutoff := time.Now().UTC().Add(-cleanupOlderThan)
		deleted, err := s.DeleteRequestsOlderThan(context.Background(), cutoff)
		if err != nil {
			return err
		}
		log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("old requests deleted")
		return nil
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 720*time.Hour, "delete requests older than this duration")
	rootCmd.AddCommand(cleanupCmd)
}
