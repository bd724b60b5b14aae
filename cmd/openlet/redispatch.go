package main

import (
	"context"
	"fmt"
	"time"

	"openlet/internal/adapter"
	"openlet/internal/adapter/events"
	"openlet/internal/cache"
	"openlet/internal/config"
	"openlet/internal/database"
	"openlet/internal/logger"
	"openlet/internal/repository"
	"openlet/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRedispatchCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "redispatch <record-id>",
		Short: "Re-announce the last status change of a record",
		Long:  "Publish the change event that moved a record into its current status again, so a stuck OCR or generation stage runs once more.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := logger.Initialize(cfg.Logger); err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.NewSQLXOracleDB(ctx, database.DSN(cfg.DB))
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer redisClient.Close()

			event, err := service.Redispatch(ctx,
				repository.NewQuizRecordDatabaseAdapter(db),
				adapter.NewRedisCacheAdapter(redisClient),
				events.NewStreamPublisher(redisClient, cfg.Pipeline.Stream),
				args[0],
			)
			if err != nil {
				return err
			}

			logger.Get().Info("Change event republished",
				zap.String("record_id", event.RecordID),
				zap.String("before", string(event.Before)),
				zap.String("after", string(event.After)),
				zap.Int64("version", event.Version),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "republished %s: %s -> %s (version %d)\n",
				event.RecordID, event.Before, event.After, event.Version)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}
