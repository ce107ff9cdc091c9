package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openglam/smithsonian-harvester/internal/harvest"
	"github.com/openglam/smithsonian-harvester/internal/requester"
)

// newHarvestCmd creates the 'harvest' subcommand, which runs the full
// sharded sweep of the hash space.
func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Runs the full sharded metadata harvest",
		Long: `Sweeps every hash-prefix shard of the configured length through the
search API, extracts CC0 image records, and commits the deduplicated batch
to the configured store.`,
		RunE: runHarvestCommand,
	}
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config
	logger := appInstance.Logger

	client := requester.New(requester.Config{
		APIKey:     cfg.API.Key,
		Delay:      cfg.Crawl.Delay(),
		MaxRetries: cfg.Crawl.Retries,
		Timeout:    cfg.Crawl.Timeout(),
		UserAgent:  cfg.API.UserAgent,
	}, logger)

	driver := harvest.NewDriver(
		harvest.DriverConfig{
			SearchEndpoint:         cfg.API.SearchEndpoint(),
			PrefixLength:           cfg.Crawl.HashPrefixLength,
			PageLimit:              cfg.Crawl.PageLimit,
			MaxConsecutiveFailures: cfg.Crawl.MaxConsecutiveFailures,
		},
		client,
		harvest.NewExtractor(logger),
		appInstance.Store,
		logger,
	)

	total, err := driver.Run(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run harvest: %w", err)
	}
	if err != nil {
		logger.Warn("harvest interrupted", zap.Error(err))
		return nil
	}

	logger.Info("harvest finished",
		zap.String("run_id", appInstance.RunID),
		zap.Int("total_images", total),
	)

	if appInstance.Publisher == nil {
		return nil
	}
	event := map[string]any{
		"run_id":       appInstance.RunID,
		"total_images": total,
		"committed_at": time.Now().UTC().Format(time.RFC3339),
	}
	id, err := appInstance.Publisher.Publish(cmd.Context(), cfg.PubSub.TopicName, event)
	if err != nil {
		// The harvest itself succeeded; a lost notification is not fatal.
		logger.Warn("commit event publish failed", zap.Error(err))
		return nil
	}
	logger.Info("commit event published", zap.String("message_id", id))
	return nil
}
