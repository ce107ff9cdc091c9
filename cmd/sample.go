package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openglam/smithsonian-harvester/internal/harvest"
	"github.com/openglam/smithsonian-harvester/internal/requester"
)

// newSampleCmd creates the 'sample' subcommand, which saves one
// representative search page per Smithsonian unit. The units format their
// row attributes differently, so a page apiece is the cheapest way to see
// what the extractor has to cope with.
func newSampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Gathers one sample search page per unit",
		RunE:  runSampleCommand,
	}
}

func runSampleCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config

	client := requester.New(requester.Config{
		APIKey:     cfg.API.Key,
		Delay:      cfg.Crawl.Delay(),
		MaxRetries: cfg.Crawl.Retries,
		Timeout:    cfg.Crawl.Timeout(),
		UserAgent:  cfg.API.UserAgent,
	}, appInstance.Logger)

	sampler := harvest.NewSampler(
		harvest.SamplerConfig{
			SearchEndpoint: cfg.API.SearchEndpoint(),
			UnitsEndpoint:  cfg.API.UnitsEndpoint(),
			PageLimit:      cfg.Crawl.PageLimit,
			DirPrefix:      cfg.Sample.DirPrefix,
		},
		client,
		appInstance.Blob,
		appInstance.Logger,
	)

	if err := sampler.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run sampler: %w", err)
	}
	return nil
}
