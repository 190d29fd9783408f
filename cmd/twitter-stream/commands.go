package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/twitterapi-client/pkg/config"
	"github.com/Sternrassler/twitterapi-client/pkg/logging"
	"github.com/Sternrassler/twitterapi-client/pkg/twitter"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "twitter-stream",
		Short:        "Consume the filtered or compliance streams as NDJSON",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			lc := cfg.Logging()
			lc.Output = cmd.ErrOrStderr()
			logging.Setup(lc)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (optional)")

	cmd.AddCommand(newFilteredCmd(opts), newComplianceCmd(opts))
	return cmd
}

func newFilteredCmd(opts *rootOptions) *cobra.Command {
	var backfill int

	cmd := &cobra.Command{
		Use:   "filtered",
		Short: "Stream tweets matching the active filtered stream rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			so := streamOptions(opts.cfg)
			if cmd.Flags().Changed("backfill-minutes") {
				so.BackfillMinutes = backfill
			}
			return serve(cmd, opts.cfg, func(ctx context.Context, api *twitter.API, out *eventWriter) error {
				return runFiltered(ctx, api, so, out)
			})
		},
	}

	cmd.Flags().IntVar(&backfill, "backfill-minutes", 0, "backfill requested on the first connect (1..5)")
	return cmd
}

func newComplianceCmd(opts *rootOptions) *cobra.Command {
	var (
		kind       string
		partitions []int
	)

	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Stream tweet or user compliance events from one or more partitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(partitions) == 0 {
				return fmt.Errorf("at least one partition is required")
			}
			so := streamOptions(opts.cfg)
			return serve(cmd, opts.cfg, func(ctx context.Context, api *twitter.API, out *eventWriter) error {
				return runCompliance(ctx, api, twitter.ComplianceJobType(kind), partitions, so, out)
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(twitter.ComplianceTweets), "tweets or users")
	cmd.Flags().IntSliceVar(&partitions, "partitions", []int{1, 2, 3, 4}, "partitions to consume (1..4)")
	return cmd
}

// serve wires the runtime around run and blocks until run returns or the
// process is signalled.
func serve(cmd *cobra.Command, cfg config.Config, run func(context.Context, *twitter.API, *eventWriter) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	return d.run(ctx, cmd.OutOrStdout(), run)
}

func streamOptions(cfg config.Config) twitter.StreamOptions {
	return twitter.StreamOptions{
		BackfillMinutes: cfg.Stream.BackfillMinutes,
		DisableBackfill: cfg.Stream.DisableBackfill,
		StallTimeout:    cfg.Stream.StallTimeout,
	}
}
