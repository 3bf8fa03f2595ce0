package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iota-uz/dirsync/internal/directory"
	"github.com/iota-uz/dirsync/internal/reconcile"
	"github.com/iota-uz/dirsync/pkg/configuration"
)

type purgeOptions struct {
	keepOwner     string
	yes           bool
	baseURL       string
	authorization string
}

func newPurgeCmd() *cobra.Command {
	var opts purgeOptions

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all users and groups of every owner except the kept one (non-production cleanup)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.keepOwner, "keep-owner", "", "Owner namespace to keep (required)")
	cmd.Flags().BoolVar(&opts.yes, "yes", false, "Confirm the purge")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Directory API base URL (default: DIRECTORY_BASE_URL)")
	cmd.Flags().StringVar(&opts.authorization, "authorization", "", "Directory API Authorization header (default: DIRECTORY_AUTHORIZATION)")

	_ = cmd.MarkFlagRequired("keep-owner")

	return cmd
}

func runPurge(ctx context.Context, opts purgeOptions) error {
	if !opts.yes {
		return withCode(exitUsage, fmt.Errorf("purge deletes remote data; pass --yes to confirm"))
	}

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	baseURL := opts.baseURL
	if strings.TrimSpace(baseURL) == "" {
		baseURL = conf.Directory.BaseURL
	}
	authorization := opts.authorization
	if strings.TrimSpace(authorization) == "" {
		authorization = conf.Directory.Authorization
	}

	client, err := directory.NewClient(baseURL, authorization, conf.Directory.Timeout, conf.RequestIDHeader)
	if err != nil {
		return withCode(exitUsage, err)
	}

	orch := reconcile.NewOrchestrator(&reconcile.Config{
		Directory: client,
		Logger:    logger,
	})

	report, err := orch.PurgeExceptOwner(ctx, opts.keepOwner)
	if err != nil {
		return exitFor(err)
	}
	return writeJSONLine(report)
}
