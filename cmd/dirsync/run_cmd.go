package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/iota-uz/dirsync/internal/directory"
	"github.com/iota-uz/dirsync/internal/reconcile"
	"github.com/iota-uz/dirsync/internal/source"
	"github.com/iota-uz/dirsync/pkg/configuration"
)

type runOptions struct {
	dryRun        bool
	full          bool
	owner         string
	baseURL       string
	authorization string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass against the remote directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report planned watermarks without mutating remote state")
	cmd.Flags().BoolVar(&opts.full, "full", false, "Ignore checkpoints and sync everything")
	cmd.Flags().StringVar(&opts.owner, "owner", "", "Owner namespace to reconcile (default: SYNC_OWNER)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Directory API base URL (default: DIRECTORY_BASE_URL)")
	cmd.Flags().StringVar(&opts.authorization, "authorization", "", "Directory API Authorization header (default: DIRECTORY_AUTHORIZATION)")

	return cmd
}

func runSync(ctx context.Context, opts runOptions) error {
	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	owner := strings.TrimSpace(opts.owner)
	if owner == "" {
		owner = conf.Sync.Owner
	}
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

	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return withCode(exitSource, fmt.Errorf("connect source store: %w", err))
	}
	defer pool.Close()

	orch := reconcile.NewOrchestrator(&reconcile.Config{
		Orgs:           source.NewOrgRepository(pool),
		Users:          source.NewUserRepository(pool, conf.Sync.UserPageSize),
		Memberships:    source.NewMembershipRepository(pool),
		Directory:      client,
		Checkpoints:    reconcile.NewCheckpointStore(conf.Sync.CheckpointPath),
		Logger:         logger,
		Owner:          owner,
		Workers:        conf.Sync.Workers,
		SettleAttempts: conf.Sync.SettleAttempts,
		SettleDelay:    conf.Sync.SettleDelay,
		LockPath:       conf.Sync.LockPath,
	})

	report, err := orch.Run(ctx, reconcile.RunOpts{DryRun: opts.dryRun, Full: opts.full})
	if err != nil {
		return exitFor(err)
	}
	return writeJSONLine(report)
}

// exitFor maps engine failures to exit codes: only unavailable-class
// conditions reach this point, everything else is absorbed inside the run.
func exitFor(err error) error {
	var se *reconcile.SourceUnavailableError
	if as(err, &se) {
		return withCode(exitSource, err)
	}
	var re *reconcile.RemoteUnavailableError
	if as(err, &re) {
		return withCode(exitRemote, err)
	}
	if is(err, reconcile.ErrRunInProgress) {
		return withCode(exitLocked, err)
	}
	return err
}
