package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/dirsync/internal/directory"
)

const (
	defaultWorkers        = 8
	defaultSettleAttempts = 5
	defaultSettleDelay    = 2 * time.Second
)

// Config wires the orchestrator. Uses a struct because the dependency list is
// too long for positional parameters.
type Config struct {
	Orgs        OrgSource
	Users       UserSource
	Memberships MembershipSource
	Directory   Directory
	Checkpoints *CheckpointStore
	Logger      logrus.FieldLogger

	// Owner is the namespace this runner reconciles.
	Owner string
	// Workers bounds the concurrent upserts inside a phase.
	Workers int
	// SettleAttempts/SettleDelay control how long the identity-map reload
	// waits for the remote listing to catch up with this run's writes.
	SettleAttempts int
	SettleDelay    time.Duration
	// LockPath is the cross-process run lock file. Empty disables it.
	LockPath string
}

// Orchestrator sequences the reconciliation phases: group sync, identity-map
// reload, membership load, user sync, checkpoint commit. Phases are strict
// barriers; each one depends on the complete output of the previous.
type Orchestrator struct {
	orgs        OrgSource
	users       UserSource
	memberships MembershipSource
	dir         Directory
	checkpoints *CheckpointStore
	log         logrus.FieldLogger

	owner          string
	workers        int
	settleAttempts int
	settleDelay    time.Duration
	lockPath       string

	runMu sync.Mutex
}

func NewOrchestrator(cfg *Config) *Orchestrator {
	workers := cfg.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	settleAttempts := cfg.SettleAttempts
	if settleAttempts < 1 {
		settleAttempts = defaultSettleAttempts
	}
	settleDelay := cfg.SettleDelay
	if settleDelay <= 0 {
		settleDelay = defaultSettleDelay
	}
	return &Orchestrator{
		orgs:           cfg.Orgs,
		users:          cfg.Users,
		memberships:    cfg.Memberships,
		dir:            cfg.Directory,
		checkpoints:    cfg.Checkpoints,
		log:            cfg.Logger,
		owner:          cfg.Owner,
		workers:        workers,
		settleAttempts: settleAttempts,
		settleDelay:    settleDelay,
		lockPath:       cfg.LockPath,
	}
}

// RunOpts holds per-run options.
type RunOpts struct {
	// DryRun reads the source and reports planned watermarks without
	// touching the directory or the checkpoint file.
	DryRun bool
	// Full ignores checkpoints and syncs everything.
	Full bool
}

// Run executes one reconciliation run. Only one run may be active at a time;
// a concurrent invocation gets ErrRunInProgress.
func (o *Orchestrator) Run(ctx context.Context, opts RunOpts) (*Report, error) {
	if !o.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.runMu.Unlock()

	if o.lockPath != "" && !opts.DryRun {
		release, err := acquireRunLock(o.lockPath)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	cp, err := o.checkpoints.Load()
	if err != nil {
		return nil, err
	}

	var groupSince, userSince *time.Time
	if !opts.Full {
		if !cp.LastGroupSync.IsZero() {
			t := cp.LastGroupSync
			groupSince = &t
		}
		if !cp.LastUserSync.IsZero() {
			t := cp.LastUserSync
			userSince = &t
		}
	}

	runStart := time.Now().UTC()
	report := &Report{
		StartedAt:      runStart,
		DryRun:         opts.DryRun,
		GroupWatermark: runStart,
		UserWatermark:  runStart,
	}

	// The org read happens before any remote mutation, so a dead source
	// aborts the run with checkpoints untouched.
	orgRows, err := o.orgs.ListOrgs(ctx, groupSince)
	if err != nil {
		return nil, &SourceUnavailableError{Err: err}
	}
	ordered := ResolveOrder(orgRows, o.log)
	report.OrgsRead = len(ordered)

	if opts.DryRun {
		if err := o.dryRunCounts(ctx, userSince, report); err != nil {
			return nil, err
		}
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	if err := o.dir.Ping(ctx); err != nil {
		return nil, &RemoteUnavailableError{Phase: PhaseConnectivity, Err: err}
	}

	rc := NewRunContext()

	if err := o.syncGroups(ctx, ordered, rc, report); err != nil {
		return report, err
	}
	cp.LastGroupSync = runStart
	if err := o.checkpoints.Save(cp); err != nil {
		return report, err
	}

	if err := o.reloadIdentityMap(ctx, rc); err != nil {
		return report, &RemoteUnavailableError{Phase: PhaseIdentityMapReload, Err: err}
	}

	edges, err := o.memberships.ListMemberships(ctx)
	if err != nil {
		return report, &SourceUnavailableError{Err: err}
	}
	report.MembershipRows = len(edges)
	mr := NewMembershipResolver(edges, o.log)

	if err := o.syncUsers(ctx, userSince, mr, rc, report); err != nil {
		return report, err
	}
	cp.LastUserSync = runStart
	cp.LastRun = time.Now().UTC()
	if err := o.checkpoints.Save(cp); err != nil {
		return report, err
	}

	report.FinishedAt = time.Now().UTC()
	o.log.WithFields(logrus.Fields{
		"orgs_read":  report.OrgsRead,
		"users_read": report.UsersRead,
		"groups":     report.Groups,
		"users":      report.Users,
	}).Info("reconciliation run completed")
	return report, nil
}

func (o *Orchestrator) dryRunCounts(ctx context.Context, userSince *time.Time, report *Report) error {
	edges, err := o.memberships.ListMemberships(ctx)
	if err != nil {
		return &SourceUnavailableError{Err: err}
	}
	report.MembershipRows = len(edges)

	users := 0
	err = o.users.StreamUsers(ctx, userSince, func(UserRecord) error {
		users++
		return nil
	})
	if err != nil {
		return &SourceUnavailableError{Err: err}
	}
	report.UsersRead = users
	return nil
}

// syncGroups upserts the ordered nodes band by band: nodes of equal depth are
// independent and run on the bounded worker pool, while the band barrier
// keeps every parent ahead of its children.
func (o *Orchestrator) syncGroups(ctx context.Context, ordered []OrderedNode, rc *RunContext, report *Report) error {
	t := &tally{}
	defer func() { report.Groups = t.snapshot() }()

	for start := 0; start < len(ordered); {
		end := start
		for end < len(ordered) && ordered[end].Depth == ordered[start].Depth {
			end++
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.workers)
		for _, n := range ordered[start:end] {
			n := n
			g.Go(func() error {
				payload := groupPayload(n.OrgNode)
				outcome, err := Upsert(gctx, o.log, "group", n.ID,
					func(ctx context.Context) error { return o.dir.CreateGroup(ctx, payload) },
					func(ctx context.Context) error { return o.dir.UpdateGroup(ctx, n.Owner, n.ID, payload) },
				)
				if err != nil {
					if directory.IsUnavailable(err) {
						return err
					}
					o.log.WithField("group", n.ID).WithError(err).Warn("group rejected by directory, skipping")
					t.skip()
					return nil
				}
				rc.MarkGroupSynced(n.ID)
				t.add(outcome)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return &RemoteUnavailableError{Phase: PhaseGroupSync, Err: err}
		}
		start = end
	}
	return nil
}

func groupPayload(n OrgNode) directory.Group {
	parent := n.ParentID()
	if parent == "" {
		// Root groups hang off the owner namespace itself.
		parent = n.Owner
	}
	return directory.Group{
		Name:        n.ID,
		DisplayName: n.DisplayName,
		Type:        string(n.Type),
		Owner:       n.Owner,
		Enabled:     n.Enabled,
		Parent:      parent,
	}
}

// reloadIdentityMap rebuilds the local-id to remote-identity map from the
// remote listing. The remote system is the source of truth for what exists;
// the map is never persisted across runs. The retry loop covers directories
// whose listing lags their writes: the reload is only accepted once every
// group synced this run is visible.
func (o *Orchestrator) reloadIdentityMap(ctx context.Context, rc *RunContext) error {
	backoff := retry.WithMaxRetries(uint64(o.settleAttempts), retry.NewConstant(o.settleDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		groups, err := o.dir.ListGroups(ctx, o.owner)
		if err != nil {
			return retry.RetryableError(err)
		}
		refs := make(map[string]directory.GroupRef, len(groups))
		for _, g := range groups {
			owner := g.Owner
			if owner == "" {
				owner = o.owner
			}
			refs[g.Name] = directory.GroupRef{Owner: owner, Name: g.Name}
		}
		if missing := rc.MissingSyncedGroups(refs); len(missing) > 0 {
			return retry.RetryableError(fmt.Errorf(
				"remote group listing missing %d groups synced this run (first: %s)",
				len(missing), missing[0],
			))
		}
		rc.SetGroupRefs(refs)
		o.log.WithField("groups", len(refs)).Debug("group identity map reloaded")
		return nil
	})
}

func (o *Orchestrator) syncUsers(ctx context.Context, since *time.Time, mr *MembershipResolver, rc *RunContext, report *Report) error {
	t := &tally{}
	var read atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan UserRecord)

	for i := 0; i < o.workers; i++ {
		g.Go(func() error {
			for u := range jobs {
				if err := o.syncOneUser(gctx, u, mr, rc, t); err != nil {
					return &RemoteUnavailableError{Phase: PhaseUserSync, Err: err}
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		err := o.users.StreamUsers(gctx, since, func(u UserRecord) error {
			read.Add(1)
			select {
			case jobs <- u:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		if err != nil {
			if gctx.Err() != nil {
				// A worker already failed; its error wins.
				return nil
			}
			return &SourceUnavailableError{Err: err}
		}
		return nil
	})

	err := g.Wait()
	report.Users = t.snapshot()
	report.UsersRead = int(read.Load())
	return err
}

func (o *Orchestrator) syncOneUser(ctx context.Context, u UserRecord, mr *MembershipResolver, rc *RunContext, t *tally) error {
	var refs []directory.GroupRef
	for _, localID := range mr.Resolve(u.ID, u.OwnAccountDeptID) {
		ref, ok := rc.ResolveGroup(localID)
		if !ok {
			o.log.WithFields(logrus.Fields{
				"user_id": u.ID,
				"org_id":  localID,
			}).Warn("group has no remote identity, dropping reference")
			continue
		}
		refs = append(refs, ref)
	}

	owner := u.Owner
	if owner == "" {
		owner = o.owner
	}
	payload := directory.User{
		Name:         u.ID,
		DisplayName:  u.DisplayName,
		Email:        u.Email,
		Phone:        u.Phone,
		Gender:       u.Gender,
		Language:     u.Language,
		Company:      u.CompanyName,
		Owner:        owner,
		PasswordHash: u.PasswordHash,
		Groups:       refs,
	}

	outcome, err := Upsert(ctx, o.log, "user", u.ID,
		func(ctx context.Context) error { return o.dir.CreateUser(ctx, payload) },
		func(ctx context.Context) error { return o.dir.UpdateUser(ctx, owner, u.ID, payload) },
	)
	if err != nil {
		if directory.IsUnavailable(err) {
			return err
		}
		o.log.WithField("user", u.ID).WithError(err).Warn("user rejected by directory, skipping")
		t.skip()
		return nil
	}
	t.add(outcome)
	return nil
}
