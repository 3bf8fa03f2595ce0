package reconcile

import (
	"sync"
	"time"
)

// KindCounts summarizes upsert outcomes for one entity kind. Skipped counts
// entities the directory rejected for reasons other than existence.
type KindCounts struct {
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	AlreadySynced int `json:"already_synced"`
	Skipped       int `json:"skipped"`
}

// Report is the user-visible result of one reconciliation run.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`

	OrgsRead       int `json:"orgs_read"`
	UsersRead      int `json:"users_read"`
	MembershipRows int `json:"membership_rows"`

	Groups KindCounts `json:"groups"`
	Users  KindCounts `json:"users"`

	// Watermarks the run committed (or, in dry-run mode, would commit).
	GroupWatermark time.Time `json:"group_watermark"`
	UserWatermark  time.Time `json:"user_watermark"`
}

// PurgeReport is the result of the purge maintenance operation.
type PurgeReport struct {
	KeptOwner     string `json:"kept_owner"`
	OwnersPurged  int    `json:"owners_purged"`
	UsersDeleted  int    `json:"users_deleted"`
	GroupsDeleted int    `json:"groups_deleted"`
	Failures      int    `json:"failures"`
}

// tally accumulates outcomes from concurrent upsert workers.
type tally struct {
	mu     sync.Mutex
	counts KindCounts
}

func (t *tally) add(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch o {
	case Created:
		t.counts.Created++
	case Updated:
		t.counts.Updated++
	case AlreadySynced:
		t.counts.AlreadySynced++
	}
}

func (t *tally) skip() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts.Skipped++
}

func (t *tally) snapshot() KindCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts
}
