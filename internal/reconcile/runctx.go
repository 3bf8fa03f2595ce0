package reconcile

import (
	"sort"
	"sync"

	"github.com/iota-uz/dirsync/internal/directory"
)

// RunContext holds the mutable per-run state: the group identity map rebuilt
// from the remote listing, and the set of groups successfully synced this
// run. It is created fresh for every run so no state leaks across runs, and
// it is safe for the concurrent upsert workers inside a phase.
type RunContext struct {
	mu           sync.Mutex
	groupRefs    map[string]directory.GroupRef
	syncedGroups map[string]struct{}
}

func NewRunContext() *RunContext {
	return &RunContext{
		groupRefs:    make(map[string]directory.GroupRef),
		syncedGroups: make(map[string]struct{}),
	}
}

// MarkGroupSynced records that the group with the given local id was
// created or updated remotely during this run.
func (rc *RunContext) MarkGroupSynced(id string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.syncedGroups[id] = struct{}{}
}

// SetGroupRefs replaces the identity map with the freshly reloaded remote
// listing.
func (rc *RunContext) SetGroupRefs(refs map[string]directory.GroupRef) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.groupRefs = refs
}

// ResolveGroup translates a local org id into its remote identity. The
// second return is false when the group is unknown remotely, e.g. because its
// upsert was rejected earlier in the run.
func (rc *RunContext) ResolveGroup(localID string) (directory.GroupRef, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	ref, ok := rc.groupRefs[localID]
	return ref, ok
}

// MissingSyncedGroups returns the ids of groups synced this run that are
// absent from refs, sorted for stable logging. Used to decide whether the
// remote listing has caught up with this run's writes.
func (rc *RunContext) MissingSyncedGroups(refs map[string]directory.GroupRef) []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	var missing []string
	for id := range rc.syncedGroups {
		if _, ok := refs[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}
