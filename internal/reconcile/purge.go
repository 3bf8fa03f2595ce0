package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const PhasePurge = "purge"

// PurgeExceptOwner deletes all users, then all groups, of every owner
// namespace except the kept one. Best effort per item, no transactional
// guarantee; intended for non-production cleanup only.
func (o *Orchestrator) PurgeExceptOwner(ctx context.Context, keep string) (*PurgeReport, error) {
	keep = strings.TrimSpace(keep)
	if keep == "" {
		return nil, fmt.Errorf("kept owner must not be empty")
	}
	if !o.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.runMu.Unlock()

	owners, err := o.dir.ListOwners(ctx)
	if err != nil {
		return nil, &RemoteUnavailableError{Phase: PhasePurge, Err: err}
	}

	report := &PurgeReport{KeptOwner: keep}
	for _, owner := range owners {
		if owner == keep {
			continue
		}
		log := o.log.WithField("owner", owner)

		users, err := o.dir.ListUsers(ctx, owner)
		if err != nil {
			log.WithError(err).Warn("user listing failed, skipping owner's users")
			report.Failures++
		} else {
			for _, u := range users {
				if err := o.dir.DeleteUser(ctx, owner, u.Name); err != nil {
					log.WithField("user", u.Name).WithError(err).Warn("user delete failed")
					report.Failures++
					continue
				}
				report.UsersDeleted++
			}
		}

		groups, err := o.dir.ListGroups(ctx, owner)
		if err != nil {
			log.WithError(err).Warn("group listing failed, skipping owner's groups")
			report.Failures++
		} else {
			for _, g := range groups {
				if err := o.dir.DeleteGroup(ctx, owner, g.Name); err != nil {
					log.WithField("group", g.Name).WithError(err).Warn("group delete failed")
					report.Failures++
					continue
				}
				report.GroupsDeleted++
			}
		}

		report.OwnersPurged++
	}

	o.log.WithFields(logrus.Fields{
		"owners_purged":  report.OwnersPurged,
		"users_deleted":  report.UsersDeleted,
		"groups_deleted": report.GroupsDeleted,
		"failures":       report.Failures,
	}).Info("purge completed")
	return report, nil
}
