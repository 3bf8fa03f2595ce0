package reconcile

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// MembershipResolver computes each user's target set of local group ids with
// a layered fallback: the membership feed wins when it has rows for the user,
// else the user's own department, else nothing. A user with no groups is
// still synced, never silently skipped.
type MembershipResolver struct {
	byUser map[string]map[string]struct{}
	log    logrus.FieldLogger
}

func NewMembershipResolver(edges []MembershipEdge, log logrus.FieldLogger) *MembershipResolver {
	byUser := make(map[string]map[string]struct{})
	for _, e := range edges {
		set, ok := byUser[e.UserID]
		if !ok {
			set = make(map[string]struct{})
			byUser[e.UserID] = set
		}
		set[e.OrgID] = struct{}{}
	}
	return &MembershipResolver{byUser: byUser, log: log}
}

// Resolve returns the distinct local group ids for the user, sorted for
// deterministic payloads. ownDeptID is consulted only when the feed has no
// rows for the user, even if it disagrees with the feed.
func (m *MembershipResolver) Resolve(userID, ownDeptID string) []string {
	if set, ok := m.byUser[userID]; ok && len(set) > 0 {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	}
	if ownDeptID != "" {
		return []string{ownDeptID}
	}
	m.log.WithField("user_id", userID).Warn("no membership rows and no own department, user will carry no group references")
	return nil
}
