package reconcile

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestMembershipResolver_FeedWinsOverOwnDepartment(t *testing.T) {
	edges := []MembershipEdge{
		{UserID: "u1", OrgID: "b"},
		{UserID: "u1", OrgID: "a"},
		{UserID: "u1", OrgID: "b"}, // duplicate edge
	}
	m := NewMembershipResolver(edges, testLogger())

	// ownDeptID differs from the feed; the feed still wins.
	require.Equal(t, []string{"a", "b"}, m.Resolve("u1", "dept42"))
}

func TestMembershipResolver_OwnDepartmentFallback(t *testing.T) {
	m := NewMembershipResolver(nil, testLogger())
	require.Equal(t, []string{"dept42"}, m.Resolve("u1", "dept42"))
}

func TestMembershipResolver_EmptyWithWarning(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.WarnLevel)

	m := NewMembershipResolver(nil, log)
	require.Empty(t, m.Resolve("u1", ""))
	require.Contains(t, buf.String(), "no membership rows")
}
