package reconcile

import (
	"time"

	"github.com/sirupsen/logrus"
)

type NodeType string

const (
	NodeTypeCompany    NodeType = "company"
	NodeTypeDepartment NodeType = "department"
)

// OrgNode is one organizational unit as read from the source store. The
// source carries two candidate parent pointers; ParentID is the only place
// the precedence between them is decided.
type OrgNode struct {
	ID               string
	DisplayName      string
	Type             NodeType
	Owner            string
	Enabled          bool
	PrimaryParentID  string
	FallbackParentID string
	UpdatedAt        time.Time
}

// ParentID resolves the effective parent: primary if present, else fallback,
// else none (root).
func (n OrgNode) ParentID() string {
	if n.PrimaryParentID != "" {
		return n.PrimaryParentID
	}
	return n.FallbackParentID
}

// DedupNodes collapses duplicate ids to a single node, last seen wins.
// Duplicate ids are a data-quality fact of the source, not an error.
func DedupNodes(rows []OrgNode, log logrus.FieldLogger) map[string]OrgNode {
	nodes := make(map[string]OrgNode, len(rows))
	for _, row := range rows {
		if _, ok := nodes[row.ID]; ok {
			log.WithField("org_id", row.ID).Warn("duplicate org id in source rows, keeping last seen")
		}
		nodes[row.ID] = row
	}
	return nodes
}
