package reconcile

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// OrderedNode is an OrgNode annotated with its resolved depth in the tree.
type OrderedNode struct {
	OrgNode
	Depth int
}

// ResolveOrder dedups the raw rows and returns them in a processing order
// that visits every node after its resolved parent. The source graph is not
// guaranteed to be a clean tree: parents can be missing from the batch, ids
// can form cycles. Neither is fatal.
//
// A node whose parent is absent from the batch is ordered as a root but its
// parent reference is preserved unchanged: the parent may already exist
// remotely from a prior run, or may arrive in a later one. Nulling it out
// would silently flatten the hierarchy.
func ResolveOrder(rows []OrgNode, log logrus.FieldLogger) []OrderedNode {
	nodes := DedupNodes(rows, log)

	r := &depthResolver{
		nodes:  nodes,
		depths: make(map[string]int, len(nodes)),
		log:    log,
	}
	out := make([]OrderedNode, 0, len(nodes))
	for id, node := range nodes {
		out = append(out, OrderedNode{
			OrgNode: node,
			Depth:   r.depth(id, nil, make(map[string]bool)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type depthResolver struct {
	nodes  map[string]OrgNode
	depths map[string]int
	log    logrus.FieldLogger
}

func (r *depthResolver) depth(id string, stack []string, onStack map[string]bool) int {
	if d, ok := r.depths[id]; ok {
		return d
	}
	if onStack[id] {
		// Every node on the cycle saturates at depth 0 instead of recursing
		// forever. A data-quality fact of the source, not a fatal condition.
		for i := len(stack) - 1; i >= 0; i-- {
			r.depths[stack[i]] = 0
			if stack[i] == id {
				break
			}
		}
		r.log.WithField("org_id", id).Warn("cycle detected in org hierarchy, ordering cycle members as roots")
		return 0
	}

	node := r.nodes[id]
	parentID := node.ParentID()
	if parentID == "" {
		r.depths[id] = 0
		return 0
	}
	if _, ok := r.nodes[parentID]; !ok {
		r.log.WithFields(logrus.Fields{
			"org_id":    id,
			"parent_id": parentID,
		}).Warn("parent missing from batch, ordering node as root")
		r.depths[id] = 0
		return 0
	}

	stack = append(stack, id)
	onStack[id] = true
	d := 1 + r.depth(parentID, stack, onStack)
	delete(onStack, id)

	if cached, ok := r.depths[id]; ok {
		// Set to 0 mid-recursion by cycle detection above.
		return cached
	}
	r.depths[id] = d
	return d
}
