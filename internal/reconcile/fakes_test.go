package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iota-uz/dirsync/internal/directory"
)

// fakeDirectory is an in-memory remote directory. Create fails with a
// duplicate-key rejection when the entity exists, which is exactly what the
// upsert protocol probes for.
type fakeDirectory struct {
	mu     sync.Mutex
	groups map[string]map[string]directory.Group
	users  map[string]map[string]directory.User

	pingErr        error
	createGroupErr func(g directory.Group) error
	createUserErr  func(u directory.User) error

	// listGroupsLag makes the first N group listings omit everything written
	// during the test, imitating an eventually consistent directory.
	listGroupsLag  int
	listGroupCalls int

	calls int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		groups: make(map[string]map[string]directory.Group),
		users:  make(map[string]map[string]directory.User),
	}
}

func duplicateKey(op string) error {
	return &directory.CallError{Op: op, Status: 409, Message: "duplicate key value violates unique constraint"}
}

func notFound(op string) error {
	return &directory.CallError{Op: op, Status: 404, Message: "not found", Code: "NOT_FOUND"}
}

func (f *fakeDirectory) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.pingErr
}

func (f *fakeDirectory) CreateGroup(ctx context.Context, g directory.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createGroupErr != nil {
		if err := f.createGroupErr(g); err != nil {
			return err
		}
	}
	byName, ok := f.groups[g.Owner]
	if !ok {
		byName = make(map[string]directory.Group)
		f.groups[g.Owner] = byName
	}
	if _, exists := byName[g.Name]; exists {
		return duplicateKey("group create")
	}
	byName[g.Name] = g
	return nil
}

func (f *fakeDirectory) UpdateGroup(ctx context.Context, owner, name string, g directory.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	byName, ok := f.groups[owner]
	if !ok {
		return notFound("group update")
	}
	if _, exists := byName[name]; !exists {
		return notFound("group update")
	}
	byName[name] = g
	return nil
}

func (f *fakeDirectory) ListGroups(ctx context.Context, owner string) ([]directory.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.listGroupCalls++
	if f.listGroupCalls <= f.listGroupsLag {
		return nil, nil
	}
	out := make([]directory.Group, 0, len(f.groups[owner]))
	for _, g := range f.groups[owner] {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeDirectory) DeleteGroup(ctx context.Context, owner, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	byName, ok := f.groups[owner]
	if !ok {
		return notFound("group delete")
	}
	if _, exists := byName[name]; !exists {
		return notFound("group delete")
	}
	delete(byName, name)
	return nil
}

func (f *fakeDirectory) CreateUser(ctx context.Context, u directory.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createUserErr != nil {
		if err := f.createUserErr(u); err != nil {
			return err
		}
	}
	byName, ok := f.users[u.Owner]
	if !ok {
		byName = make(map[string]directory.User)
		f.users[u.Owner] = byName
	}
	if _, exists := byName[u.Name]; exists {
		return duplicateKey("user create")
	}
	byName[u.Name] = u
	return nil
}

func (f *fakeDirectory) UpdateUser(ctx context.Context, owner, name string, u directory.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	byName, ok := f.users[owner]
	if !ok {
		return notFound("user update")
	}
	if _, exists := byName[name]; !exists {
		return notFound("user update")
	}
	byName[name] = u
	return nil
}

func (f *fakeDirectory) ListUsers(ctx context.Context, owner string) ([]directory.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]directory.User, 0, len(f.users[owner]))
	for _, u := range f.users[owner] {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeDirectory) DeleteUser(ctx context.Context, owner, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	byName, ok := f.users[owner]
	if !ok {
		return notFound("user delete")
	}
	if _, exists := byName[name]; !exists {
		return notFound("user delete")
	}
	delete(byName, name)
	return nil
}

func (f *fakeDirectory) ListOwners(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	seen := make(map[string]struct{})
	for owner := range f.groups {
		seen[owner] = struct{}{}
	}
	for owner := range f.users {
		seen[owner] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for owner := range seen {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeDirectory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeDirectory) group(owner, name string) (directory.Group, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[owner][name]
	return g, ok
}

func (f *fakeDirectory) user(owner, name string) (directory.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[owner][name]
	return u, ok
}

type memOrgs struct {
	rows []OrgNode
	err  error
}

func (m *memOrgs) ListOrgs(ctx context.Context, since *time.Time) ([]OrgNode, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

type memUsers struct {
	rows []UserRecord
	err  error
}

func (m *memUsers) StreamUsers(ctx context.Context, since *time.Time, fn func(UserRecord) error) error {
	if m.err != nil {
		return m.err
	}
	for _, u := range m.rows {
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

type memMemberships struct {
	rows []MembershipEdge
	err  error
}

func (m *memMemberships) ListMemberships(ctx context.Context) ([]MembershipEdge, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}
