package reconcile

import (
	"context"
	"time"

	"github.com/iota-uz/dirsync/internal/directory"
)

// UserRecord is one user as read from the source store. PasswordHash is
// opaque and pre-hashed; this tool never sees plaintext credentials.
type UserRecord struct {
	ID               string
	DisplayName      string
	Email            string
	Phone            string
	Gender           string
	Language         string
	OwnAccountDeptID string
	CompanyName      string
	Owner            string
	PasswordHash     string
	UpdatedAt        time.Time
}

// MembershipEdge links a user to an org unit. Sourced from a dedicated
// membership feed which is not required to agree with
// UserRecord.OwnAccountDeptID.
type MembershipEdge struct {
	UserID string
	OrgID  string
}

// OrgSource, UserSource and MembershipSource are the three read surfaces the
// engine consumes from the relational store. A nil since means full sync.
type OrgSource interface {
	ListOrgs(ctx context.Context, since *time.Time) ([]OrgNode, error)
}

type UserSource interface {
	StreamUsers(ctx context.Context, since *time.Time, fn func(UserRecord) error) error
}

type MembershipSource interface {
	ListMemberships(ctx context.Context) ([]MembershipEdge, error)
}

// Directory is the remote directory surface the engine drives. Satisfied by
// *directory.Client.
type Directory interface {
	Ping(ctx context.Context) error

	CreateGroup(ctx context.Context, g directory.Group) error
	UpdateGroup(ctx context.Context, owner, name string, g directory.Group) error
	ListGroups(ctx context.Context, owner string) ([]directory.Group, error)
	DeleteGroup(ctx context.Context, owner, name string) error

	CreateUser(ctx context.Context, u directory.User) error
	UpdateUser(ctx context.Context, owner, name string, u directory.User) error
	ListUsers(ctx context.Context, owner string) ([]directory.User, error)
	DeleteUser(ctx context.Context, owner, name string) error

	ListOwners(ctx context.Context) ([]string, error)
}
