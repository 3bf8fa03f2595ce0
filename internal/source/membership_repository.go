package source

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/dirsync/internal/reconcile"
)

type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) ListMemberships(ctx context.Context) ([]reconcile.MembershipEdge, error) {
	rows, err := r.pool.Query(ctx, `
SELECT user_id, org_id
FROM user_organizations
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]reconcile.MembershipEdge, 0, 256)
	for rows.Next() {
		var e reconcile.MembershipEdge
		if err := rows.Scan(&e.UserID, &e.OrgID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
