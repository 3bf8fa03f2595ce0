package source

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/dirsync/internal/reconcile"
)

type OrgRepository struct {
	pool *pgxpool.Pool
}

func NewOrgRepository(pool *pgxpool.Pool) *OrgRepository {
	return &OrgRepository{pool: pool}
}

func (r *OrgRepository) ListOrgs(ctx context.Context, since *time.Time) ([]reconcile.OrgNode, error) {
	rows, err := r.pool.Query(ctx, `
SELECT
	id,
	display_name,
	org_type,
	owner,
	enabled,
	primary_parent_id,
	fallback_parent_id,
	updated_at
FROM organizations
WHERE ($1::timestamptz IS NULL OR updated_at > $1)
ORDER BY id
`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]reconcile.OrgNode, 0, 64)
	for rows.Next() {
		var node reconcile.OrgNode
		var orgType string
		var primary, fallback pgtype.Text
		if err := rows.Scan(
			&node.ID,
			&node.DisplayName,
			&orgType,
			&node.Owner,
			&node.Enabled,
			&primary,
			&fallback,
			&node.UpdatedAt,
		); err != nil {
			return nil, err
		}
		node.Type = reconcile.NodeType(orgType)
		if primary.Valid {
			node.PrimaryParentID = primary.String
		}
		if fallback.Valid {
			node.FallbackParentID = fallback.String
		}
		out = append(out, node)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
