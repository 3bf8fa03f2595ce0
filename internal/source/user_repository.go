package source

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/dirsync/internal/reconcile"
)

type UserRepository struct {
	pool     *pgxpool.Pool
	pageSize int
}

func NewUserRepository(pool *pgxpool.Pool, pageSize int) *UserRepository {
	if pageSize < 1 {
		pageSize = 500
	}
	return &UserRepository{pool: pool, pageSize: pageSize}
}

// StreamUsers pages through the user listing by id (keyset pagination) and
// feeds each row to fn. The source can hold thousands of users; nothing is
// held in memory beyond one page.
func (r *UserRepository) StreamUsers(ctx context.Context, since *time.Time, fn func(reconcile.UserRecord) error) error {
	lastID := ""
	for {
		page, err := r.listPage(ctx, since, lastID)
		if err != nil {
			return err
		}
		for _, u := range page {
			if err := fn(u); err != nil {
				return err
			}
		}
		if len(page) < r.pageSize {
			return nil
		}
		lastID = page[len(page)-1].ID
	}
}

func (r *UserRepository) listPage(ctx context.Context, since *time.Time, afterID string) ([]reconcile.UserRecord, error) {
	rows, err := r.pool.Query(ctx, `
SELECT
	id,
	display_name,
	email,
	phone,
	gender,
	language,
	dept_id,
	company_name,
	owner,
	password_hash,
	updated_at
FROM users
WHERE ($1::timestamptz IS NULL OR updated_at > $1)
	AND id > $2
ORDER BY id
LIMIT $3
`, since, afterID, r.pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]reconcile.UserRecord, 0, r.pageSize)
	for rows.Next() {
		var u reconcile.UserRecord
		var email, phone, gender, language, deptID, company, passwordHash pgtype.Text
		if err := rows.Scan(
			&u.ID,
			&u.DisplayName,
			&email,
			&phone,
			&gender,
			&language,
			&deptID,
			&company,
			&u.Owner,
			&passwordHash,
			&u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		u.Email = email.String
		u.Phone = phone.String
		u.Gender = gender.String
		u.Language = language.String
		u.OwnAccountDeptID = deptID.String
		u.CompanyName = company.String
		u.PasswordHash = passwordHash.String
		out = append(out, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
