package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookrack/internal/domain/user"
)

const userColumns = `u.id, u.name, u.email, u.role,
	(SELECT count(*) FROM orders o WHERE o.user_id = u.id),
	u.created_at, u.updated_at`

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL. Password
// hashes never leave this package.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// List returns all users with their order counts, newest first.
func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+userColumns+" FROM users u ORDER BY u.created_at DESC, u.id")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return pgx.CollectRows(rows, scanUser)
}

// GetByID returns a single user by its identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+userColumns+" FROM users u WHERE u.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	return &u, nil
}

// The guard predicate refuses the write when it would leave zero admins.
const updateRoleSQL = `UPDATE users u SET role = $2, updated_at = now()
	WHERE u.id = $1 AND ($2 = 'ADMIN' OR u.role <> 'ADMIN'
		OR (SELECT count(*) FROM users WHERE role = 'ADMIN') > 1)`

// UpdateRole changes a user's role, refusing to demote the last admin.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role user.Role) (*user.User, error) {
	tag, err := r.pool.Exec(ctx, updateRoleSQL, id, role)
	if err != nil {
		return nil, fmt.Errorf("updating user %q role: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u.Role == user.RoleAdmin && role != user.RoleAdmin {
			return nil, user.ErrLastAdmin
		}
		return nil, fmt.Errorf("updating user %q role: no rows affected", id)
	}
	return r.GetByID(ctx, id)
}

const deleteUserSQL = `DELETE FROM users u WHERE u.id = $1
	AND (u.role <> 'ADMIN' OR (SELECT count(*) FROM users WHERE role = 'ADMIN') > 1)`

// Delete removes a user, refusing to delete the last admin.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteUserSQL, id)
	if err != nil {
		return fmt.Errorf("deleting user %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if u.Role == user.RoleAdmin {
			return user.ErrLastAdmin
		}
		return fmt.Errorf("deleting user %q: no rows affected", id)
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.OrderCount, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
