package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keyxmakerx/gatehouse/internal/apperror"
	"github.com/keyxmakerx/gatehouse/internal/rbac"
)

// UserRepository defines the data access contract for user operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// Admin operations.
	ListUsers(ctx context.Context, offset, limit int) ([]User, int, error)
	UpdateRole(ctx context.Context, id string, role rbac.Role, permissions []string) error
	CountUsers(ctx context.Context) (int, error)
}

// userRepository implements UserRepository with hand-written MariaDB queries.
// The permission set is stored as a JSON array in a TEXT column; it is small
// (at most a dozen entries) and only read back whole.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user row into the users table.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	perms, err := json.Marshal(user.Permissions)
	if err != nil {
		return fmt.Errorf("encoding permissions: %w", err)
	}

	query := `INSERT INTO users (id, email, name, password_hash, role, permissions, tenant_id, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		string(user.Role),
		string(perms),
		user.TenantID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by their UUID.
// Returns apperror.NotFound if no user exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, email, name, password_hash, role, permissions, tenant_id, created_at, updated_at
	          FROM users WHERE id = ?`

	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return user, nil
}

// FindByEmail retrieves a user by their email address.
// Returns apperror.NotFound if no user exists with this email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, email, name, password_hash, role, permissions, tenant_id, created_at, updated_at
	          FROM users WHERE email = ?`

	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return user, nil
}

// EmailExists checks whether a user with the given email already exists.
func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE email = ?`
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&count); err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}
	return count > 0, nil
}

// ListUsers returns a page of users plus the total count.
func (r *userRepository) ListUsers(ctx context.Context, offset, limit int) ([]User, int, error) {
	total, err := r.CountUsers(ctx)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT id, email, name, password_hash, role, permissions, tenant_id, created_at, updated_at
	          FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, total, nil
}

// UpdateRole changes a user's role and replaces their permission set.
func (r *userRepository) UpdateRole(ctx context.Context, id string, role rbac.Role, permissions []string) error {
	perms, err := json.Marshal(permissions)
	if err != nil {
		return fmt.Errorf("encoding permissions: %w", err)
	}

	query := `UPDATE users SET role = ?, permissions = ?, updated_at = NOW() WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(role), string(perms), id)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// CountUsers returns the total number of users.
func (r *userRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanUser reads one user row, decoding the JSON permissions column.
func (r *userRepository) scanUser(row scanner) (*User, error) {
	var (
		user      User
		role      string
		permsJSON string
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&role,
		&permsJSON,
		&user.TenantID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = rbac.Role(role)
	if err := json.Unmarshal([]byte(permsJSON), &user.Permissions); err != nil {
		return nil, fmt.Errorf("decoding permissions for user %s: %w", user.ID, err)
	}
	return &user, nil
}
