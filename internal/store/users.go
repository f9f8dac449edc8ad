package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// User is a row in the users table.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	EmployeeCode string    `json:"employee_code"`
	Team         string    `json:"team"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser captures the fields supplied at signup.
type NewUser struct {
	FirstName    string
	LastName     string
	Email        string
	EmployeeCode string
	Team         string
	PasswordHash string
	Role         string
}

// UserStore persists user accounts.
type UserStore struct {
	Pool *pgxpool.Pool
}

const userColumns = `id, first_name, last_name, email, employee_code, team, password_hash, role, is_active, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.EmployeeCode, &u.Team,
		&u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}

// Create inserts a new, inactive-by-default account.
func (s UserStore) Create(ctx context.Context, in NewUser) (User, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, employee_code, team, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		in.FirstName, in.LastName, in.Email, in.EmployeeCode, in.Team, in.PasswordHash, in.Role)
	u, err := scanUser(row)
	if err != nil {
		return User{}, mapConstraintErr(err)
	}
	return u, nil
}

// GetByEmail looks up an account by its login email.
func (s UserStore) GetByEmail(ctx context.Context, email string) (User, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetByID looks up an account by primary key.
func (s UserStore) GetByID(ctx context.Context, id int64) (User, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ListPending returns accounts still waiting for admin approval.
func (s UserStore) ListPending(ctx context.Context) ([]User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users WHERE NOT is_active ORDER BY created_at`)
}

// ListAll returns every account, newest first.
func (s UserStore) ListAll(ctx context.Context) ([]User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
}

func (s UserStore) list(ctx context.Context, query string) ([]User, error) {
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Approve activates a pending account and reports whether a row changed.
func (s UserStore) Approve(ctx context.Context, id int64) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE users SET is_active = TRUE WHERE id = $1 AND NOT is_active`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
