package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"learning_assist/internal/models"
)

const userColumns = `user_id, email, password_hash, salt, name, user_type,
       class_access, school_id, phone_number, is_active,
       created_at, updated_at, last_login`

// UserRepository handles user account database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. A unique-constraint violation on email is
// reported as ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.conn.ExecContext(ctx, query,
		u.UserID, u.Email, u.PasswordHash, u.Salt, u.Name, u.UserType,
		u.ClassAccess, u.SchoolID, u.PhoneNumber, u.IsActive,
		u.CreatedAt, u.UpdatedAt, u.LastLogin,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by normalized email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	err := r.db.conn.GetContext(ctx, &u, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

// GetByPhone retrieves a user by normalized 10-digit phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var u models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE phone_number = $1`

	err := r.db.conn.GetContext(ctx, &u, query, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return &u, nil
}

// UpdateLastLogin records the most recent login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, when time.Time) error {
	query := `UPDATE users SET last_login = $2, updated_at = $2 WHERE user_id = $1`

	res, err := r.db.conn.ExecContext(ctx, query, userID, when)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}
