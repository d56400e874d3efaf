package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSuraphong/library-testing/internal/lending"
	"github.com/MrSuraphong/library-testing/internal/model"
)

const userColumns = `id, username, password_hash, role, profile_picture, bio, created_at`

// UserRepository handles persistence for user accounts.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.ProfilePicture, &u.Bio, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user, failing with lending.ErrConflict on a
// duplicate username.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, role, profile_picture, bio, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.PasswordHash, user.Role, user.ProfilePicture, user.Bio, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return lending.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser returns a user by id or lending.ErrNotFound.
func (r *UserRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lending.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username or lending.ErrNotFound.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lending.ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// UpdateUser replaces the mutable profile fields of a user.
func (r *UserRepository) UpdateUser(ctx context.Context, id string, profilePicture, bio string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users SET profile_picture = $2, bio = $3
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, profilePicture, bio,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lending.ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}
