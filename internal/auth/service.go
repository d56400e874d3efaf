package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MrSuraphong/library-testing/internal/model"
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, profilePicture, bio string) (*model.User, error)
}

// Service handles account registration, login and profile updates.
type Service struct {
	users UserStore
}

// NewService constructs a Service.
func NewService(users UserStore) *Service {
	return &Service{users: users}
}

// Register creates a new account. Role defaults to member; only the two
// known roles are accepted.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(req.Password) < 4 {
		return nil, fmt.Errorf("password must be at least 4 characters")
	}
	role := req.Role
	if role == "" {
		role = model.RoleMember
	}
	if role != model.RoleMember && role != model.RoleAdmin {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials and issues a token.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, fmt.Errorf("invalid username or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, fmt.Errorf("invalid username or password")
	}

	token, err := GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &model.LoginResponse{Token: token, User: user}, nil
}

// UpdateProfile replaces the user's mutable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, id, profilePicture, bio string) (*model.User, error) {
	return s.users.UpdateUser(ctx, id, profilePicture, bio)
}
