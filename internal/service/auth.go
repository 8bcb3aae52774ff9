package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/database"
	"storefront/internal/model"
)

var ErrInvalidCredentials = errors.New("invalid login or password")

type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByLogin(ctx context.Context, login string) (model.User, error)
}

type AuthService struct {
	users UserRepository
}

func NewAuthService(users UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Register creates an account. database.ErrLoginTaken is passed through.
func (s *AuthService) Register(ctx context.Context, login, password string, role model.Role) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		ID:           uuid.NewString(),
		Login:        login,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// EnsureAdmin creates the bootstrap administrator unless the login exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, login, password string) error {
	if login == "" || password == "" {
		return nil
	}
	_, err := s.Register(ctx, login, password, model.RoleAdmin)
	if errors.Is(err, database.ErrLoginTaken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	slog.Info("admin account created", "login", login)
	return nil
}
