package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/model"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	query := `INSERT INTO users (id, login, role, password_hash) VALUES ($1, $2, $3, $4) RETURNING created_at`
	if err := r.db.QueryRowContext(ctx, query, u.ID, u.Login, u.Role, u.PasswordHash).Scan(&u.CreatedAt); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return model.User{}, ErrLoginTaken
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (model.User, error) {
	query := `SELECT id, login, role, password_hash, created_at FROM users WHERE login = $1`

	var u model.User
	err := r.db.QueryRowContext(ctx, query, login).Scan(&u.ID, &u.Login, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
