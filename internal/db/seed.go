package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/eduai/internal/domain/user"
	"github.com/geocoder89/eduai/internal/security"
	"github.com/google/uuid"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) error
}

type DemoUser struct {
	Email    string
	Password string
	Name     string
	Role     user.Role
}

var DemoUsers = []DemoUser{
	{Email: "admin@eduai.com", Password: "admin123", Name: "Admin User", Role: user.RoleAdmin},
	{Email: "professor@eduai.com", Password: "prof123", Name: "Professor Smith", Role: user.RoleProfessor},
	{Email: "student@eduai.com", Password: "student123", Name: "John Student", Role: user.RoleStudent},
}

// SeedUsers creates each account that does not exist yet and returns how
// many were inserted.
func SeedUsers(ctx context.Context, store UserStore, users []DemoUser, cost int) (int, error) {
	created := 0

	for _, du := range users {
		email := user.NormalizeEmail(du.Email)

		_, err := store.GetByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, user.ErrNotFound) {
			return created, fmt.Errorf("lookup %s: %w", email, err)
		}

		hash, err := security.HashPasswordWithCost(du.Password, cost)
		if err != nil {
			return created, err
		}

		now := time.Now().UTC()
		err = store.Create(ctx, user.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			Name:         du.Name,
			Role:         du.Role,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil && !errors.Is(err, user.ErrEmailTaken) {
			return created, fmt.Errorf("create %s: %w", email, err)
		}
		if err == nil {
			created++
		}
	}

	return created, nil
}
