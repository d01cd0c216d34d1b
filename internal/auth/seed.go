package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// EnsureAdmin makes sure an admin account exists for email. An existing user
// with that email is promoted; the password is only set on creation.
func EnsureAdmin(ctx context.Context, repo *Repo, username, email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("admin email and password required")
	}

	existing, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Role != RoleAdmin {
			if err := repo.SetRole(ctx, existing.ID, RoleAdmin); err != nil {
				return nil, err
			}
			existing.Role = RoleAdmin
		}
		return existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	if username == "" {
		username = "admin"
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleAdmin,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}
