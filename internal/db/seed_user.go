package db

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/inventoryhub/internal/config"
	"github.com/geocoder89/inventoryhub/internal/domain/user"
	"github.com/geocoder89/inventoryhub/internal/security"
)

type SeedStore interface {
	Create(ctx context.Context, u user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// EnsureSeedUser creates the bootstrap account from SEED_USER_* when it is configured and missing.
func EnsureSeedUser(ctx context.Context, users SeedStore, cfg config.Config) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.SeedEmail))

	if email == "" || cfg.SeedPassword == "" {
		return false, nil
	}

	// check if the user exists
	_, err := users.GetByEmail(ctx, email)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.SeedPassword)

	if err != nil {
		return false, err
	}

	name := cfg.SeedName
	if name == "" {
		name = email
	}

	u := user.New(name, email, hash)
	if cfg.SeedRole != "" {
		u.Role = cfg.SeedRole
	}

	err = users.Create(ctx, u)

	// another instance won the race
	if errors.Is(err, user.ErrEmailTaken) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
