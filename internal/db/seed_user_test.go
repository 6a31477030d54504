package db_test

import (
	"context"
	"testing"

	"github.com/geocoder89/inventoryhub/internal/config"
	"github.com/geocoder89/inventoryhub/internal/db"
	"github.com/geocoder89/inventoryhub/internal/repo/memory"
	"github.com/geocoder89/inventoryhub/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSeedUser_SkipsWhenNotConfigured(t *testing.T) {
	users := memory.NewUsersRepo()

	created, err := db.EnsureSeedUser(context.Background(), users, config.Config{})

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, users.Count())
}

func TestEnsureSeedUser_CreatesOnce(t *testing.T) {
	users := memory.NewUsersRepo()
	cfg := config.Config{
		SeedEmail:    " Admin@Example.com ",
		SeedPassword: "s3cret-pass",
		SeedName:     "admin",
		SeedRole:     "admin",
	}

	created, err := db.EnsureSeedUser(context.Background(), users, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.EnsureSeedUser(context.Background(), users, cfg)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, users.Count())

	u, err := users.GetByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)
	assert.Equal(t, "admin", u.Username)
	assert.NoError(t, security.CheckPassword(u.PasswordHash, "s3cret-pass"))
}
