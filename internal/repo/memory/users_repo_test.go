package memory

import (
	"context"
	"testing"

	"github.com/geocoder89/inventoryhub/internal/domain/oid"
	"github.com/geocoder89/inventoryhub/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersRepo(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	u := user.New("ann", "ann@example.com", "hash")
	require.NoError(t, r.Create(ctx, u))

	byEmail, err := r.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u, byEmail)

	byID, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, byID)

	assert.ErrorIs(t, r.Create(ctx, user.New("other", "ann@example.com", "h2")), user.ErrEmailTaken)
	assert.ErrorIs(t, r.Create(ctx, user.New("other", "ANN@example.com", "h3")), user.ErrEmailTaken)
	assert.Equal(t, 1, r.Count())

	mixed, err := r.GetByEmail(ctx, "Ann@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, mixed.ID)

	_, err = r.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = r.GetByID(ctx, oid.New())
	assert.ErrorIs(t, err, user.ErrNotFound)
}
