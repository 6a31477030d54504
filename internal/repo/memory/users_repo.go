package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/geocoder89/inventoryhub/internal/domain/oid"
	"github.com/geocoder89/inventoryhub/internal/domain/user"
)

// UsersRepo indexes emails by their lower-cased form, so lookups and the
// duplicate check ignore case like the database stores do.
type UsersRepo struct {
	mu      sync.RWMutex
	byID    map[oid.ID]user.User
	byEmail map[string]oid.ID
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:    make(map[oid.ID]user.User),
		byEmail: make(map[string]oid.ID),
	}
}

// Create checks and inserts under one lock, so duplicate emails cannot race in.
func (r *UsersRepo) Create(_ context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(u.Email)

	if _, taken := r.byEmail[key]; taken {
		return user.ErrEmailTaken
	}

	r.byID[u.ID] = u
	r.byEmail[key] = u.ID

	return nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return r.byID[id], nil
}

func (r *UsersRepo) GetByID(_ context.Context, id oid.ID) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}
