package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/inventoryhub/internal/domain/oid"
	"github.com/geocoder89/inventoryhub/internal/domain/user"
	"github.com/geocoder89/inventoryhub/internal/security"
)

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CredentialStore persists users. Create must fail with user.ErrEmailTaken
// when the email is already present, atomically with the insert.
type CredentialStore interface {
	Create(ctx context.Context, u user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id oid.ID) (user.User, error)
}

type Authenticator struct {
	users  CredentialStore
	tokens *Manager

	// compared against when the email is unknown so both failure paths cost a bcrypt check
	dummyHash string
}

func NewAuthenticator(users CredentialStore, tokens *Manager) *Authenticator {
	dummy, _ := security.HashPassword("inventoryhub-timing-equaliser")

	return &Authenticator{
		users:     users,
		tokens:    tokens,
		dummyHash: dummy,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Authenticator) Register(ctx context.Context, username, email, password string) (oid.ID, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	if username == "" || email == "" || password == "" {
		return oid.Nil, ErrMissingFields
	}

	// friendly pre-check; the store's unique constraint is what actually guards the race
	_, err := a.users.GetByEmail(ctx, email)
	if err == nil {
		return oid.Nil, user.ErrEmailTaken
	}
	if !errors.Is(err, user.ErrNotFound) {
		return oid.Nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return oid.Nil, err
	}

	u := user.New(username, email, hash)

	if err := a.users.Create(ctx, u); err != nil {
		return oid.Nil, err
	}

	return u.ID, nil
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (string, user.Summary, error) {
	email = NormalizeEmail(email)

	if email == "" || password == "" {
		return "", user.Summary{}, ErrMissingFields
	}

	found, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			_ = security.CheckPassword(a.dummyHash, password)
			return "", user.Summary{}, ErrInvalidCredentials
		}
		return "", user.Summary{}, err
	}

	if err := security.CheckPassword(found.PasswordHash, password); err != nil {
		return "", user.Summary{}, ErrInvalidCredentials
	}

	token, err := a.tokens.GenerateAccessToken(found.ID.String(), found.Email, found.Role)
	if err != nil {
		return "", user.Summary{}, err
	}

	return token, found.Summary(), nil
}

// Identify resolves the user named by a verified token subject.
func (a *Authenticator) Identify(ctx context.Context, userID string) (user.User, error) {
	id, err := oid.Parse(userID)
	if err != nil {
		return user.User{}, ErrInvalidToken
	}

	return a.users.GetByID(ctx, id)
}
