package user

import (
	"errors"

	"github.com/geocoder89/inventoryhub/internal/domain/oid"
)

const DefaultRole = "user"

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already exists")
)

type User struct {
	ID           oid.ID `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // never expose hash in JSON
	Role         string `json:"role"`
}

// Summary is the public view returned on login.
type Summary struct {
	ID       oid.ID `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// New builds a user with a fresh id and the default role.
func New(username, email, passwordHash string) User {
	return User{
		ID:           oid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         DefaultRole,
	}
}
