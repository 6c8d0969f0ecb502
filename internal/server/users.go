package server

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MrEthical07/goSession/password"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// User is the session payload served by GET /session/data.
type User struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

func (u User) Clone() User {
	u.Roles = slices.Clone(u.Roles)
	return u
}

type userEntry struct {
	user User
	hash string
}

// UserTable checks login credentials against Argon2id hashes.
type UserTable struct {
	hasher *password.Hasher
	users  map[string]userEntry
	// decoy is verified for unknown names so both paths cost one Argon2 run.
	decoy string
}

// NewUserTable hashes any plain-text passwords in users.
func NewUserTable(hasher *password.Hasher, users []UserConfig) (*UserTable, error) {
	decoy, err := hasher.Hash("sessiond-decoy-password")
	if err != nil {
		return nil, err
	}

	t := &UserTable{
		hasher: hasher,
		users:  make(map[string]userEntry, len(users)),
		decoy:  decoy,
	}
	for _, u := range users {
		hash := u.PasswordHash
		if hash == "" {
			if hash, err = hasher.Hash(u.Password); err != nil {
				return nil, fmt.Errorf("hash password for %q: %w", u.Name, err)
			}
		}
		t.users[u.Name] = userEntry{
			user: User{ID: u.ID, Name: u.Name, Roles: slices.Clone(u.Roles)},
			hash: hash,
		}
	}
	return t, nil
}

// Authenticate returns the user for name when plain matches its hash.
func (t *UserTable) Authenticate(name, plain string) (User, error) {
	entry, ok := t.users[name]
	hash := entry.hash
	if !ok {
		hash = t.decoy
	}

	match, err := t.hasher.Verify(plain, hash)
	if err != nil {
		return User{}, fmt.Errorf("verify password for %q: %w", name, err)
	}
	if !ok || !match {
		return User{}, ErrInvalidCredentials
	}
	return entry.user.Clone(), nil
}

func (t *UserTable) Len() int {
	return len(t.users)
}
