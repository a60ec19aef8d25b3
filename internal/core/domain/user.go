package domain

import (
	"errors"
	"time"
)

// FederatedPassword is stored in place of a password hash for records whose
// credentials live with the external identity authority.
const FederatedPassword = "firebase"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// UserRecord is the persisted user. Email is the business key: the store holds
// at most one record per exact email value.
type UserRecord struct {
	ID                  int64     `json:"id"`
	Email               string    `json:"email"`
	PasswordPlaceholder string    `json:"-"`
	FirstName           string    `json:"firstName"`
	LastName            string    `json:"lastName"`
	CreatedAt           time.Time `json:"createdAt"`
}

// IsFederated reports whether the record was created from a verified identity
// rather than a local registration.
func (u *UserRecord) IsFederated() bool {
	return u.PasswordPlaceholder == FederatedPassword
}

// NewUser carries the fields a caller supplies when creating a record. ID and
// CreatedAt are assigned by the store.
type NewUser struct {
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string // empty for federated users
}

// StoredPassword returns the value persisted in the password column.
func (n NewUser) StoredPassword() string {
	if n.PasswordHash == "" {
		return FederatedPassword
	}
	return n.PasswordHash
}
