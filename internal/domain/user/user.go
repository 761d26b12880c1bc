package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for account operations.
var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrBadCredential = errors.New("invalid email or password")
)

// User is a storefront account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Admin        bool
	Verified     bool
	CreatedAt    time.Time
}

// Repository defines account persistence.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	MarkVerified(ctx context.Context, id int64) error
}
