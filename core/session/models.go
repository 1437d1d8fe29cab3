package session

import (
	"context"
	"errors"
)

// Auth provider error kinds. Adapters map their wire errors onto these so
// the presentation layer can translate them; anything else is surfaced verbatim.
var (
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrUserDisabled       = errors.New("account disabled")
)

// Identity is the authenticated principal issued by the external auth
// provider. Its ID is the owner tag stamped on every record.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type (
	// AuthProvider is the external identity provider.
	AuthProvider interface {
		SignUp(ctx context.Context, email, password string) (Identity, error)
		SignIn(ctx context.Context, email, password string) (Identity, error)
		SignOut(ctx context.Context) error
		// OnIdentityChange subscribes to the identity stream. The callback
		// receives every change, including the initial state; nil means
		// signed out.
		OnIdentityChange(fn func(*Identity)) (unsubscribe func())
	}

	// Stream is the read side of a session: the identity feed the data
	// engines subscribe to for their resync/clear lifecycle.
	Stream interface {
		CurrentIdentity() *Identity
		Loading() bool
		OnIdentityChanged(fn func(*Identity)) (unsubscribe func())
	}
)
