package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core"
)

// Service wraps the external identity stream for the lifetime of the process.
// It holds the current identity, fans identity changes out to the data
// engines, and owns sign-up/sign-in/sign-out. Provider errors are surfaced
// verbatim; there are no retries.
type Service struct {
	provider AuthProvider
	logger   core.Logger

	mu           sync.Mutex
	identity     *Identity
	loading      bool
	err          error
	listeners    map[int]func(*Identity)
	nextListener int
	unsub        func()
	disposed     bool
}

var _ Stream = (*Service)(nil)

func NewService(provider AuthProvider, logger core.Logger) *Service {
	svc := &Service{
		provider:  provider,
		logger:    logger,
		loading:   true, // until the first provider notification
		listeners: make(map[int]func(*Identity)),
	}
	svc.unsub = provider.OnIdentityChange(svc.onProviderChange)
	return svc
}

func (svc *Service) onProviderChange(ident *Identity) {
	svc.mu.Lock()
	if svc.disposed {
		svc.mu.Unlock()
		return
	}
	svc.setIdentityLocked(ident)
	fns := svc.listenersLocked()
	svc.mu.Unlock()

	for _, fn := range fns {
		fn(copyIdentity(ident))
	}
}

func (svc *Service) setIdentityLocked(ident *Identity) {
	svc.identity = copyIdentity(ident)
	svc.loading = false
}

func (svc *Service) listenersLocked() []func(*Identity) {
	fns := make([]func(*Identity), 0, len(svc.listeners))
	for _, fn := range svc.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func copyIdentity(ident *Identity) *Identity {
	if ident == nil {
		return nil
	}
	cp := *ident
	return &cp
}

// CurrentIdentity returns the signed-in identity, or nil.
func (svc *Service) CurrentIdentity() *Identity {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return copyIdentity(svc.identity)
}

// Loading reports whether the first provider notification is still pending.
func (svc *Service) Loading() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.loading
}

func (svc *Service) Err() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.err
}

// OnIdentityChanged registers fn on the identity-changed event. It does not
// fire for the current state; callers read CurrentIdentity themselves.
func (svc *Service) OnIdentityChanged(fn func(*Identity)) (unsubscribe func()) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	id := svc.nextListener
	svc.nextListener++
	svc.listeners[id] = fn
	return func() {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		delete(svc.listeners, id)
	}
}

func (svc *Service) setErr(err error) {
	svc.mu.Lock()
	svc.err = err
	svc.mu.Unlock()
}

func (svc *Service) SignUp(ctx context.Context, email, password string) (Identity, error) {
	svc.setErr(nil)
	ident, err := svc.provider.SignUp(ctx, core.CleanString(email, true /* lower */), password)
	if err != nil {
		svc.logger.Debug("sign up failed", err)
		svc.setErr(err)
		return Identity{}, err
	}
	return ident, nil
}

func (svc *Service) SignIn(ctx context.Context, email, password string) (Identity, error) {
	svc.setErr(nil)
	ident, err := svc.provider.SignIn(ctx, core.CleanString(email, true /* lower */), password)
	if err != nil {
		svc.logger.Debug("sign in failed", err)
		svc.setErr(err)
		return Identity{}, err
	}
	return ident, nil
}

// SignOut clears the local identity synchronously before awaiting the
// provider, so dependent engines observe the logout without a round trip.
func (svc *Service) SignOut(ctx context.Context) error {
	svc.mu.Lock()
	svc.err = nil
	svc.setIdentityLocked(nil)
	fns := svc.listenersLocked()
	svc.mu.Unlock()
	for _, fn := range fns {
		fn(nil)
	}

	if err := svc.provider.SignOut(ctx); err != nil {
		svc.logger.Error("signing out", errors.Wrap(err, "provider sign out"))
		svc.setErr(err)
		return err
	}
	return nil
}

// Dispose tears down the provider subscription and drops all listeners.
func (svc *Service) Dispose() {
	svc.mu.Lock()
	if svc.disposed {
		svc.mu.Unlock()
		return
	}
	svc.disposed = true
	unsub := svc.unsub
	svc.unsub = nil
	svc.listeners = make(map[int]func(*Identity))
	svc.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}
