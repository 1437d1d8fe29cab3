package dummyauth

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
)

const minPasswordLen = 6

type account struct {
	id           string
	email        string
	passwordHash []byte
}

// Provider is an in-memory session.AuthProvider with a real identity-change
// stream. It backs tests, local development and the admin CLI.
type Provider struct {
	mu           sync.Mutex
	accounts     map[string]*account // keyed by email
	current      *session.Identity
	listeners    map[int]func(*session.Identity)
	nextListener int
	err          error
}

var _ session.AuthProvider = (*Provider)(nil)

func NewProvider() *Provider {
	return &Provider{
		accounts:  make(map[string]*account),
		listeners: make(map[int]func(*session.Identity)),
	}
}

// SetError forces every subsequent call to fail with err until reset with nil.
func (p *Provider) SetError(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *Provider) SignUp(_ context.Context, email, password string) (session.Identity, error) {
	email = core.CleanString(email, true /* lower */)

	p.mu.Lock()
	if p.err != nil {
		defer p.mu.Unlock()
		return session.Identity{}, p.err
	}
	if email == "" {
		p.mu.Unlock()
		return session.Identity{}, session.ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		p.mu.Unlock()
		return session.Identity{}, session.ErrWeakPassword
	}
	if _, ok := p.accounts[email]; ok {
		p.mu.Unlock()
		return session.Identity{}, session.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		p.mu.Unlock()
		return session.Identity{}, err
	}
	acc := &account{id: uuid.NewString(), email: email, passwordHash: hash}
	p.accounts[email] = acc
	ident := session.Identity{ID: acc.id, Email: acc.email}
	fns := p.setCurrentLocked(&ident)
	p.mu.Unlock()

	notify(fns, &ident)
	return ident, nil
}

func (p *Provider) SignIn(_ context.Context, email, password string) (session.Identity, error) {
	email = core.CleanString(email, true /* lower */)

	p.mu.Lock()
	if p.err != nil {
		defer p.mu.Unlock()
		return session.Identity{}, p.err
	}
	acc, ok := p.accounts[email]
	if !ok {
		p.mu.Unlock()
		return session.Identity{}, session.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		p.mu.Unlock()
		return session.Identity{}, session.ErrInvalidCredentials
	}
	ident := session.Identity{ID: acc.id, Email: acc.email}
	fns := p.setCurrentLocked(&ident)
	p.mu.Unlock()

	notify(fns, &ident)
	return ident, nil
}

func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	if p.err != nil {
		defer p.mu.Unlock()
		return p.err
	}
	fns := p.setCurrentLocked(nil)
	p.mu.Unlock()

	notify(fns, nil)
	return nil
}

// OnIdentityChange registers fn and delivers the current state immediately,
// matching the hosted provider's initial notification.
func (p *Provider) OnIdentityChange(fn func(*session.Identity)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn
	current := copyIdentity(p.current)
	p.mu.Unlock()

	fn(current)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Provider) setCurrentLocked(ident *session.Identity) []func(*session.Identity) {
	p.current = copyIdentity(ident)
	fns := make([]func(*session.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(*session.Identity), ident *session.Identity) {
	for _, fn := range fns {
		fn(copyIdentity(ident))
	}
}

func copyIdentity(ident *session.Identity) *session.Identity {
	if ident == nil {
		return nil
	}
	cp := *ident
	return &cp
}
