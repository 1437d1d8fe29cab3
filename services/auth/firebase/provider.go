package firebaseauth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
)

const identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

// Provider is a session.AuthProvider backed by the Firebase Identity Toolkit
// REST API. There is no official Go client for the end-user flows, so this
// wraps the two endpoints we need directly.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client

	mu           sync.Mutex
	current      *session.Identity
	listeners    map[int]func(*session.Identity)
	nextListener int
}

var _ session.AuthProvider = (*Provider)(nil)

func NewProvider(conf *core.Config) *Provider {
	return &Provider{
		apiKey:    conf.Auth.APIKey,
		baseURL:   identityToolkitURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		listeners: make(map[int]func(*session.Identity)),
	}
}

type authRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type authResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// mapError translates Identity Toolkit error codes onto the session error
// kinds. Codes sometimes carry a suffix ("WEAK_PASSWORD : ..."), hence the
// prefix match.
func mapError(code string) error {
	switch {
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return session.ErrEmailTaken
	case strings.HasPrefix(code, "INVALID_EMAIL"), strings.HasPrefix(code, "MISSING_EMAIL"):
		return session.ErrInvalidEmail
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(code, "INVALID_PASSWORD"),
		strings.HasPrefix(code, "INVALID_LOGIN_CREDENTIALS"):
		return session.ErrInvalidCredentials
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return session.ErrWeakPassword
	case strings.HasPrefix(code, "USER_DISABLED"):
		return session.ErrUserDisabled
	}
	return errors.New("authentication failed: " + code)
}

func (p *Provider) call(ctx context.Context, endpoint, email, password string) (session.Identity, error) {
	body, err := json.Marshal(authRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return session.Identity{}, errors.Wrap(err, "encoding auth request")
	}

	url := p.baseURL + "/" + endpoint + "?key=" + p.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return session.Identity{}, errors.Wrap(err, "building auth request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return session.Identity{}, errors.Wrap(err, "calling identity toolkit")
	}
	defer func() { _ = resp.Body.Close() }()

	var out authResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return session.Identity{}, errors.Wrap(err, "decoding auth response")
	}
	if out.Error != nil {
		return session.Identity{}, mapError(out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return session.Identity{}, errors.Errorf("identity toolkit returned %s", resp.Status)
	}
	return session.Identity{ID: out.LocalID, Email: out.Email}, nil
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (session.Identity, error) {
	ident, err := p.call(ctx, "accounts:signUp", email, password)
	if err != nil {
		return session.Identity{}, err
	}
	p.setCurrent(&ident)
	return ident, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (session.Identity, error) {
	ident, err := p.call(ctx, "accounts:signInWithPassword", email, password)
	if err != nil {
		return session.Identity{}, err
	}
	p.setCurrent(&ident)
	return ident, nil
}

// SignOut drops the local identity. The Identity Toolkit has no server-side
// session to revoke for password sign-in.
func (p *Provider) SignOut(context.Context) error {
	p.setCurrent(nil)
	return nil
}

func (p *Provider) OnIdentityChange(fn func(*session.Identity)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn
	current := p.current
	p.mu.Unlock()

	fn(copyIdentity(current)) // initial state
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Provider) setCurrent(ident *session.Identity) {
	p.mu.Lock()
	p.current = copyIdentity(ident)
	fns := make([]func(*session.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

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
