package session_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
	dummyauth "github.com/studyhub/studyhub/services/auth/dummy"
)

func setup(t *testing.T) (*session.Service, *dummyauth.Provider) {
	t.Helper()
	provider := dummyauth.NewProvider()
	svc := session.NewService(provider, core.NewNopLogger())
	t.Cleanup(svc.Dispose)
	return svc, provider
}

func TestService_initialNotificationClearsLoading(t *testing.T) {
	svc, _ := setup(t)

	// the dummy provider delivers the initial (signed out) state on subscribe
	assert.False(t, svc.Loading())
	assert.Nil(t, svc.CurrentIdentity())
}

func TestService_SignUp(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	ident, err := svc.SignUp(ctx, "Ann@Example.COM", "s3cret!")
	assert.NoError(t, err)
	assert.Equal(t, "ann@example.com", ident.Email)
	assert.NotEmpty(t, ident.ID)

	current := svc.CurrentIdentity()
	if assert.NotNil(t, current) {
		assert.Equal(t, ident.ID, current.ID)
	}

	// duplicate email surfaces the provider error verbatim
	_, err = svc.SignUp(ctx, "ann@example.com", "s3cret!")
	assert.Equal(t, session.ErrEmailTaken, err)
	assert.Equal(t, session.ErrEmailTaken, svc.Err())
}

func TestService_SignIn(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@example.com", "s3cret!")
	assert.NoError(t, err)
	assert.NoError(t, svc.SignOut(ctx))

	_, err = svc.SignIn(ctx, "ann@example.com", "wrong")
	assert.Equal(t, session.ErrInvalidCredentials, err)
	assert.Nil(t, svc.CurrentIdentity())

	ident, err := svc.SignIn(ctx, "ann@example.com", "s3cret!")
	assert.NoError(t, err)
	assert.NotNil(t, svc.CurrentIdentity())
	assert.Equal(t, ident.ID, svc.CurrentIdentity().ID)
}

func TestService_SignOutClearsIdentitySynchronously(t *testing.T) {
	svc, provider := setup(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@example.com", "s3cret!")
	assert.NoError(t, err)

	// even if the provider call fails, the local identity is already gone
	provider.SetError(errors.New("network down"))
	err = svc.SignOut(ctx)
	assert.Error(t, err)
	assert.Nil(t, svc.CurrentIdentity())
	provider.SetError(nil)
}

func TestService_OnIdentityChanged(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	var events []*session.Identity
	unsub := svc.OnIdentityChanged(func(ident *session.Identity) {
		events = append(events, ident)
	})

	_, err := svc.SignUp(ctx, "ann@example.com", "s3cret!")
	assert.NoError(t, err)
	assert.NoError(t, svc.SignOut(ctx))

	// sign up event + synchronous sign-out event + provider sign-out event
	if assert.GreaterOrEqual(t, len(events), 2) {
		assert.NotNil(t, events[0])
		assert.Equal(t, "ann@example.com", events[0].Email)
		assert.Nil(t, events[len(events)-1])
	}

	n := len(events)
	unsub()
	_, err = svc.SignUp(ctx, "bob@example.com", "s3cret!")
	assert.NoError(t, err)
	assert.Len(t, events, n, "unsubscribed listener must not fire")
}
