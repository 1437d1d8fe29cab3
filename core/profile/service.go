package profile

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
)

// Service mirrors the identity's profile document. While an identity is set it
// holds a live snapshot subscription; the subscription is the sole writer of
// the mirrored profile, so local state never diverges from committed server
// state. Create/Update write through and wait for the snapshot to fire.
type Service struct {
	store  core.Docstore
	logger core.Logger

	mu            sync.Mutex
	identity      *session.Identity
	profile       *Profile
	profileExists bool
	loading       bool
	err           error
	docUnsub      func()
	sessUnsub     func()
}

func NewService(sess session.Stream, store core.Docstore, logger core.Logger) *Service {
	svc := &Service{
		store:   store,
		logger:  logger,
		loading: true,
	}
	svc.sessUnsub = sess.OnIdentityChanged(svc.onIdentityChanged)
	if !sess.Loading() {
		svc.onIdentityChanged(sess.CurrentIdentity())
	}
	return svc
}

func userDocPath(uid string) string { return "users/" + uid }

func (svc *Service) onIdentityChanged(ident *session.Identity) {
	svc.mu.Lock()
	// tear down the previous listener before anything else; at most one
	// listener may ever be active
	if svc.docUnsub != nil {
		unsub := svc.docUnsub
		svc.docUnsub = nil
		svc.mu.Unlock()
		unsub()
		svc.mu.Lock()
	}

	if ident == nil {
		svc.identity = nil
		svc.profile = nil
		svc.profileExists = false
		svc.err = nil
		svc.loading = false
		svc.mu.Unlock()
		return
	}

	cp := *ident
	svc.identity = &cp
	svc.loading = true
	svc.err = nil
	uid := ident.ID
	svc.mu.Unlock()

	unsub := svc.store.Snapshots(userDocPath(uid), func(doc core.Document, err error) {
		svc.onSnapshot(uid, doc, err)
	})

	svc.mu.Lock()
	if svc.identity == nil || svc.identity.ID != uid {
		// identity changed while subscribing; drop the stale listener
		svc.mu.Unlock()
		unsub()
		return
	}
	svc.docUnsub = unsub
	svc.mu.Unlock()
}

func (svc *Service) onSnapshot(uid string, doc core.Document, err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.identity == nil || svc.identity.ID != uid {
		return // stale delivery for a previous identity
	}

	svc.loading = false
	if err != nil {
		svc.logger.Error("profile snapshot", errors.Wrap(err, "listening to profile document"))
		svc.err = err
		svc.profile = nil
		svc.profileExists = false
		return
	}

	svc.err = nil
	if !doc.Exists {
		// new user, no document yet
		svc.profile = nil
		svc.profileExists = false
		return
	}
	if data := doc.Map("profile"); data != nil {
		p := fromData(data)
		svc.profile = &p
		svc.profileExists = true
	} else {
		// document exists but has no profile field (legacy/incomplete record)
		svc.profile = nil
		svc.profileExists = false
	}
}

func (svc *Service) currentUID() (string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.identity == nil {
		return "", core.ErrUnauthenticated
	}
	return svc.identity.ID, nil
}

// Create writes a brand new profile document. Local state is deliberately not
// touched: the snapshot listener applies the committed result.
func (svc *Service) Create(ctx context.Context, np NewProfile) error {
	uid, err := svc.currentUID()
	if err != nil {
		return err
	}
	if err := np.Validate(); err != nil {
		return err
	}

	svc.setErr(nil)
	data := map[string]interface{}{
		"profile":   np.data(),
		"createdAt": core.ServerTimestamp,
		"updatedAt": core.ServerTimestamp,
	}
	if err := svc.store.Set(ctx, userDocPath(uid), data); err != nil {
		svc.logger.Error("creating profile", errors.Wrap(err, "writing profile document"))
		svc.setErr(err)
		return errors.Wrap(err, "creating profile")
	}
	return nil
}

// Update replaces the profile field of the existing document.
func (svc *Service) Update(ctx context.Context, np NewProfile) error {
	uid, err := svc.currentUID()
	if err != nil {
		return err
	}
	if err := np.Validate(); err != nil {
		return err
	}

	svc.setErr(nil)
	data := map[string]interface{}{
		"profile":   np.data(),
		"updatedAt": core.ServerTimestamp,
	}
	if err := svc.store.Update(ctx, userDocPath(uid), data); err != nil {
		svc.logger.Error("updating profile", errors.Wrap(err, "updating profile document"))
		svc.setErr(err)
		return errors.Wrap(err, "updating profile")
	}
	return nil
}

func (svc *Service) setErr(err error) {
	svc.mu.Lock()
	svc.err = err
	svc.mu.Unlock()
}

// Profile returns the mirrored profile, or nil when none exists.
func (svc *Service) Profile() *Profile {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.profile == nil {
		return nil
	}
	cp := *svc.profile
	return &cp
}

// ProfileExists reports whether the profile field is present on the document.
func (svc *Service) ProfileExists() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.profileExists
}

// IsComplete reports whether a profile exists with every field filled in.
func (svc *Service) IsComplete() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.profile != nil && svc.profile.IsComplete()
}

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

// Dispose tears down the session and snapshot subscriptions.
func (svc *Service) Dispose() {
	if svc.sessUnsub != nil {
		svc.sessUnsub()
	}
	svc.onIdentityChanged(nil)
}
