package echoapi

import (
	"sync"

	"github.com/studyhub/studyhub/core/notes"
	"github.com/studyhub/studyhub/core/profile"
	"github.com/studyhub/studyhub/core/session"
	"github.com/studyhub/studyhub/core/studyplan"
)

// staticStream presents a token-derived identity as a session.Stream. The
// identity never changes for the lifetime of the engine set built on it.
type staticStream struct {
	ident session.Identity
}

var _ session.Stream = (*staticStream)(nil)

func (st *staticStream) CurrentIdentity() *session.Identity {
	cp := st.ident
	return &cp
}

func (st *staticStream) Loading() bool { return false }

func (st *staticStream) OnIdentityChanged(func(*session.Identity)) (unsubscribe func()) {
	return func() {}
}

// engineSet is one identity's data engines.
type engineSet struct {
	profile *profile.Service
	plan    *studyplan.Service
	notes   *notes.Service
}

func (set *engineSet) dispose() {
	set.notes.Dispose()
	set.plan.Dispose()
	set.profile.Dispose()
}

// registry builds and caches an engineSet per identity. Sets are built lazily
// on the first authenticated request and torn down on sign-out.
type registry struct {
	opts *Options

	mu   sync.Mutex
	sets map[string]*engineSet
}

func newRegistry(opts *Options) *registry {
	return &registry{
		opts: opts,
		sets: make(map[string]*engineSet),
	}
}

func (reg *registry) get(ident session.Identity) *engineSet {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if set, ok := reg.sets[ident.ID]; ok {
		return set
	}

	stream := &staticStream{ident: ident}
	set := &engineSet{
		profile: profile.NewService(stream, reg.opts.Docstore, reg.opts.Logger),
		plan:    studyplan.NewService(stream, reg.opts.Docstore, reg.opts.Logger),
		notes:   notes.NewService(stream, reg.opts.NotesRepo, reg.opts.Files, reg.opts.Logger),
	}
	reg.sets[ident.ID] = set
	return set
}

func (reg *registry) drop(identID string) {
	reg.mu.Lock()
	set, ok := reg.sets[identID]
	delete(reg.sets, identID)
	reg.mu.Unlock()

	if ok {
		set.dispose()
	}
}

func (reg *registry) disposeAll() {
	reg.mu.Lock()
	sets := reg.sets
	reg.sets = make(map[string]*engineSet)
	reg.mu.Unlock()

	for _, set := range sets {
		set.dispose()
	}
}
