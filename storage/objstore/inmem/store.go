package inmemobj

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core/notes"
)

// Store is an in-memory notes.FileStorage for tests. Objects are kept whole
// in a map keyed by path.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

var _ notes.FileStorage = (*Store)(nil)

func NewStore() *Store {
	return &Store{objects: make(map[string][]byte)}
}

// SetError makes every following call fail with err until reset with nil.
func (st *Store) SetError(err error) {
	st.mu.Lock()
	st.err = err
	st.mu.Unlock()
}

func (st *Store) Upload(ctx context.Context, path, contentType string, size int64, content io.Reader) error {
	st.mu.Lock()
	err := st.err
	st.mu.Unlock()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return errors.Wrap(err, "reading upload")
	}

	st.mu.Lock()
	st.objects[path] = data
	st.mu.Unlock()
	return nil
}

func (st *Store) PublicURL(path string) string {
	return "mem://" + path
}

func (st *Store) Remove(ctx context.Context, path string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.err != nil {
		return st.err
	}
	delete(st.objects, path)
	return nil
}

// Object returns a stored object's content, for assertions.
func (st *Store) Object(path string) ([]byte, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	data, ok := st.objects[path]
	return data, ok
}

// Len reports the number of stored objects.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.objects)
}
