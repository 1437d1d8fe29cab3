package dummydb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/studyhub/core/notes"
)

// NotesRepository is an in-memory notes.Repository for tests.
type NotesRepository struct {
	mu    sync.Mutex
	notes []notes.Note
	err   error
	now   func() time.Time
}

var _ notes.Repository = (*NotesRepository)(nil)

func NewNotesRepository() *NotesRepository {
	return &NotesRepository{now: time.Now}
}

// SetError makes every following call fail with err until reset with nil.
func (repo *NotesRepository) SetError(err error) {
	repo.mu.Lock()
	repo.err = err
	repo.mu.Unlock()
}

func (repo *NotesRepository) SetNow(now func() time.Time) {
	repo.mu.Lock()
	repo.now = now
	repo.mu.Unlock()
}

func (repo *NotesRepository) CreateNote(ctx context.Context, note notes.Note) (notes.Note, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.err != nil {
		return notes.Note{}, repo.err
	}
	note.ID = uuid.New().String()
	note.CreatedAt = repo.now().UTC()
	repo.notes = append(repo.notes, note)
	return note, nil
}

func (repo *NotesRepository) FilterNotes(ctx context.Context, userID, subjectID string) ([]notes.Note, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.err != nil {
		return nil, repo.err
	}
	var out []notes.Note
	for _, n := range repo.notes {
		if n.UserID == userID && n.SubjectID == subjectID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (repo *NotesRepository) DeleteNote(ctx context.Context, id, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.err != nil {
		return repo.err
	}
	for i, n := range repo.notes {
		if n.ID == id && n.UserID == userID {
			repo.notes = append(repo.notes[:i], repo.notes[i+1:]...)
			return nil
		}
	}
	return notes.ErrNotFound
}
