package notes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
)

var timeNow = time.Now // mocked in tests

// Service mirrors one subject's notes at a time. Metadata lives in repo, the
// files themselves in files; either may be nil when the integration has no
// credentials, in which case reads come back empty and writes fail with a
// NotConfiguredError.
type Service struct {
	repo   Repository
	files  FileStorage
	logger core.Logger

	mu        sync.Mutex
	identity  *session.Identity
	subjectID string
	notes     []Note
	loading   bool
	err       error
	sessUnsub func()
}

func NewService(sess session.Stream, repo Repository, files FileStorage, logger core.Logger) *Service {
	svc := &Service{
		repo:   repo,
		files:  files,
		logger: logger,
	}
	svc.sessUnsub = sess.OnIdentityChanged(svc.onIdentityChanged)
	if !sess.Loading() {
		svc.onIdentityChanged(sess.CurrentIdentity())
	}
	return svc
}

func (svc *Service) onIdentityChanged(ident *session.Identity) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.identity = nil
	if ident != nil {
		cp := *ident
		svc.identity = &cp
	}
	// notes are loaded on demand per subject, never eagerly
	svc.subjectID = ""
	svc.notes = nil
	svc.loading = false
	svc.err = nil
}

func (svc *Service) currentUID() (string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.identity == nil {
		return "", core.ErrUnauthenticated
	}
	return svc.identity.ID, nil
}

func requireSubject(subjectID string) error {
	if subjectID == "" {
		return core.NewValidationError(ErrSubjectNeeded,
			core.FieldError{Field: "subject_id", Error: ErrSubjectNeeded.Error()})
	}
	return nil
}

// Load replaces the mirror with subjectID's notes, newest first. With no
// repository configured the mirror is simply empty.
func (svc *Service) Load(ctx context.Context, subjectID string) error {
	uid, err := svc.currentUID()
	if err != nil {
		return err
	}
	if err := requireSubject(subjectID); err != nil {
		return err
	}

	svc.mu.Lock()
	svc.subjectID = subjectID
	svc.loading = true
	svc.err = nil
	svc.mu.Unlock()

	var fetched []Note
	if svc.repo != nil {
		fetched, err = svc.repo.FilterNotes(ctx, uid, subjectID)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.identity == nil || svc.identity.ID != uid || svc.subjectID != subjectID {
		return nil // selection moved on; discard
	}
	svc.loading = false
	if err != nil {
		svc.logger.Error("loading notes", err)
		svc.notes = nil
		svc.err = err
		return errors.Wrap(err, "loading notes")
	}
	svc.notes = fetched
	return nil
}

// Add validates the upload, stores the file, then records the metadata. The
// mirror is only updated after both succeed. A metadata failure leaves the
// uploaded file orphaned; the reverse would lose data, an orphan only costs
// space.
func (svc *Service) Add(ctx context.Context, subjectID, subjectName string, up Upload) (Note, error) {
	uid, err := svc.currentUID()
	if err != nil {
		return Note{}, err
	}
	if err := requireSubject(subjectID); err != nil {
		return Note{}, err
	}
	if subjectName = core.CleanString(subjectName); subjectName == "" {
		return Note{}, core.NewValidationError(ErrSubjectUnnamed,
			core.FieldError{Field: "subject_name", Error: ErrSubjectUnnamed.Error()})
	}
	if svc.repo == nil || svc.files == nil {
		return Note{}, core.NewNotConfiguredError("note storage")
	}
	if err := up.Validate(); err != nil {
		return Note{}, err
	}

	path := fmt.Sprintf("notes/%s/%s/%d_%s", uid, subjectID, timeNow().UnixMilli(), up.FileName)
	if err := svc.files.Upload(ctx, path, up.ContentType, up.Size, up.Content); err != nil {
		svc.logger.Error("uploading note file", errors.Wrap(err, "uploading "+path))
		svc.setErr(err)
		return Note{}, errors.Wrap(err, "uploading note file")
	}

	note, err := svc.repo.CreateNote(ctx, Note{
		UserID:      uid,
		SubjectID:   subjectID,
		SubjectName: subjectName,
		FileName:    up.FileName,
		FilePath:    path,
		FileURL:     svc.files.PublicURL(path),
		FileType:    up.ContentType,
		FileSize:    up.Size,
	})
	if err != nil {
		svc.logger.Error("saving note", errors.Wrap(err, "creating note record"))
		svc.setErr(err)
		return Note{}, errors.Wrap(err, "saving note")
	}

	svc.mu.Lock()
	if svc.identity != nil && svc.identity.ID == uid && svc.subjectID == subjectID {
		svc.notes = append([]Note{note}, svc.notes...)
	}
	svc.mu.Unlock()
	return note, nil
}

// Delete removes the metadata record first; only then is the file removed,
// best effort. A failed file removal leaves an orphan and is logged, not
// returned: the note is already gone as far as the user is concerned.
func (svc *Service) Delete(ctx context.Context, noteID string) error {
	uid, err := svc.currentUID()
	if err != nil {
		return err
	}
	if svc.repo == nil {
		return core.NewNotConfiguredError("note storage")
	}

	svc.mu.Lock()
	var filePath string
	for _, n := range svc.notes {
		if n.ID == noteID {
			filePath = n.FilePath
		}
	}
	svc.mu.Unlock()

	if err := svc.repo.DeleteNote(ctx, noteID, uid); err != nil {
		svc.logger.Error("deleting note", errors.Wrap(err, "deleting note record"))
		svc.setErr(err)
		return errors.Wrap(err, "deleting note")
	}

	if svc.files != nil && filePath != "" {
		if err := svc.files.Remove(ctx, filePath); err != nil {
			svc.logger.Warn("removing note file", errors.Wrap(err, "orphaned "+filePath))
		}
	}

	svc.mu.Lock()
	if svc.identity != nil && svc.identity.ID == uid {
		kept := svc.notes[:0]
		for _, n := range svc.notes {
			if n.ID != noteID {
				kept = append(kept, n)
			}
		}
		svc.notes = kept
	}
	svc.mu.Unlock()
	return nil
}

// Clear drops the mirror, typically when the subject selection closes.
func (svc *Service) Clear() {
	svc.mu.Lock()
	svc.subjectID = ""
	svc.notes = nil
	svc.loading = false
	svc.err = nil
	svc.mu.Unlock()
}

func (svc *Service) Notes() []Note {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Note(nil), svc.notes...)
}

func (svc *Service) SubjectID() string {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.subjectID
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

func (svc *Service) setErr(err error) {
	svc.mu.Lock()
	svc.err = err
	svc.mu.Unlock()
}

func (svc *Service) Dispose() {
	if svc.sessUnsub != nil {
		svc.sessUnsub()
	}
	svc.onIdentityChanged(nil)
}
