package notes_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/notes"
	"github.com/studyhub/studyhub/core/session"
	dummyauth "github.com/studyhub/studyhub/services/auth/dummy"
	dummydb "github.com/studyhub/studyhub/storage/database/dummy"
	inmemobj "github.com/studyhub/studyhub/storage/objstore/inmem"
)

func setup(t *testing.T) (*notes.Service, *session.Service, *dummydb.NotesRepository, *inmemobj.Store) {
	t.Helper()
	provider := dummyauth.NewProvider()
	sess := session.NewService(provider, core.NewNopLogger())
	repo := dummydb.NewNotesRepository()
	files := inmemobj.NewStore()
	svc := notes.NewService(sess, repo, files, core.NewNopLogger())
	t.Cleanup(func() {
		svc.Dispose()
		sess.Dispose()
	})
	return svc, sess, repo, files
}

func signUp(t *testing.T, sess *session.Service, email string) session.Identity {
	t.Helper()
	ident, err := sess.SignUp(context.Background(), email, "s3cret!")
	if err != nil {
		t.Fatalf("signUp() failed: %v", err)
	}
	return ident
}

func pngUpload(name string, size int) notes.Upload {
	return notes.Upload{
		FileName:    name,
		ContentType: "image/png",
		Size:        int64(size),
		Content:     bytes.NewReader(make([]byte, size)),
	}
}

func TestService_Add(t *testing.T) {
	svc, sess, _, files := setup(t)
	ident := signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	assert.NoError(t, svc.Load(ctx, "sub1"))

	note, err := svc.Add(ctx, "sub1", "Math", pngUpload("diagram.png", 2<<20))
	assert.NoError(t, err)
	assert.NotEmpty(t, note.ID)
	assert.Equal(t, "Math", note.SubjectName)
	assert.True(t, strings.HasPrefix(note.FilePath, "notes/"+ident.ID+"/sub1/"), note.FilePath)
	assert.True(t, strings.HasSuffix(note.FilePath, "_diagram.png"), note.FilePath)
	assert.Equal(t, "mem://"+note.FilePath, note.FileURL)

	data, ok := files.Object(note.FilePath)
	assert.True(t, ok, "file content must be in object storage")
	assert.Len(t, data, 2<<20)

	// newest first: a second upload lands at the head
	note2, err := svc.Add(ctx, "sub1", "Math", pngUpload("later.png", 100))
	assert.NoError(t, err)
	got := svc.Notes()
	if assert.Len(t, got, 2) {
		assert.Equal(t, note2.ID, got[0].ID)
		assert.Equal(t, note.ID, got[1].ID)
	}
}

func TestService_AddRejectsOversizedBeforeUpload(t *testing.T) {
	svc, sess, _, files := setup(t)
	signUp(t, sess, "ann@example.com")

	up := notes.Upload{
		FileName:    "huge.pdf",
		ContentType: "application/pdf",
		Size:        12 << 20,
		Content:     nil, // must not be read
	}
	_, err := svc.Add(context.Background(), "sub1", "Math", up)
	assert.Error(t, err)
	assert.True(t, core.IsValidationError(err))
	assert.Zero(t, files.Len(), "nothing may reach storage")
}

func TestService_AddRejectsUnsupportedType(t *testing.T) {
	svc, sess, _, files := setup(t)
	signUp(t, sess, "ann@example.com")

	up := notes.Upload{
		FileName:    "essay.docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Size:        1 << 20,
	}
	_, err := svc.Add(context.Background(), "sub1", "Math", up)
	assert.True(t, core.IsValidationError(err))
	assert.Zero(t, files.Len())
}

func TestService_AddMetadataFailureLeavesOrphan(t *testing.T) {
	svc, sess, repo, files := setup(t)
	signUp(t, sess, "ann@example.com")

	repo.SetError(errors.New("db down"))
	_, err := svc.Add(context.Background(), "sub1", "Math", pngUpload("x.png", 10))
	assert.Error(t, err)
	assert.Empty(t, svc.Notes())
	assert.Equal(t, 1, files.Len(), "the uploaded file stays behind as an orphan")
}

func TestService_Load(t *testing.T) {
	svc, sess, repo, _ := setup(t)
	ident := signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	now := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.SetNow(func() time.Time {
		now = now.Add(time.Minute)
		return now
	})
	for _, name := range []string{"first.png", "second.png"} {
		_, err := repo.CreateNote(ctx, notes.Note{UserID: ident.ID, SubjectID: "sub1", FileName: name})
		assert.NoError(t, err)
	}
	_, err := repo.CreateNote(ctx, notes.Note{UserID: ident.ID, SubjectID: "other", FileName: "stray.png"})
	assert.NoError(t, err)

	assert.NoError(t, svc.Load(ctx, "sub1"))
	got := svc.Notes()
	if assert.Len(t, got, 2) {
		assert.Equal(t, "second.png", got[0].FileName, "newest first")
		assert.Equal(t, "first.png", got[1].FileName)
	}
	assert.Equal(t, "sub1", svc.SubjectID())

	svc.Clear()
	assert.Empty(t, svc.Notes())
	assert.Empty(t, svc.SubjectID())
}

func TestService_requiresSubject(t *testing.T) {
	svc, sess, repo, files := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	// any repository call would surface as this error instead
	repo.SetError(errors.New("remote store was called"))

	err := svc.Load(ctx, "")
	if verr, ok := errors.Cause(err).(*core.ValidationError); assert.True(t, ok, "Load() without a subject: %v", err) {
		assert.Equal(t, notes.ErrSubjectNeeded, verr.Err)
	}

	_, err = svc.Add(ctx, "", "Math", pngUpload("x.png", 10))
	assert.True(t, core.IsValidationError(err), "Add() without a subject: %v", err)

	_, err = svc.Add(ctx, "sub1", "  ", pngUpload("x.png", 10))
	assert.True(t, core.IsValidationError(err), "Add() without a subject name: %v", err)
	assert.Zero(t, files.Len(), "nothing may reach storage")
}

func TestService_Delete(t *testing.T) {
	svc, sess, _, files := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	assert.NoError(t, svc.Load(ctx, "sub1"))
	note, err := svc.Add(ctx, "sub1", "Math", pngUpload("x.png", 10))
	assert.NoError(t, err)

	assert.NoError(t, svc.Delete(ctx, note.ID))
	assert.Empty(t, svc.Notes())
	_, ok := files.Object(note.FilePath)
	assert.False(t, ok, "file removed after the record")

	err = svc.Delete(ctx, note.ID)
	assert.Equal(t, notes.ErrNotFound, errors.Cause(err))
}

func TestService_DeleteRecordFirst(t *testing.T) {
	svc, sess, repo, files := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	assert.NoError(t, svc.Load(ctx, "sub1"))
	note, err := svc.Add(ctx, "sub1", "Math", pngUpload("x.png", 10))
	assert.NoError(t, err)

	// record delete fails: the file must remain
	repo.SetError(errors.New("db down"))
	assert.Error(t, svc.Delete(ctx, note.ID))
	_, ok := files.Object(note.FilePath)
	assert.True(t, ok)
	assert.Len(t, svc.Notes(), 1)

	// file removal fails: the delete still succeeds, the orphan is tolerated
	repo.SetError(nil)
	files.SetError(errors.New("storage down"))
	assert.NoError(t, svc.Delete(ctx, note.ID))
	assert.Empty(t, svc.Notes())
	assert.Equal(t, 1, files.Len())
}

func TestService_notConfigured(t *testing.T) {
	provider := dummyauth.NewProvider()
	sess := session.NewService(provider, core.NewNopLogger())
	defer sess.Dispose()
	svc := notes.NewService(sess, nil, nil, core.NewNopLogger())
	defer svc.Dispose()

	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	assert.NoError(t, svc.Load(ctx, "sub1"), "reads degrade to empty")
	assert.Empty(t, svc.Notes())

	_, err := svc.Add(ctx, "sub1", "Math", pngUpload("x.png", 10))
	assert.True(t, core.IsNotConfigured(err))
	assert.True(t, core.IsNotConfigured(svc.Delete(ctx, "n1")))
}

func TestService_requiresIdentity(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	assert.Equal(t, core.ErrUnauthenticated, svc.Load(ctx, "sub1"))
	_, err := svc.Add(ctx, "sub1", "Math", pngUpload("x.png", 10))
	assert.Equal(t, core.ErrUnauthenticated, err)
	assert.Equal(t, core.ErrUnauthenticated, svc.Delete(ctx, "n1"))
}

func TestService_logoutClears(t *testing.T) {
	svc, sess, _, _ := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	assert.NoError(t, svc.Load(ctx, "sub1"))
	_, err := svc.Add(ctx, "sub1", "Math", pngUpload("x.png", 10))
	assert.NoError(t, err)

	assert.NoError(t, sess.SignOut(ctx))
	assert.Empty(t, svc.Notes())
	assert.Empty(t, svc.SubjectID())
}
