package notes

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core"
)

// MaxFileSize is the upload cap, enforced before any network call.
const MaxFileSize = 10 << 20 // 10 MiB

// allowedTypes maps acceptable upload content types. image/jpg is not a real
// MIME type but browsers send it anyway.
var allowedTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/jpg":       {},
	"image/png":       {},
}

var (
	ErrNotFound        = errors.New("note not found")
	ErrSubjectNeeded   = errors.New("a subject is required")
	ErrSubjectUnnamed  = errors.New("a subject name is required")
	ErrFileTooLarge    = fmt.Errorf("file exceeds the %d MB limit", MaxFileSize/(1<<20))
	ErrUnsupportedType = errors.New("only PDF, JPEG and PNG files are supported")
)

type (
	// Note is the stored metadata of an uploaded file. The file itself lives
	// in object storage under FilePath; FileURL is its public address.
	// SubjectName is denormalized at upload time and not updated afterwards.
	Note struct {
		ID          string    `json:"id" db:"id"`
		UserID      string    `json:"-" db:"user_id"`
		SubjectID   string    `json:"subject_id" db:"subject_id"`
		SubjectName string    `json:"subject_name" db:"subject_name"`
		FileName    string    `json:"file_name" db:"file_name"`
		FilePath    string    `json:"file_path" db:"file_path"`
		FileURL     string    `json:"file_url" db:"file_url"`
		FileType    string    `json:"file_type" db:"file_type"`
		FileSize    int64     `json:"file_size" db:"file_size"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"`
	}

	// Upload is an incoming file. Size is the declared length; it is checked
	// against the cap before Content is read.
	Upload struct {
		FileName    string
		ContentType string
		Size        int64
		Content     io.Reader
	}

	// Repository persists note metadata.
	Repository interface {
		CreateNote(ctx context.Context, note Note) (Note, error)
		// FilterNotes returns a user's notes for one subject, newest first.
		FilterNotes(ctx context.Context, userID, subjectID string) ([]Note, error)
		DeleteNote(ctx context.Context, id, userID string) error
	}

	// FileStorage holds the uploaded files. Upload stores content under path
	// and Remove is expected to tolerate missing objects.
	FileStorage interface {
		Upload(ctx context.Context, path, contentType string, size int64, content io.Reader) error
		PublicURL(path string) string
		Remove(ctx context.Context, path string) error
	}
)

// Validate checks the upload against the size cap and type allowlist. It
// never touches Content.
func (up *Upload) Validate() error {
	up.FileName = core.CleanString(up.FileName)
	if up.FileName == "" {
		return core.NewValidationError(errors.New("file name is required"),
			core.FieldError{Field: "file_name", Error: "file name is required"})
	}
	if up.Size > MaxFileSize {
		return core.NewValidationError(ErrFileTooLarge,
			core.FieldError{Field: "file_size", Error: ErrFileTooLarge.Error()})
	}
	if _, ok := allowedTypes[up.ContentType]; !ok {
		return core.NewValidationError(ErrUnsupportedType,
			core.FieldError{Field: "file_type", Error: ErrUnsupportedType.Error()})
	}
	return nil
}
