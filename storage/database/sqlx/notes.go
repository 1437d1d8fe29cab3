package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core/notes"
)

type notesRepository struct {
	db *sqlx.DB
}

var _ notes.Repository = (*notesRepository)(nil)

func NewNotesRepository(db *sqlx.DB) *notesRepository {
	return &notesRepository{db: db}
}

func (repo *notesRepository) CreateNote(ctx context.Context, note notes.Note) (notes.Note, error) {
	q := `
INSERT INTO notes (user_id, subject_id, subject_name, file_name, file_path, file_url, file_type, file_size)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`

	err := repo.db.QueryRowxContext(ctx, q,
		note.UserID, note.SubjectID, note.SubjectName,
		note.FileName, note.FilePath, note.FileURL, note.FileType, note.FileSize,
	).Scan(&note.ID, &note.CreatedAt)
	if err != nil {
		return notes.Note{}, errors.Wrap(err, "inserting note")
	}
	return note, nil
}

func (repo *notesRepository) FilterNotes(ctx context.Context, userID, subjectID string) ([]notes.Note, error) {
	q := `
SELECT id, user_id, subject_id, subject_name, file_name, file_path, file_url, file_type, file_size, created_at
FROM notes
WHERE user_id = $1 AND subject_id = $2
ORDER BY created_at DESC`

	var out []notes.Note
	if err := repo.db.SelectContext(ctx, &out, q, userID, subjectID); err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	return out, nil
}

func (repo *notesRepository) DeleteNote(ctx context.Context, id, userID string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	if n == 0 {
		return notes.ErrNotFound
	}
	return nil
}
