package studyplan

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core"
)

var (
	ErrSubjectNameTaken  = errors.New("a subject with this name already exists")
	ErrSubjectNameNeeded = errors.New("subject name is required")
	ErrUnknownSubject    = errors.New("selected subject does not exist")
	ErrInvalidStatus     = errors.New("invalid assignment status")
)

// ValidateSubjectName checks that name is present and, case-insensitively,
// not already used by another of the owner's subjects. currentID excludes a
// subject from the duplicate check (edit mode); pass "" otherwise.
func ValidateSubjectName(name string, existing []Subject, currentID string) error {
	name = core.CleanString(name)
	if name == "" {
		return core.NewValidationError(ErrSubjectNameNeeded, core.FieldError{Field: "name", Error: ErrSubjectNameNeeded.Error()})
	}
	for _, s := range existing {
		if s.ID != currentID && strings.EqualFold(s.Name, name) {
			return core.NewValidationError(ErrSubjectNameTaken, core.FieldError{Field: "name", Error: ErrSubjectNameTaken.Error()})
		}
	}
	return nil
}

// validateSubjectRef checks the referenced subject exists in the owner's
// current subjects. The store has no foreign keys; this is the only guard.
func validateSubjectRef(subjectID string, subjects []Subject) error {
	for _, s := range subjects {
		if s.ID == subjectID {
			return nil
		}
	}
	return core.NewValidationError(ErrUnknownSubject, core.FieldError{Field: "subject_id", Error: ErrUnknownSubject.Error()})
}

func validateStatus(status string) error {
	if status != StatusPending && status != StatusSubmitted {
		return core.NewValidationError(ErrInvalidStatus, core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}
	return nil
}
