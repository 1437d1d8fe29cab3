package studyplan

import (
	"time"

	"github.com/studyhub/studyhub/core"
)

// Assignment statuses
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
)

type (
	// Subject is a course the student tracks. Immutable except delete.
	Subject struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Code      string    `json:"code,omitempty"`
		CreatedAt time.Time `json:"created_at"` // UTC, store-assigned
		OwnerID   string    `json:"-"`
	}

	// Assignment references a Subject by ID. The subject does not own its
	// lifetime except through cascade delete.
	Assignment struct {
		ID        string    `json:"id"`
		SubjectID string    `json:"subject_id"`
		Title     string    `json:"title"`
		DueDate   time.Time `json:"due_date"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"` // UTC, store-assigned
		OwnerID   string    `json:"-"`
	}

	Exam struct {
		ID        string    `json:"id"`
		SubjectID string    `json:"subject_id"`
		Name      string    `json:"name"`
		ExamDate  time.Time `json:"exam_date"`
		CreatedAt time.Time `json:"created_at"` // UTC, store-assigned
		OwnerID   string    `json:"-"`
	}

	// Stats are aggregate counts derived from the in-memory mirrors.
	Stats struct {
		TotalSubjects        int `json:"total_subjects"`
		TotalAssignments     int `json:"total_assignments"`
		PendingAssignments   int `json:"pending_assignments"`
		SubmittedAssignments int `json:"submitted_assignments"`
		TotalExams           int `json:"total_exams"`
		UpcomingExams        int `json:"upcoming_exams"`
	}
)

// NewSubject contains information needed to create a Subject.
type NewSubject struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"omitempty,alphanum_"`
}

func (ns *NewSubject) Validate(existing []Subject) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return ValidateSubjectName(ns.Name, existing, "")
}

// NewAssignment contains information needed to create an Assignment.
type NewAssignment struct {
	SubjectID string    `json:"subject_id" validate:"required"`
	Title     string    `json:"title" validate:"required"`
	DueDate   time.Time `json:"due_date" validate:"required"`
	Status    string    `json:"status" validate:"omitempty,oneof=pending submitted"`
}

func (na *NewAssignment) Validate(subjects []Subject) error {
	na.Title = core.CleanString(na.Title)
	if na.Status == "" {
		na.Status = StatusPending
	}
	if err := core.Validate.Struct(na); err != nil {
		return err
	}
	return validateSubjectRef(na.SubjectID, subjects)
}

// NewExam contains information needed to create an Exam.
type NewExam struct {
	SubjectID string    `json:"subject_id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	ExamDate  time.Time `json:"exam_date" validate:"required"`
}

func (ne *NewExam) Validate(subjects []Subject) error {
	ne.Name = core.CleanString(ne.Name)
	if err := core.Validate.Struct(ne); err != nil {
		return err
	}
	return validateSubjectRef(ne.SubjectID, subjects)
}

func subjectFromDoc(doc core.Document, ownerID string) Subject {
	return Subject{
		ID:        doc.ID,
		Name:      doc.String("name"),
		Code:      doc.String("code"),
		CreatedAt: doc.Time("createdAt"),
		OwnerID:   ownerID,
	}
}

func assignmentFromDoc(doc core.Document, ownerID string) Assignment {
	return Assignment{
		ID:        doc.ID,
		SubjectID: doc.String("subjectId"),
		Title:     doc.String("title"),
		DueDate:   doc.Time("dueDate"),
		Status:    doc.String("status"),
		CreatedAt: doc.Time("createdAt"),
		OwnerID:   ownerID,
	}
}

func examFromDoc(doc core.Document, ownerID string) Exam {
	return Exam{
		ID:        doc.ID,
		SubjectID: doc.String("subjectId"),
		Name:      doc.String("name"),
		ExamDate:  doc.Time("examDate"),
		CreatedAt: doc.Time("createdAt"),
		OwnerID:   ownerID,
	}
}
