package studyplan

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
)

// Service maintains owner-scoped mirrors of the subjects, assignments and
// exams collections. The three are independent but fetched together under one
// loading flag. Consistency strategy per operation follows the stored data's
// needs: optimistic local mutation where the write's outcome is fully known,
// an authoritative refetch where the store assigns data (creation timestamps),
// and an atomic batch plus refetch for cascade deletes. Any observed
// inconsistency is repaired by the next refetch rather than prevented.
type Service struct {
	store  core.Docstore
	logger core.Logger

	mu          sync.Mutex
	identity    *session.Identity
	subjects    []Subject
	assignments []Assignment
	exams       []Exam
	loading     bool
	err         error
	sessUnsub   func()
}

func NewService(sess session.Stream, store core.Docstore, logger core.Logger) *Service {
	svc := &Service{
		store:  store,
		logger: logger,
	}
	svc.sessUnsub = sess.OnIdentityChanged(svc.onIdentityChanged)
	if !sess.Loading() {
		svc.onIdentityChanged(sess.CurrentIdentity())
	}
	return svc
}

func subjectsPath(uid string) string    { return "users/" + uid + "/subjects" }
func assignmentsPath(uid string) string { return "users/" + uid + "/assignments" }
func examsPath(uid string) string       { return "users/" + uid + "/exams" }

func (svc *Service) onIdentityChanged(ident *session.Identity) {
	if ident == nil {
		// logout: clear everything synchronously, no remote call
		svc.mu.Lock()
		svc.identity = nil
		svc.subjects, svc.assignments, svc.exams = nil, nil, nil
		svc.loading = false
		svc.err = nil
		svc.mu.Unlock()
		return
	}

	svc.mu.Lock()
	cp := *ident
	svc.identity = &cp
	svc.mu.Unlock()
	_ = svc.Resync(context.Background()) // failure is recorded in Err()
}

// Resync fetches all three collections, ordered by creation time ascending.
// On failure every mirror is cleared: stale data is never shown beside a
// reported error. Results are discarded if the identity changed mid-flight.
func (svc *Service) Resync(ctx context.Context) error {
	svc.mu.Lock()
	if svc.identity == nil {
		svc.subjects, svc.assignments, svc.exams = nil, nil, nil
		svc.loading = false
		svc.mu.Unlock()
		return nil
	}
	uid := svc.identity.ID
	svc.loading = true
	svc.err = nil
	svc.mu.Unlock()

	subjects, assignments, exams, err := svc.fetchAll(ctx, uid)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.identity == nil || svc.identity.ID != uid {
		// identity changed under us; these results belong to someone else
		return nil
	}
	svc.loading = false
	if err != nil {
		svc.logger.Error("resyncing collections", err)
		svc.subjects, svc.assignments, svc.exams = nil, nil, nil
		svc.err = err
		return err
	}
	svc.subjects, svc.assignments, svc.exams = subjects, assignments, exams
	return nil
}

func (svc *Service) fetchAll(ctx context.Context, uid string) ([]Subject, []Assignment, []Exam, error) {
	byCreation := core.Ordering{Field: "createdAt", Ascending: true}

	subjectDocs, err := svc.store.Query(ctx, subjectsPath(uid), nil, byCreation)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "fetching subjects")
	}
	assignmentDocs, err := svc.store.Query(ctx, assignmentsPath(uid), nil, byCreation)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "fetching assignments")
	}
	examDocs, err := svc.store.Query(ctx, examsPath(uid), nil, byCreation)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "fetching exams")
	}

	subjects := make([]Subject, 0, len(subjectDocs))
	for _, doc := range subjectDocs {
		subjects = append(subjects, subjectFromDoc(doc, uid))
	}
	assignments := make([]Assignment, 0, len(assignmentDocs))
	for _, doc := range assignmentDocs {
		assignments = append(assignments, assignmentFromDoc(doc, uid))
	}
	exams := make([]Exam, 0, len(examDocs))
	for _, doc := range examDocs {
		exams = append(exams, examFromDoc(doc, uid))
	}
	return subjects, assignments, exams, nil
}

func (svc *Service) currentUID() (string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.identity == nil {
		return "", core.ErrUnauthenticated
	}
	return svc.identity.ID, nil
}

// Subject operations

// AddSubject writes the subject then appends it to the local mirror
// optimistically; the approximate local creation time is corrected by the
// next refetch.
func (svc *Service) AddSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	uid, err := svc.currentUID()
	if err != nil {
		return Subject{}, err
	}
	if err := ns.Validate(svc.Subjects()); err != nil {
		return Subject{}, err
	}

	data := map[string]interface{}{
		"name":      ns.Name,
		"code":      ns.Code,
		"createdAt": core.ServerTimestamp,
	}
	id, err := svc.store.Add(ctx, subjectsPath(uid), data)
	if err != nil {
		svc.logger.Error("adding subject", errors.Wrap(err, "writing subject"))
		svc.setErr(err)
		return Subject{}, errors.Wrap(err, "adding subject")
	}

	sub := Subject{ID: id, Name: ns.Name, Code: ns.Code, CreatedAt: time.Now().UTC(), OwnerID: uid}
	svc.mu.Lock()
	if svc.identity != nil && svc.identity.ID == uid {
		svc.subjects = append(svc.subjects, sub)
	}
	svc.mu.Unlock()
	return sub, nil
}

// DeleteSubject removes the subject and every assignment and exam referencing
// it as one atomic batch, then refetches. Cascade correctness matters more
// than saving the round trip.
func (svc *Service) DeleteSubject(ctx context.Context, subjectID string) error {
	uid, err := svc.currentUID()
	if err != nil {
		return err
	}

	batch := svc.store.Batch()
	batch.Delete(subjectsPath(uid) + "/" + subjectID)

	refFilter := []core.Filter{{Field: "subjectId", Op: "==", Value: subjectID}}
	assignmentDocs, err := svc.store.Query(ctx, assignmentsPath(uid), refFilter)
	if err != nil {
		svc.setErr(err)
		return errors.Wrap(err, "querying dependent assignments")
	}
	for _, doc := range assignmentDocs {
		batch.Delete(assignmentsPath(uid) + "/" + doc.ID)
	}

	examDocs, err := svc.store.Query(ctx, examsPath(uid), refFilter)
	if err != nil {
		svc.setErr(err)
		return errors.Wrap(err, "querying dependent exams")
	}
	for _, doc := range examDocs {
		batch.Delete(examsPath(uid) + "/" + doc.ID)
	}

	if err := batch.Commit(ctx); err != nil {
		svc.logger.Error("deleting subject", errors.Wrap(err, "committing cascade delete"))
		svc.setErr(err)
		return errors.Wrap(err, "deleting subject")
	}
	return svc.Resync(ctx)
}

// Assignment operations

// AddAssignment writes the assignment then refetches everything: the store
// assigns the creation timestamp, so ordering cannot be approximated locally.
func (svc *Service) AddAssignment(ctx context.Context, na NewAssignment) (Assignment, error) {
	uid, err := svc.currentUID()
	if err != nil {
		return Assignment{}, err
	}
	if err := na.Validate(svc.Subjects()); err != nil {
		return Assignment{}, err
	}

	data := map[string]interface{}{
		"subjectId": na.SubjectID,
		"title":     na.Title,
		"dueDate":   na.DueDate.UTC(),
		"status":    na.Status,
		"createdAt": core.ServerTimestamp,
	}
	id, err := svc.store.Add(ctx, assignmentsPath(uid), data)
	if err != nil {
		svc.logger.Error("adding assignment", errors.Wrap(err, "writing assignment"))
		svc.setErr(err)
		return Assignment{}, errors.Wrap(err, "adding assignment")
	}

	if err := svc.Resync(ctx); err != nil {
		return Assignment{}, err
	}
	return Assignment{ID: id, SubjectID: na.SubjectID, Title: na.Title, DueDate: na.DueDate, Status: na.Status, OwnerID: uid}, nil
}

// UpdateAssignmentStatus updates the remote record then patches the mirror
// optimistically. A failed write triggers a corrective refetch.
func (svc *Service) UpdateAssignmentStatus(ctx context.Context, assignmentID, status string) error {
	uid, err := svc.currentUID()
	if err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	if err := svc.store.Update(ctx, assignmentsPath(uid)+"/"+assignmentID, map[string]interface{}{"status": status}); err != nil {
		svc.logger.Error("updating assignment status", errors.Wrap(err, "updating assignment"))
		svc.setErr(err)
		_ = svc.Resync(ctx)
		return errors.Wrap(err, "updating assignment status")
	}

	svc.mu.Lock()
	if svc.identity != nil && svc.identity.ID == uid {
		for i := range svc.assignments {
			if svc.assignments[i].ID == assignmentID {
				svc.assignments[i].Status = status
			}
		}
	}
	svc.mu.Unlock()
	return nil
}

// DeleteAssignment deletes the remote record then drops it from the mirror
// optimistically. A failed delete triggers a corrective refetch.
func (svc *Service) DeleteAssignment(ctx context.Context, assignmentID string) error {
	uid, err := svc.currentUID()
	if err != nil {
		return err
	}

	if err := svc.store.Delete(ctx, assignmentsPath(uid)+"/"+assignmentID); err != nil {
		svc.logger.Error("deleting assignment", errors.Wrap(err, "deleting assignment"))
		svc.setErr(err)
		_ = svc.Resync(ctx)
		return errors.Wrap(err, "deleting assignment")
	}

	svc.mu.Lock()
	if svc.identity != nil && svc.identity.ID == uid {
		kept := svc.assignments[:0]
		for _, a := range svc.assignments {
			if a.ID != assignmentID {
				kept = append(kept, a)
			}
		}
		svc.assignments = kept
	}
	svc.mu.Unlock()
	return nil
}

// Exam operations

// AddExam writes the exam then refetches for the authoritative timestamp,
// same as AddAssignment.
func (svc *Service) AddExam(ctx context.Context, ne NewExam) (Exam, error) {
	uid, err := svc.currentUID()
	if err != nil {
		return Exam{}, err
	}
	if err := ne.Validate(svc.Subjects()); err != nil {
		return Exam{}, err
	}

	data := map[string]interface{}{
		"subjectId": ne.SubjectID,
		"name":      ne.Name,
		"examDate":  ne.ExamDate.UTC(),
		"createdAt": core.ServerTimestamp,
	}
	id, err := svc.store.Add(ctx, examsPath(uid), data)
	if err != nil {
		svc.logger.Error("adding exam", errors.Wrap(err, "writing exam"))
		svc.setErr(err)
		return Exam{}, errors.Wrap(err, "adding exam")
	}

	if err := svc.Resync(ctx); err != nil {
		return Exam{}, err
	}
	return Exam{ID: id, SubjectID: ne.SubjectID, Name: ne.Name, ExamDate: ne.ExamDate, OwnerID: uid}, nil
}

func (svc *Service) DeleteExam(ctx context.Context, examID string) error {
	uid, err := svc.currentUID()
	if err != nil {
		return err
	}

	if err := svc.store.Delete(ctx, examsPath(uid)+"/"+examID); err != nil {
		svc.logger.Error("deleting exam", errors.Wrap(err, "deleting exam"))
		svc.setErr(err)
		_ = svc.Resync(ctx)
		return errors.Wrap(err, "deleting exam")
	}

	svc.mu.Lock()
	if svc.identity != nil && svc.identity.ID == uid {
		kept := svc.exams[:0]
		for _, e := range svc.exams {
			if e.ID != examID {
				kept = append(kept, e)
			}
		}
		svc.exams = kept
	}
	svc.mu.Unlock()
	return nil
}

// Derived views

func (svc *Service) Subjects() []Subject {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Subject(nil), svc.subjects...)
}

func (svc *Service) Assignments() []Assignment {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Assignment(nil), svc.assignments...)
}

func (svc *Service) Exams() []Exam {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Exam(nil), svc.exams...)
}

func (svc *Service) SubjectByID(subjectID string) (Subject, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, s := range svc.subjects {
		if s.ID == subjectID {
			return s, true
		}
	}
	return Subject{}, false
}

func (svc *Service) AssignmentsBySubject(subjectID string) []Assignment {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	var out []Assignment
	for _, a := range svc.assignments {
		if a.SubjectID == subjectID {
			out = append(out, a)
		}
	}
	return out
}

// UpcomingExams returns the exams dated within the next week, for the
// dashboard reminder list.
func (svc *Service) UpcomingExams() []Exam {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	var out []Exam
	for _, e := range svc.exams {
		if core.IsUpcoming(e.ExamDate) {
			out = append(out, e)
		}
	}
	return out
}

func (svc *Service) ExamsBySubject(subjectID string) []Exam {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	var out []Exam
	for _, e := range svc.exams {
		if e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out
}

// Stats derives aggregate counts from the current mirrors. Upcoming exams are
// those dated today or later.
func (svc *Service) Stats() Stats {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	stats := Stats{
		TotalSubjects:    len(svc.subjects),
		TotalAssignments: len(svc.assignments),
		TotalExams:       len(svc.exams),
	}
	for _, a := range svc.assignments {
		switch a.Status {
		case StatusPending:
			stats.PendingAssignments++
		case StatusSubmitted:
			stats.SubmittedAssignments++
		}
	}
	for _, e := range svc.exams {
		if !core.IsPastDate(e.ExamDate) {
			stats.UpcomingExams++
		}
	}
	return stats
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

// Dispose tears down the session subscription and clears the mirrors.
func (svc *Service) Dispose() {
	if svc.sessUnsub != nil {
		svc.sessUnsub()
	}
	svc.onIdentityChanged(nil)
}
