package studyplan_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
	"github.com/studyhub/studyhub/core/studyplan"
	dummyauth "github.com/studyhub/studyhub/services/auth/dummy"
	inmemdoc "github.com/studyhub/studyhub/storage/docstore/inmem"
)

func setup(t *testing.T) (*studyplan.Service, *session.Service, *inmemdoc.DB) {
	t.Helper()
	provider := dummyauth.NewProvider()
	sess := session.NewService(provider, core.NewNopLogger())
	db := inmemdoc.Open()
	svc := studyplan.NewService(sess, db, core.NewNopLogger())
	t.Cleanup(func() {
		svc.Dispose()
		sess.Dispose()
	})
	return svc, sess, db
}

func signUp(t *testing.T, sess *session.Service, email string) session.Identity {
	t.Helper()
	ident, err := sess.SignUp(context.Background(), email, "s3cret!")
	if err != nil {
		t.Fatalf("signUp() failed: %v", err)
	}
	return ident
}

func addSubject(t *testing.T, svc *studyplan.Service, name string) studyplan.Subject {
	t.Helper()
	sub, err := svc.AddSubject(context.Background(), studyplan.NewSubject{Name: name})
	if err != nil {
		t.Fatalf("addSubject(%q) failed: %v", name, err)
	}
	return sub
}

func TestService_AddSubject(t *testing.T) {
	svc, sess, db := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	sub := addSubject(t, svc, "Math")
	assert.NotEmpty(t, sub.ID)

	// optimistic: visible without a refetch
	subs := svc.Subjects()
	if assert.Len(t, subs, 1) {
		assert.Equal(t, "Math", subs[0].Name)
	}

	// round trip: the mirror equals the remote content after a resync
	assert.NoError(t, svc.Resync(ctx))
	subs = svc.Subjects()
	if assert.Len(t, subs, 1) {
		assert.Equal(t, sub.ID, subs[0].ID)
		assert.False(t, subs[0].CreatedAt.IsZero(), "refetch carries the store-assigned timestamp")
	}
	_ = db
}

func TestService_AddSubjectDuplicateName(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")

	addSubject(t, svc, "Math")
	_, err := svc.AddSubject(context.Background(), studyplan.NewSubject{Name: "math"})
	assert.Error(t, err)
	assert.True(t, core.IsValidationError(err))
	assert.Len(t, svc.Subjects(), 1)
}

func TestService_requiresIdentity(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AddSubject(ctx, studyplan.NewSubject{Name: "Math"})
	assert.Equal(t, core.ErrUnauthenticated, err)
	assert.Equal(t, core.ErrUnauthenticated, svc.DeleteSubject(ctx, "s1"))
	_, err = svc.AddAssignment(ctx, studyplan.NewAssignment{})
	assert.Equal(t, core.ErrUnauthenticated, err)
	assert.Equal(t, core.ErrUnauthenticated, svc.UpdateAssignmentStatus(ctx, "a1", studyplan.StatusSubmitted))
}

func TestService_AddAssignmentRefetchesForServerTimestamp(t *testing.T) {
	svc, sess, db := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	now := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	db.SetNow(func() time.Time {
		now = now.Add(time.Minute)
		return now
	})

	sub := addSubject(t, svc, "Math")
	due := time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.AddAssignment(ctx, studyplan.NewAssignment{SubjectID: sub.ID, Title: "Sheet 1", DueDate: due})
	assert.NoError(t, err)
	_, err = svc.AddAssignment(ctx, studyplan.NewAssignment{SubjectID: sub.ID, Title: "Sheet 2", DueDate: due})
	assert.NoError(t, err)

	asgs := svc.Assignments()
	if assert.Len(t, asgs, 2) {
		// refetch ordered by the store-assigned creation time
		assert.Equal(t, "Sheet 1", asgs[0].Title)
		assert.Equal(t, "Sheet 2", asgs[1].Title)
		assert.False(t, asgs[0].CreatedAt.IsZero())
		assert.Equal(t, studyplan.StatusPending, asgs[0].Status)
	}
}

func TestService_AddAssignmentUnknownSubject(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")

	_, err := svc.AddAssignment(context.Background(), studyplan.NewAssignment{
		SubjectID: "nope", Title: "Sheet", DueDate: time.Now(),
	})
	assert.True(t, core.IsValidationError(err))
}

func TestService_UpdateAssignmentStatus(t *testing.T) {
	svc, sess, db := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	sub := addSubject(t, svc, "Math")
	asg, err := svc.AddAssignment(ctx, studyplan.NewAssignment{SubjectID: sub.ID, Title: "Sheet", DueDate: time.Now()})
	assert.NoError(t, err)

	assert.NoError(t, svc.UpdateAssignmentStatus(ctx, asg.ID, studyplan.StatusSubmitted))
	assert.Equal(t, studyplan.StatusSubmitted, svc.Assignments()[0].Status)

	assert.True(t, core.IsValidationError(svc.UpdateAssignmentStatus(ctx, asg.ID, "done")))

	// remote failure triggers a corrective refetch: state is cleared, error set
	db.SetError(errors.New("quota exceeded"))
	assert.Error(t, svc.UpdateAssignmentStatus(ctx, asg.ID, studyplan.StatusPending))
	db.SetError(nil)
	assert.Empty(t, svc.Assignments(), "stale data must not survive a failed refetch")
	assert.Error(t, svc.Err())

	// the next successful resync repairs everything
	assert.NoError(t, svc.Resync(ctx))
	assert.Len(t, svc.Assignments(), 1)
	assert.NoError(t, svc.Err())
}

func TestService_DeleteAssignmentOptimistic(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	sub := addSubject(t, svc, "Math")
	asg, err := svc.AddAssignment(ctx, studyplan.NewAssignment{SubjectID: sub.ID, Title: "Sheet", DueDate: time.Now()})
	assert.NoError(t, err)

	assert.NoError(t, svc.DeleteAssignment(ctx, asg.ID))
	assert.Empty(t, svc.Assignments())

	// still gone after an authoritative refetch
	assert.NoError(t, svc.Resync(ctx))
	assert.Empty(t, svc.Assignments())
}

func TestService_DeleteSubjectCascades(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	math := addSubject(t, svc, "Math")
	physics := addSubject(t, svc, "Physics")

	due := time.Now().AddDate(0, 0, 3)
	_, err := svc.AddAssignment(ctx, studyplan.NewAssignment{SubjectID: math.ID, Title: "Sheet", DueDate: due})
	assert.NoError(t, err)
	keep, err := svc.AddAssignment(ctx, studyplan.NewAssignment{SubjectID: physics.ID, Title: "Lab", DueDate: due})
	assert.NoError(t, err)
	_, err = svc.AddExam(ctx, studyplan.NewExam{SubjectID: math.ID, Name: "Midterm", ExamDate: due})
	assert.NoError(t, err)

	assert.NoError(t, svc.DeleteSubject(ctx, math.ID))

	_, ok := svc.SubjectByID(math.ID)
	assert.False(t, ok)
	assert.Empty(t, svc.AssignmentsBySubject(math.ID))
	assert.Empty(t, svc.ExamsBySubject(math.ID))

	// records of other subjects are untouched
	asgs := svc.Assignments()
	if assert.Len(t, asgs, 1) {
		assert.Equal(t, keep.ID, asgs[0].ID)
	}
	assert.Empty(t, svc.Exams())
}

func TestService_logoutClearsSynchronously(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	sub := addSubject(t, svc, "Math")
	_, err := svc.AddExam(ctx, studyplan.NewExam{SubjectID: sub.ID, Name: "Final", ExamDate: time.Now().AddDate(0, 1, 0)})
	assert.NoError(t, err)

	assert.NoError(t, sess.SignOut(ctx))
	assert.Empty(t, svc.Subjects())
	assert.Empty(t, svc.Assignments())
	assert.Empty(t, svc.Exams())
	assert.NoError(t, svc.Err())
}

func TestService_isolatesOwners(t *testing.T) {
	svc, sess, _ := setup(t)
	ctx := context.Background()

	signUp(t, sess, "ann@example.com")
	addSubject(t, svc, "Math")
	assert.NoError(t, sess.SignOut(ctx))

	signUp(t, sess, "bob@example.com")
	assert.Empty(t, svc.Subjects(), "bob must not see ann's subjects")

	addSubject(t, svc, "History")
	subs := svc.Subjects()
	if assert.Len(t, subs, 1) {
		assert.Equal(t, "History", subs[0].Name)
	}
}

func TestService_Stats(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	math := addSubject(t, svc, "Math")
	addSubject(t, svc, "Physics")

	due := time.Now().AddDate(0, 0, 2)
	a1, err := svc.AddAssignment(ctx, studyplan.NewAssignment{SubjectID: math.ID, Title: "Sheet 1", DueDate: due})
	assert.NoError(t, err)
	_, err = svc.AddAssignment(ctx, studyplan.NewAssignment{SubjectID: math.ID, Title: "Sheet 2", DueDate: due})
	assert.NoError(t, err)
	assert.NoError(t, svc.UpdateAssignmentStatus(ctx, a1.ID, studyplan.StatusSubmitted))

	_, err = svc.AddExam(ctx, studyplan.NewExam{SubjectID: math.ID, Name: "Past", ExamDate: time.Now().AddDate(0, 0, -10)})
	assert.NoError(t, err)
	_, err = svc.AddExam(ctx, studyplan.NewExam{SubjectID: math.ID, Name: "Today", ExamDate: time.Now()})
	assert.NoError(t, err)
	_, err = svc.AddExam(ctx, studyplan.NewExam{SubjectID: math.ID, Name: "Soon", ExamDate: time.Now().AddDate(0, 0, 30)})
	assert.NoError(t, err)

	upcoming := svc.UpcomingExams()
	if assert.Len(t, upcoming, 1, "only the exam within the next week") {
		assert.Equal(t, "Today", upcoming[0].Name)
	}

	stats := svc.Stats()
	assert.Equal(t, studyplan.Stats{
		TotalSubjects:        2,
		TotalAssignments:     2,
		PendingAssignments:   1,
		SubmittedAssignments: 1,
		TotalExams:           3,
		UpcomingExams:        2, // today counts, the past one does not
	}, stats)
}

func TestValidateSubjectName(t *testing.T) {
	existing := []studyplan.Subject{{ID: "1", Name: "math"}}

	err := studyplan.ValidateSubjectName("Math", existing, "")
	assert.Error(t, err, "case-insensitive duplicate")
	assert.True(t, core.IsValidationError(err))

	assert.NoError(t, studyplan.ValidateSubjectName("Math", []studyplan.Subject{{ID: "1", Name: "Physics"}}, ""))
	assert.NoError(t, studyplan.ValidateSubjectName("Math", existing, "1"), "a subject may keep its own name")
	assert.Error(t, studyplan.ValidateSubjectName("   ", nil, ""))
}

// staleStore signs the session out in the middle of a collection fetch,
// reproducing the identity-changing-mid-flight race.
type staleStore struct {
	core.Docstore
	sess    *session.Service
	tripped bool
}

func (s *staleStore) Query(ctx context.Context, path string, filters []core.Filter, orderBy ...core.Ordering) ([]core.Document, error) {
	if !s.tripped {
		s.tripped = true
		_ = s.sess.SignOut(ctx)
	}
	return s.Docstore.Query(ctx, path, filters, orderBy...)
}

func TestService_discardsStaleRefetch(t *testing.T) {
	provider := dummyauth.NewProvider()
	sess := session.NewService(provider, core.NewNopLogger())
	defer sess.Dispose()

	db := inmemdoc.Open()
	store := &staleStore{Docstore: db, sess: sess}

	ident, err := sess.SignUp(context.Background(), "ann@example.com", "s3cret!")
	assert.NoError(t, err)
	_, err = db.Add(context.Background(), "users/"+ident.ID+"/subjects", map[string]interface{}{
		"name": "Math", "createdAt": core.ServerTimestamp,
	})
	assert.NoError(t, err)

	svc := studyplan.NewService(sess, store, core.NewNopLogger())
	defer svc.Dispose()

	// the constructor's resync raced a sign-out; its results must be discarded
	assert.Empty(t, svc.Subjects(), "results fetched under a dead identity must not be applied")
}
