package profile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/profile"
	"github.com/studyhub/studyhub/core/session"
	dummyauth "github.com/studyhub/studyhub/services/auth/dummy"
	inmemdoc "github.com/studyhub/studyhub/storage/docstore/inmem"
)

func setup(t *testing.T) (*profile.Service, *session.Service, *inmemdoc.DB) {
	t.Helper()
	provider := dummyauth.NewProvider()
	sess := session.NewService(provider, core.NewNopLogger())
	db := inmemdoc.Open()
	svc := profile.NewService(sess, db, core.NewNopLogger())
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

func newProfile() profile.NewProfile {
	return profile.NewProfile{
		Name:           "Ann",
		Branch:         "CS",
		Semester:       "5",
		EnrollmentNo:   "E1",
		ClassSection:   "A",
		CollegeName:    "X College",
		UniversityName: "Y University",
		AvatarID:       "male_1",
	}
}

func TestService_newUserHasNoProfile(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")

	assert.False(t, svc.Loading())
	assert.Nil(t, svc.Profile())
	assert.False(t, svc.ProfileExists())
	assert.False(t, svc.IsComplete())
}

func TestService_CreateMirrorsThroughSnapshot(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")

	err := svc.Create(context.Background(), newProfile())
	assert.NoError(t, err)

	// the snapshot listener, not Create, populated the mirror
	p := svc.Profile()
	if assert.NotNil(t, p) {
		assert.Equal(t, "Ann", p.Name)
		assert.Equal(t, "male_1", p.AvatarID)
	}
	assert.True(t, svc.ProfileExists())
	assert.True(t, svc.IsComplete())
}

func TestService_Update(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	assert.NoError(t, svc.Create(ctx, newProfile()))

	np := newProfile()
	np.Semester = "6"
	assert.NoError(t, svc.Update(ctx, np))
	assert.Equal(t, "6", svc.Profile().Semester)
}

func TestService_CreateRequiresIdentity(t *testing.T) {
	svc, _, _ := setup(t)

	err := svc.Create(context.Background(), newProfile())
	assert.Equal(t, core.ErrUnauthenticated, err)
}

func TestService_CreateValidation(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")

	np := newProfile()
	np.AvatarID = "dragon_9"
	err := svc.Create(context.Background(), np)
	assert.Error(t, err)
	assert.Nil(t, svc.Profile())
}

func TestService_documentWithoutProfileField(t *testing.T) {
	svc, sess, db := setup(t)
	ident := signUp(t, sess, "ann@example.com")

	// legacy record: document exists but carries no profile field
	err := db.Set(context.Background(), "users/"+ident.ID, map[string]interface{}{
		"createdAt": core.ServerTimestamp,
	})
	assert.NoError(t, err)

	assert.Nil(t, svc.Profile())
	assert.False(t, svc.ProfileExists())
}

func TestService_logoutClearsSynchronously(t *testing.T) {
	svc, sess, _ := setup(t)
	signUp(t, sess, "ann@example.com")
	ctx := context.Background()

	assert.NoError(t, svc.Create(ctx, newProfile()))
	assert.NotNil(t, svc.Profile())

	assert.NoError(t, sess.SignOut(ctx))
	assert.Nil(t, svc.Profile())
	assert.False(t, svc.ProfileExists())
	assert.NoError(t, svc.Err())
}

func TestService_resubscribesOnIdentitySwitch(t *testing.T) {
	svc, sess, _ := setup(t)
	ctx := context.Background()

	signUp(t, sess, "ann@example.com")
	assert.NoError(t, svc.Create(ctx, newProfile()))
	assert.NoError(t, sess.SignOut(ctx))

	signUp(t, sess, "bob@example.com")
	assert.Nil(t, svc.Profile(), "bob must not see ann's profile")

	np := newProfile()
	np.Name = "Bob"
	assert.NoError(t, svc.Create(ctx, np))
	assert.Equal(t, "Bob", svc.Profile().Name)
}

func TestProfile_IsComplete(t *testing.T) {
	p := profile.Profile{
		Name: "Ann", Branch: "CS", Semester: "5", EnrollmentNo: "E1",
		ClassSection: "A", CollegeName: "X College", UniversityName: "Y University",
		AvatarID: "male_1",
	}
	assert.True(t, p.IsComplete())

	p.AvatarID = ""
	assert.False(t, p.IsComplete())
}

func TestIsValidAvatarID(t *testing.T) {
	assert.True(t, profile.IsValidAvatarID("male_1"))
	assert.True(t, profile.IsValidAvatarID("female_6"))
	assert.False(t, profile.IsValidAvatarID(""))
	assert.False(t, profile.IsValidAvatarID("male_7"))
}
