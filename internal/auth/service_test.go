package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/adopt-a-pet/internal/auth"
	"github.com/hugh/adopt-a-pet/internal/database/models"
	"github.com/hugh/adopt-a-pet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := auth.NewService(db)
	ctx := testutil.TestContext(t)

	user, err := svc.Signup(ctx, auth.SignupInput{Username: "alice", Password: "pw12345", Email: "a@x.io"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotEqual(t, "pw12345", user.PasswordHash)

	got, err := svc.Login(ctx, auth.LoginInput{Username: "alice", Password: "pw12345"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := auth.NewService(db)
	ctx := testutil.TestContext(t)
	testutil.CreateTestUser(t, db, "bob")

	_, err := svc.Login(ctx, auth.LoginInput{Username: "bob", Password: "nope"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, auth.LoginInput{Username: "nobody", Password: testutil.TestPassword})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestSignup_Duplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := auth.NewService(db)
	ctx := testutil.TestContext(t)
	testutil.CreateTestUser(t, db, "alice")

	tests := []struct {
		name  string
		input auth.SignupInput
	}{
		{"same username", auth.SignupInput{Username: "alice", Password: "pw", Email: "other@x.io"}},
		{"same email", auth.SignupInput{Username: "alice2", Password: "pw", Email: "alice@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.input)
			assert.ErrorIs(t, err, auth.ErrUserExists)
			assert.Equal(t, int64(1), testutil.CountRows(t, db, &models.User{}))
		})
	}
}

func TestGetUserByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := auth.NewService(db)
	ctx := testutil.TestContext(t)
	user := testutil.CreateTestUser(t, db, "carol")

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Username)

	_, err = svc.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := auth.NewService(db)
	ctx := testutil.TestContext(t)
	testutil.CreateTestUser(t, db, "zoe")
	testutil.CreateTestUser(t, db, "alice")
	testutil.CreateTestUser(t, db, "malice")

	all, err := svc.ListUsers(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "zoe", all[2].Username)

	found, err := svc.ListUsers(ctx, "lic")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "alice", found[0].Username)
	assert.Equal(t, "malice", found[1].Username)

	none, err := svc.ListUsers(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := auth.NewService(db)
	ctx := testutil.TestContext(t)
	user := testutil.CreateTestUser(t, db, "dave")

	updated, err := svc.UpdateProfile(ctx, user.ID, auth.UpdateProfileInput{
		Password: testutil.TestPassword,
		Username: "david",
		Email:    "david@x.io",
	})
	require.NoError(t, err)
	assert.Equal(t, "david", updated.Username)

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "david", got.Username)
	assert.Equal(t, "david@x.io", got.Email)
}

func TestUpdateProfile_WrongPasswordLeavesRecord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := auth.NewService(db)
	ctx := testutil.TestContext(t)
	user := testutil.CreateTestUser(t, db, "erin")

	_, err := svc.UpdateProfile(ctx, user.ID, auth.UpdateProfileInput{
		Password: "wrong",
		Username: "mallory",
		Email:    "m@x.io",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "erin", got.Username)
	assert.Equal(t, "erin@example.com", got.Email)
}

func TestUpdateProfile_TakenUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := auth.NewService(db)
	ctx := testutil.TestContext(t)
	user := testutil.CreateTestUser(t, db, "frank")
	testutil.CreateTestUser(t, db, "grace")

	_, err := svc.UpdateProfile(ctx, user.ID, auth.UpdateProfileInput{
		Password: testutil.TestPassword,
		Username: "grace",
		Email:    "frank@example.com",
	})
	assert.ErrorIs(t, err, auth.ErrUserExists)

	// Keeping one's own username and email is allowed.
	_, err = svc.UpdateProfile(ctx, user.ID, auth.UpdateProfileInput{
		Password: testutil.TestPassword,
		Username: "frank",
		Email:    "frank@example.com",
	})
	assert.NoError(t, err)
}

func TestDeleteUser_CascadesSavedItems(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := auth.NewService(db)
	ctx := testutil.TestContext(t)
	user := testutil.CreateTestUser(t, db, "heidi")
	other := testutil.CreateTestUser(t, db, "ivan")
	testutil.CreateSavedAnimal(t, db, user, "123", "Rex")
	testutil.CreateSavedOrganization(t, db, user, "NJ333", "Shelter")
	testutil.CreateSavedAnimal(t, db, other, "123", "Rex")

	require.NoError(t, svc.DeleteUser(ctx, user.ID))

	_, err := svc.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	assert.Equal(t, int64(1), testutil.CountRows(t, db, &models.SavedAnimal{}))
	assert.Equal(t, int64(0), testutil.CountRows(t, db, &models.SavedOrganization{}))
	// Cached catalog rows outlive the user.
	assert.Equal(t, int64(1), testutil.CountRows(t, db, &models.Animal{}))

	assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), auth.ErrUserNotFound)
}
