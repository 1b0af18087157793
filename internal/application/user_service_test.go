package application

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly/internal/domain/entity"
	"github.com/attendly/attendly/pkg/helpers"
)

func newUserService(users *fakeUserRepo, sigs *fakeSignatureRepo) *UserService {
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	return NewUserService(users, sigs, jwt, nil, testLogger(), "register-key")
}

func TestRegister(t *testing.T) {
	t.Parallel()

	svc := newUserService(newFakeUserRepo(), newFakeSignatureRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password123", "wrong-key")
	assert.ErrorIs(t, err, ErrInvalidRegisterKey)

	u, err := svc.Register(ctx, "alice", "password123", "register-key")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.True(t, helpers.CompareHashAndPassword(u.PasswordHash, "password123"))

	_, err = svc.Register(ctx, "alice", "otherpassword", "register-key")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	svc := newUserService(newFakeUserRepo(), newFakeSignatureRepo())
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "password123", "register-key")
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = svc.Authenticate(ctx, "alice", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "bob", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginIssuesParsableTokens(t *testing.T) {
	t.Parallel()

	svc := newUserService(newFakeUserRepo(), newFakeSignatureRepo())
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "password123", "register-key")
	require.NoError(t, err)

	u, pair, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.RefreshTokenExpiry.After(pair.AccessTokenExpiry))

	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.NotEmpty(t, claims.SessionID)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo()
	svc := newUserService(users, newFakeSignatureRepo())
	ctx := context.Background()
	u, err := svc.Register(ctx, "alice", "password123", "register-key")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "password123", "register-key")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{OldPassword: "wrong", NewPassword: "newpassword1"})
	assert.ErrorIs(t, err, ErrWrongOldPassword)

	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Username: "bob"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	updated, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{
		Username:    "alice2",
		OldPassword: "password123",
		NewPassword: "newpassword1",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.True(t, helpers.CompareHashAndPassword(updated.PasswordHash, "newpassword1"))

	_, err = svc.Authenticate(ctx, "alice2", "newpassword1")
	assert.NoError(t, err)
}

func intraToken(t *testing.T, payload map[string]any) string {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	seg := base64.RawURLEncoding.EncodeToString(b)
	return "eyJhbGciOiJIUzI1NiJ9." + seg + ".c2lnbmF0dXJl"
}

func TestUpdateIntraJWT(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo(&entity.User{ID: "u1", Username: "alice"})
	svc := newUserService(users, newFakeSignatureRepo())
	ctx := context.Background()

	exp := time.Now().Add(48 * time.Hour).Unix()
	token := intraToken(t, map[string]any{"exp": exp, "login": "alice"})

	require.NoError(t, svc.UpdateIntraJWT(ctx, "u1", token))
	u, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u.IntraJWT)
	assert.Equal(t, token, *u.IntraJWT)
	require.NotNil(t, u.IntraJWTExpiresAt)
	assert.Equal(t, time.Unix(exp, 0).UTC(), *u.IntraJWTExpiresAt)

	assert.ErrorIs(t, svc.UpdateIntraJWT(ctx, "u1", "not-a-jwt"), ErrInvalidIntraJWT)
	assert.ErrorIs(t, svc.UpdateIntraJWT(ctx, "u1", "a.!!!.c"), ErrInvalidIntraJWT)
	noExp := intraToken(t, map[string]any{"login": "alice"})
	assert.ErrorIs(t, svc.UpdateIntraJWT(ctx, "u1", noExp), ErrInvalidIntraJWT)

	assert.ErrorIs(t, svc.UpdateIntraJWT(ctx, "ghost", token), ErrUserNotFound)
}

func TestSignatureLifecycle(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo(&entity.User{ID: "u1", Username: "alice"})
	svc := newUserService(users, newFakeSignatureRepo())
	ctx := context.Background()

	_, err := svc.AddSignature(ctx, "u1", "data:image/jpeg;base64,AAA")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.RandomSignature(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoSignature)

	sig, err := svc.AddSignature(ctx, "u1", "data:image/png;base64,AAA")
	require.NoError(t, err)

	got, err := svc.RandomSignature(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAA", got)

	list, err := svc.ListSignatures(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	deleted, err := svc.DeleteSignature(ctx, "u1", sig.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteSignature(ctx, "u1", sig.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteAccount(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo(&entity.User{ID: "u1", Username: "alice"})
	svc := newUserService(users, newFakeSignatureRepo())
	ctx := context.Background()

	deleted, err := svc.DeleteAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteAccount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, deleted)
}
