package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/storage/memory"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

const secret = "test-secret-0123456789"

func newService(t *testing.T) *Service {
	t.Helper()
	return New(memory.New(), NewTokenIssuer(secret, "pawmate", time.Hour), logger.NewNop(),
		WithHashCost(bcrypt.MinCost),
		WithAdminEmails(func(email string) bool { return email == "root@pawmate.app" }))
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	sess, err := svc.Register(ctx, Registration{Email: " Alice@Example.com ", Password: "correct horse", FullName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.Equal(t, user.RoleOwner, sess.User.Role)
	assert.NotEmpty(t, sess.Token)
	assert.NotEqual(t, "correct horse", sess.User.PasswordHash)

	_, err = svc.Register(ctx, Registration{Email: "alice@example.com", Password: "another-pass", FullName: "Alice 2"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "duplicate email: %v", err)

	login, err := svc.Login(ctx, "ALICE@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, wrongPass := svc.Login(ctx, "alice@example.com", "wrong password")
	_, wrongEmail := svc.Login(ctx, "nobody@example.com", "correct horse")
	require.Error(t, wrongPass)
	require.Error(t, wrongEmail)
	assert.Equal(t, apperrors.GetServiceError(wrongPass).Message, apperrors.GetServiceError(wrongEmail).Message)
	assert.True(t, apperrors.HasCode(wrongEmail, apperrors.CodeUnauthorized))

	who, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, who.ID)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidToken))
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	cases := map[string]Registration{
		"bad email":      {Email: "not-an-email", Password: "password1", FullName: "X"},
		"short password": {Email: "x@example.com", Password: "short", FullName: "X"},
		"missing name":   {Email: "x@example.com", Password: "password1"},
		"unknown role":   {Email: "x@example.com", Password: "password1", FullName: "X", Role: "vet"},
	}
	for name, reg := range cases {
		_, err := svc.Register(ctx, reg)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "%s: %v", name, err)
	}

	_, err := svc.Register(ctx, Registration{Email: "eve@example.com", Password: "password1", FullName: "Eve", Role: "admin"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	admin, err := svc.Register(ctx, Registration{Email: "root@pawmate.app", Password: "password1", FullName: "Root", Role: "admin"})
	require.NoError(t, err)
	assert.True(t, admin.User.IsAdmin())
}

func TestExpiredTokenRejected(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	sess, err := svc.Register(ctx, Registration{Email: "bob@example.com", Password: "password1", FullName: "Bob"})
	require.NoError(t, err)

	svc.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidToken))
}

func TestTokenWithOtherSecretRejected(t *testing.T) {
	other := NewTokenIssuer("another-secret-0123456789", "pawmate", time.Hour)
	token, _, err := other.Issue(user.User{ID: "u1", Role: user.RoleOwner})
	require.NoError(t, err)

	_, err = NewTokenIssuer(secret, "pawmate", time.Hour).Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestProfilePasswordAndRole(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	owner, err := svc.Register(ctx, Registration{Email: "carol@example.com", Password: "password1", FullName: "Carol"})
	require.NoError(t, err)
	root, err := svc.Register(ctx, Registration{Email: "root@pawmate.app", Password: "password1", FullName: "Root", Role: "admin"})
	require.NoError(t, err)

	name, phone := "Carol Smith", "+1 555 0100"
	updated, err := svc.UpdateProfile(ctx, owner.User, ProfileUpdate{FullName: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, name, updated.FullName)
	assert.Equal(t, phone, updated.Phone)

	bad := "not a url"
	_, err = svc.UpdateProfile(ctx, owner.User, ProfileUpdate{AvatarURL: &bad})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	err = svc.ChangePassword(ctx, owner.User, "wrong-old", "newpassword")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	require.NoError(t, svc.ChangePassword(ctx, owner.User, "password1", "newpassword"))
	_, err = svc.Login(ctx, "carol@example.com", "newpassword")
	require.NoError(t, err)

	_, err = svc.SetRole(ctx, owner.User, owner.User.ID, "admin")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	promoted, err := svc.SetRole(ctx, root.User, owner.User.ID, "sitter")
	require.NoError(t, err)
	assert.Equal(t, user.RoleSitter, promoted.Role)
}
