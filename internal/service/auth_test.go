package service

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ShaniStaretz-ai/FinalProject/internal/pkg/config"
	"github.com/ShaniStaretz-ai/FinalProject/internal/pkg/jwt"
	"github.com/ShaniStaretz-ai/FinalProject/internal/repository"
)

func newAuthService(t *testing.T) (*AuthService, *repository.UserRepository) {
	t.Helper()

	config.Set(&config.Config{
		JWT: config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1},
	})

	d, err := repository.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	users := repository.NewUserRepository(d)
	return NewAuthService(users, 15), users
}

func TestRegister(t *testing.T) {
	svc, users := newAuthService(t)

	require.NoError(t, svc.Register("a@example.com", "secret"))

	user, err := users.GetByEmail("a@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 15, user.Tokens)
	assert.False(t, user.IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret")))
}

func TestRegisterShortPassword(t *testing.T) {
	svc, _ := newAuthService(t)

	err := svc.Register("a@example.com", "abc")

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)

	require.NoError(t, svc.Register("a@example.com", "secret"))
	assert.ErrorIs(t, svc.Register("a@example.com", "other"), ErrEmailExists)
}

func TestLogin(t *testing.T) {
	svc, users := newAuthService(t)
	require.NoError(t, svc.Register("a@example.com", "secret"))

	resp, err := svc.Login("a@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)

	claims, err := jwt.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.False(t, claims.IsAdmin)

	user, err := users.GetByEmail("a@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	require.NoError(t, svc.Register("a@example.com", "secret"))

	_, err := svc.Login("a@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Login("nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetUser(t *testing.T) {
	svc, users := newAuthService(t)
	require.NoError(t, svc.Register("a@example.com", "secret"))

	stored, err := users.GetByEmail("a@example.com")
	require.NoError(t, err)

	user, err := svc.GetUser(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	_, err = svc.GetUser(999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	svc, users := newAuthService(t)

	require.NoError(t, svc.EnsureAdmin("admin@example.com", "adminpass"))

	admin, err := users.GetByEmail("admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin)

	// bootstrapping again is a no-op, not an error
	require.NoError(t, svc.EnsureAdmin("admin@example.com", "adminpass"))

	// blank credentials skip the bootstrap entirely
	require.NoError(t, svc.EnsureAdmin("", ""))
}
