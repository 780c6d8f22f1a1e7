package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/reparafacil/repair-service/internal/config"
	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

func newAuthFixture(t *testing.T) (*AuthService, *UserService, *repository.MemoryUserRepository) {
	t.Helper()
	repo := repository.NewMemoryUserRepository()
	authSvc := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            bcrypt.MinCost,
		MaxLoginAttempts:      5,
	}, AuthDependencies{UserRepo: repo, Clock: newFakeClock(t0).Now})
	users := NewUserService(UserDependencies{UserRepo: repo, AuthService: authSvc})
	return authSvc, users, repo
}

func register(t *testing.T, svc *AuthService, username string) *Session {
	t.Helper()
	session, err := svc.Register(context.Background(), RegisterInput{
		Username:  username,
		Email:     username + "@X.com ",
		Password:  "secret123",
		FirstName: "Test",
		LastName:  username,
	})
	require.NoError(t, err)
	return session
}

func TestRegisterCreatesClientAndToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	session := register(t, svc, "juan")
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, domain.UserRoleClient, session.User.Role)
	assert.Equal(t, "juan@x.com", session.User.Email)
	assert.True(t, session.User.Active)
	assert.NotEqual(t, "secret123", session.User.PasswordHash)

	claims, err := svc.TokenManager().ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()
	register(t, svc, "juan")

	_, err := svc.Register(ctx, RegisterInput{Username: "juan", Email: "other@x.com", Password: "secret123"})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeConflict))

	_, err = svc.Register(ctx, RegisterInput{Username: "other", Email: "JUAN@x.com", Password: "secret123"})
	assert.True(t, errorutil.HasCode(err, errorutil.CodeConflict))

	taken, err := svc.UsernameExists(ctx, "juan")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = svc.EmailExists(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	svc, _, repo := newAuthFixture(t)
	ctx := context.Background()
	register(t, svc, "ana")

	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, "ana", "wrong")
		assert.True(t, errorutil.HasCode(err, errorutil.CodeUnauthorized))
	}
	_, err := svc.Login(ctx, "ana", "wrong")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeAccountLocked))

	_, err = svc.Login(ctx, "ana", "secret123")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeAccountLocked))

	_, err = svc.Unlock(ctx, "ana")
	require.NoError(t, err)

	session, err := svc.Login(ctx, "ana", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	stored, err := repo.GetByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLogins)
	assert.False(t, stored.Locked)
	require.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, t0, *stored.LastLoginAt)
}

func TestLoginFailures(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	ctx := context.Background()
	session := register(t, svc, "pedro")

	_, err := svc.Login(ctx, "ghost", "whatever")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeUnauthorized))

	require.NoError(t, users.SoftDelete(ctx, session.User.ID))
	_, err = svc.Login(ctx, "pedro", "secret123")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeForbidden))
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()
	register(t, svc, "luis")

	err := svc.ChangePassword(ctx, "luis", "bad", "newpass123")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeUnauthorized))

	require.NoError(t, svc.ChangePassword(ctx, "luis", "secret123", "newpass123"))
	_, err = svc.Login(ctx, "luis", "newpass123")
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, "ghost", "a", "b")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeNotFound))
}
