package authService_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cloud-storage/internal/apperr"
	"cloud-storage/internal/model/user"
	"cloud-storage/internal/repository/BlackListRepo"
	"cloud-storage/internal/repository/refreshToken"
	"cloud-storage/internal/repository/userRepo"
	"cloud-storage/internal/service/authService"
	"cloud-storage/pkg/database/sqlite"
	"cloud-storage/pkg/validator"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-jwt-secret"

func setupService(t *testing.T) (*authService.AuthService, *BlackListRepo.BlackListRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	dsn := fmt.Sprintf("file:auth_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(sqlite.Config{DSN: dsn}, &user.User{})
	require.NoError(t, err)

	blRepo := BlackListRepo.NewBlackListRepo(cli)
	s := authService.New(userRepo.NewGorm(db), authService.Config{JWTSecret: secret}, refreshToken.New(cli), blRepo)
	return s, blRepo
}

func register(t *testing.T, s *authService.AuthService, username string) *user.User {
	t.Helper()
	u, err := s.Register(context.Background(), validator.Registration{
		Username: username,
		Email:    username + "@example.com",
		Password: "Secret1!",
	})
	require.NoError(t, err)
	return u
}

func signed(t *testing.T, subject string, expires time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	ts, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return ts
}

func TestRegister(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	u := register(t, s, "alice")
	assert.NotZero(t, u.ID)
	assert.False(t, u.IsStaff)
	assert.NotEqual(t, "Secret1!", u.Password)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := s.Register(ctx, validator.Registration{Username: "alice", Email: "other@example.com", Password: "Secret1!"})
		var ve *apperr.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Contains(t, ve.Fields, "username")
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := s.Register(ctx, validator.Registration{Username: "alice2", Email: "ALICE@example.com", Password: "Secret1!"})
		var ve *apperr.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Contains(t, ve.Fields, "email")
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := s.Register(ctx, validator.Registration{Username: "bobby", Email: "bobby@example.com", Password: "password"})
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestLoginAuthenticate(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()
	u := register(t, s, "alice")

	_, err := s.Login(ctx, "alice", "wrong")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	_, err = s.Login(ctx, "nobody", "Secret1!")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	tokens, err := s.Login(ctx, "alice", "Secret1!")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	p, err := s.Authenticate(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)
	assert.False(t, p.Privileged())

	// flags are read on every request
	require.NoError(t, s.SetFlags(ctx, "alice", true, false))
	p, err = s.Authenticate(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, p.IsStaff)
}

func TestAuthenticate_Rejects(t *testing.T) {
	s, bl := setupService(t)
	ctx := context.Background()
	u := register(t, s, "alice")
	sub := fmt.Sprint(u.ID)

	cases := map[string]string{
		"garbage":      "not-a-token",
		"expired":      signed(t, sub, time.Now().Add(-time.Minute)),
		"unknown user": signed(t, "9999", time.Now().Add(time.Minute)),
		"bad subject":  signed(t, "abc", time.Now().Add(time.Minute)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Authenticate(ctx, token)
			assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
		})
	}

	t.Run("blacklisted", func(t *testing.T) {
		token := signed(t, sub, time.Now().Add(time.Minute))
		require.NoError(t, bl.AddToken(ctx, token, time.Now().Add(time.Minute)))
		_, err := s.Authenticate(ctx, token)
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	})

	t.Run("other algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS512, &jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		})
		ts, err := tok.SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = s.Authenticate(ctx, ts)
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	})
}

func TestRefresh(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()
	u := register(t, s, "alice")

	_, err := s.Refresh(ctx, u.ID, "some-random")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	tokens, err := s.Login(ctx, "alice", "Secret1!")
	require.NoError(t, err)

	rotated, err := s.Refresh(ctx, u.ID, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// the old refresh token is spent
	_, err = s.Refresh(ctx, u.ID, tokens.RefreshToken)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestLogout_BlacklistsAccessToken(t *testing.T) {
	s, bl := setupService(t)
	ctx := context.Background()
	register(t, s, "alice")

	tokens, err := s.Login(ctx, "alice", "Secret1!")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, tokens.UserID, tokens.AccessToken))

	blacklisted, err := bl.IsTokenBlacklisted(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, blacklisted)

	_, err = s.Authenticate(ctx, tokens.AccessToken)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = s.Refresh(ctx, tokens.UserID, tokens.RefreshToken)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}
