package authService

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud-storage/internal/apperr"
	"cloud-storage/internal/model/user"
	"cloud-storage/pkg/logger"
	"cloud-storage/pkg/validator"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	JWTSecret       string        `env:"JWT_TOKEN" env-required:"true"`
	AccessTokenTTL  time.Duration `env:"JWT_ACCESS_TTL" env-default:"3h"`
	RefreshTokenTTL time.Duration `env:"JWT_REFRESH_TTL" env-default:"168h"`
}

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uint32) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	SetFlags(ctx context.Context, id uint32, isStaff, isSuperuser bool) error
}

type RefreshTokenStore interface {
	SaveToken(ctx context.Context, userID uint32, token string, ttl time.Duration) error
	ValidateToken(ctx context.Context, userID uint32, token string) (bool, error)
	DeleteToken(ctx context.Context, userID uint32) error
}

type TokenBlacklist interface {
	AddToken(ctx context.Context, token string, expiresAt time.Time) error
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
}

type Tokens struct {
	UserID       uint32    `json:"user_id"`
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type AuthService struct {
	userRepo      UserRepository
	refreshRepo   RefreshTokenStore
	blacklistRepo TokenBlacklist
	validator     *validator.Validator
	cfg           Config
}

func New(userRepo UserRepository, cfg Config, tokenRepo RefreshTokenStore, blacklistRepo TokenBlacklist) *AuthService {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 3 * time.Hour
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		userRepo:      userRepo,
		refreshRepo:   tokenRepo,
		blacklistRepo: blacklistRepo,
		validator:     validator.New(),
		cfg:           cfg,
	}
}

// Register creates a regular account.
func (s *AuthService) Register(ctx context.Context, reg validator.Registration) (*user.User, error) {
	return s.CreateAccount(ctx, reg, false, false)
}

// CreateAccount creates an account with the given privilege flags. Only the
// command-line tooling grants flags; the HTTP surface always passes false.
func (s *AuthService) CreateAccount(ctx context.Context, reg validator.Registration, isStaff, isSuperuser bool) (*user.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))

	if fields := s.validator.Struct(reg); fields != nil {
		return nil, &apperr.ValidationError{Fields: fields}
	}

	if _, err := s.userRepo.GetByUsername(ctx, reg.Username); err == nil {
		return nil, apperr.NewValidationError("username", "A user with that username already exists.")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.GetByEmail(ctx, reg.Email); err == nil {
		return nil, apperr.NewValidationError("email", "A user with that email already exists.")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		Username:    reg.Username,
		Email:       reg.Email,
		Password:    string(hashedPassword),
		IsStaff:     isStaff,
		IsSuperuser: isSuperuser,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.NewValidationError("username", "A user with that username or email already exists.")
		}
		return nil, err
	}

	logger.GetLogger(ctx).Info("user registered",
		zap.Uint32("user_id", u.ID),
		zap.Bool("is_staff", isStaff),
		zap.Bool("is_superuser", isSuperuser),
	)
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*Tokens, error) {
	u, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}

	return s.issueTokens(ctx, u)
}

// Authenticate resolves a bearer token to the principal it was issued to.
// Flags are read from the store, so a demotion takes effect immediately.
func (s *AuthService) Authenticate(ctx context.Context, token string) (user.Principal, error) {
	uid, ok := s.GetUIDByToken(ctx, token)
	if !ok {
		return user.Principal{}, fmt.Errorf("invalid token: %w", apperr.ErrUnauthorized)
	}

	u, err := s.userRepo.GetByID(ctx, uid)
	if errors.Is(err, apperr.ErrNotFound) {
		return user.Principal{}, fmt.Errorf("unknown user: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return user.Principal{}, err
	}
	return u.Principal(), nil
}

func (s *AuthService) GetUIDByToken(ctx context.Context, token string) (uint32, bool) {
	blacklisted, err := s.blacklistRepo.IsTokenBlacklisted(ctx, token)
	if err != nil {
		logger.GetLogger(ctx).Warn("blacklist lookup failed", zap.Error(err))
		return 0, false
	}
	if blacklisted {
		return 0, false
	}

	payload, err := s.parse(token)
	if err != nil {
		return 0, false
	}

	uid, err := strconv.ParseUint(payload.Subject, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(uid), true
}

func (s *AuthService) Me(ctx context.Context, userID uint32) (*user.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *AuthService) Logout(ctx context.Context, userID uint32, accessToken string) error {
	if err := s.refreshRepo.DeleteToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	payload, err := s.parse(accessToken)
	if err != nil {
		return fmt.Errorf("invalid token: %w", apperr.ErrUnauthorized)
	}
	if err := s.blacklistRepo.AddToken(ctx, accessToken, payload.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	logger.GetLogger(ctx).Info("user logged out", zap.Uint32("user_id", userID))
	return nil
}

// Refresh rotates the refresh token and issues a new access token.
func (s *AuthService) Refresh(ctx context.Context, userID uint32, oldRefreshToken string) (*Tokens, error) {
	valid, err := s.refreshRepo.ValidateToken(ctx, userID, oldRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("validate refresh token: %w", err)
	}
	if !valid {
		return nil, fmt.Errorf("expired refresh token: %w", apperr.ErrUnauthorized)
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("unknown user: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, u)
}

// SetFlags changes the privilege flags of an existing account.
func (s *AuthService) SetFlags(ctx context.Context, username string, isStaff, isSuperuser bool) error {
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.userRepo.SetFlags(ctx, u.ID, isStaff, isSuperuser); err != nil {
		return err
	}
	logger.GetLogger(ctx).Info("user flags changed",
		zap.Uint32("user_id", u.ID),
		zap.Bool("is_staff", isStaff),
		zap.Bool("is_superuser", isSuperuser),
	)
	return nil
}

func (s *AuthService) issueTokens(ctx context.Context, u *user.User) (*Tokens, error) {
	expiresAt := time.Now().Add(s.cfg.AccessTokenTTL)
	accessToken, err := s.generateJWT(u, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken := uuid.NewString()
	if err := s.refreshRepo.SaveToken(ctx, u.ID, refreshToken, s.cfg.RefreshTokenTTL); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &Tokens{
		UserID:       u.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *AuthService) generateJWT(u *user.User, expiresAt time.Time) (string, error) {
	now := time.Now()
	payload := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatUint(uint64(u.ID), 10),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) parse(token string) (*jwt.RegisteredClaims, error) {
	payload := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, payload, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	return payload, nil
}
