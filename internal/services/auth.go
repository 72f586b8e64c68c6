package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mediahub/backend/internal/config"
	"github.com/mediahub/backend/internal/models"
	"github.com/mediahub/backend/internal/utils"
	"github.com/mediahub/backend/pkg/logger"
	"github.com/mediahub/backend/pkg/response"
	"gorm.io/gorm"
)

const (
	accessTokenExpireKey      = "auth_access_token_expire_hours"
	refreshTokenExpireKey     = "auth_refresh_token_expire_hours"
	defaultRefreshExpireHours = 720

	// bcrypt ignores input past this length
	maxPasswordBytes = 72
)

var (
	ErrInvalidCredentials  = response.NewUnauthorized("invalid email or password")
	ErrUserDisabled        = response.NewUnauthorized("user is disabled")
	ErrRefreshTokenMissing = response.NewBadRequest("refresh token required")
	ErrInvalidRefreshToken = response.NewUnauthorized("invalid refresh token")
	ErrRefreshTokenRevoked = response.NewUnauthorized("refresh token revoked")
	ErrRefreshTokenExpired = response.NewUnauthorized("refresh token expired")
	ErrInvalidSession      = response.NewUnauthorized("invalid or expired session")
	ErrEmailRegistered     = response.NewConflict("user already registered")
	ErrUsernameTaken       = response.NewConflict("username is already taken")
)

// ClientInfo is recorded on refresh tokens for auditing.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type SignUpRequest struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Username string            `json:"username"`
	Metadata map[string]string `json:"metadata"`
}

// username prefers the top-level field and falls back to metadata.username.
func (r *SignUpRequest) username() string {
	if strings.TrimSpace(r.Username) != "" {
		return r.Username
	}
	return r.Metadata["username"]
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Session is returned by sign-up, sign-in and refresh.
type Session struct {
	AccessToken      string          `json:"access_token"`
	TokenType        string          `json:"token_type"`
	ExpiresAt        time.Time       `json:"expires_at"`
	RefreshToken     string          `json:"refresh_token"`
	RefreshExpiresAt time.Time       `json:"refresh_expires_at"`
	User             *models.User    `json:"user"`
	Profile          *models.Profile `json:"profile,omitempty"`
}

// CurrentSession describes the identity behind a valid access token.
type CurrentSession struct {
	User      *models.User    `json:"user"`
	Profile   *models.Profile `json:"profile,omitempty"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type AuthService struct {
	db         *gorm.DB
	jwtConfig  *config.JWTConfig
	authConfig *config.AuthConfig
	configSvc  *SystemConfigService
	profiles   *ProfileService
	events     *AuthEventHub
	now        func() time.Time
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, authCfg *config.AuthConfig, profiles *ProfileService, events *AuthEventHub) *AuthService {
	if events == nil {
		events = NewAuthEventHub()
	}
	return &AuthService{
		db:         db,
		jwtConfig:  jwtCfg,
		authConfig: authCfg,
		configSvc:  NewSystemConfigService(db),
		profiles:   profiles,
		events:     events,
		now:        time.Now,
	}
}

// Subscribe registers fn for auth-state changes.
func (s *AuthService) Subscribe(fn func(AuthEvent)) (unsubscribe func()) {
	return s.events.Subscribe(fn)
}

// SignUp creates the identity and its profile in one transaction, then
// signs the new user in.
func (s *AuthService) SignUp(ctx context.Context, req *SignUpRequest, client ClientInfo) (*Session, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < s.minPasswordLength() {
		return nil, response.NewBadRequest(fmt.Sprintf("password must be at least %d characters", s.minPasswordLength()))
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, response.NewBadRequest("password must be at most 72 bytes")
	}
	username, err := ValidateUsername(req.username())
	if err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var metadata string
	if len(req.Metadata) > 0 {
		if b, err := json.Marshal(req.Metadata); err == nil {
			metadata = string(b)
		}
	}

	user := models.User{
		Email:    email,
		Password: hashed,
		Metadata: metadata,
		IsActive: true,
	}
	var profile models.Profile

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrEmailRegistered
		}

		taken, err := s.profiles.UsernameTaken(tx, username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}

		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailRegistered
			}
			return err
		}

		profile = models.Profile{
			ID:        user.ID,
			Username:  username,
			Email:     email,
			CreatedAt: s.now().UTC(),
		}
		if err := tx.Create(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUsernameTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("user_id", user.ID).Str("username", username).Msg("user signed up")
	s.events.Publish(AuthEvent{Type: EventUserCreated, UserID: user.ID})

	return s.issueSession(ctx, &user, &profile, client)
}

func (s *AuthService) SignIn(ctx context.Context, req *SignInRequest, client ClientInfo) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, response.NewBadRequest("email and password are required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(ctx, &user, s.lookupProfile(ctx, user.ID), client)
}

// Refresh rotates a refresh token: the presented token is revoked and
// replaced by a new one in the same transaction.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenMissing
	}
	db := s.db.WithContext(ctx)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ?", hashRefreshToken(refreshToken)).Take(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if stored.RevokedAt != nil {
		return nil, ErrRefreshTokenRevoked
	}
	now := s.now()
	if now.After(stored.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	user, err := s.activeUser(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, ErrAuthorNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	accessToken, accessExpiresAt, err := s.signAccessToken(ctx, user)
	if err != nil {
		return nil, err
	}
	newToken, newHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	replacement := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   newHash,
		ExpiresAt:   now.Add(s.refreshTTL()),
		CreatedByIP: client.IP,
		UserAgent:   client.UserAgent,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&replacement).Error; err != nil {
			return err
		}
		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", stored.ID).
			Updates(map[string]interface{}{
				"revoked_at":           now,
				"replaced_by_token_id": replacement.ID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// lost a race with another refresh or sign-out
			return ErrRefreshTokenRevoked
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(AuthEvent{Type: EventTokenRefreshed, UserID: user.ID})

	return &Session{
		AccessToken:      accessToken,
		TokenType:        "bearer",
		ExpiresAt:        accessExpiresAt,
		RefreshToken:     newToken,
		RefreshExpiresAt: replacement.ExpiresAt,
		User:             user,
		Profile:          s.lookupProfile(ctx, user.ID),
	}, nil
}

// SignOut revokes the refresh token. Unknown or already revoked tokens are
// not an error.
func (s *AuthService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrRefreshTokenMissing
	}
	db := s.db.WithContext(ctx)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ?", hashRefreshToken(refreshToken)).Take(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	result := db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", stored.ID).
		Update("revoked_at", s.now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		logger.Info().Str("user_id", stored.UserID).Msg("user signed out")
		s.events.Publish(AuthEvent{Type: EventSignedOut, UserID: stored.UserID})
	}
	return nil
}

// GetSession validates an access token and loads its identity.
func (s *AuthService) GetSession(ctx context.Context, accessToken string) (*CurrentSession, error) {
	claims, err := utils.ParseToken(accessToken)
	if err != nil {
		return nil, ErrInvalidSession
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrAuthorNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	current := &CurrentSession{
		User:    user,
		Profile: s.lookupProfile(ctx, user.ID),
	}
	if claims.ExpiresAt != nil {
		current.ExpiresAt = claims.ExpiresAt.Time
	}
	return current, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User, profile *models.Profile, client ClientInfo) (*Session, error) {
	db := s.db.WithContext(ctx)

	accessToken, accessExpiresAt, err := s.signAccessToken(ctx, user)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	record := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   refreshHash,
		ExpiresAt:   now.Add(s.refreshTTL()),
		CreatedByIP: client.IP,
		UserAgent:   client.UserAgent,
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("last_login", now).Error; err != nil {
		logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to update last login")
	} else {
		user.LastLogin = &now
	}

	s.events.Publish(AuthEvent{Type: EventSignedIn, UserID: user.ID})

	return &Session{
		AccessToken:      accessToken,
		TokenType:        "bearer",
		ExpiresAt:        accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: record.ExpiresAt,
		User:             user,
		Profile:          profile,
	}, nil
}

func (s *AuthService) signAccessToken(ctx context.Context, user *models.User) (string, time.Time, error) {
	hours := s.configSvc.GetPositiveInt(accessTokenExpireKey, s.jwtConfig.ExpireHour)

	var username string
	if p := s.lookupProfile(ctx, user.ID); p != nil {
		username = p.Username
	}

	token, err := utils.GenerateToken(user.ID, user.Email, username, hours)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, s.now().Add(time.Duration(hours) * time.Hour), nil
}

func (s *AuthService) refreshTTL() time.Duration {
	hours := s.configSvc.GetPositiveInt(refreshTokenExpireKey, defaultRefreshExpireHours)
	return time.Duration(hours) * time.Hour
}

func (s *AuthService) minPasswordLength() int {
	if s.authConfig == nil || s.authConfig.MinPasswordLength <= 0 {
		return 6
	}
	return s.authConfig.MinPasswordLength
}

func (s *AuthService) activeUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	return &user, nil
}

func (s *AuthService) lookupProfile(ctx context.Context, userID string) *models.Profile {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil
	}
	return profile
}

// validate caches struct info between calls and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", response.NewBadRequest("email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", response.NewBadRequest("invalid email address")
	}
	return email, nil
}

func generateRefreshToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(randomBytes)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
