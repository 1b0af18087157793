package application

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/attendly/attendly/internal/domain/entity"
	repo "github.com/attendly/attendly/internal/domain/repository"
	"github.com/attendly/attendly/pkg/helpers"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRegisterKey = errors.New("invalid register key")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrWrongOldPassword   = errors.New("old password is incorrect")
	ErrNoSignature        = errors.New("signature not set, please create a signature first")
	ErrInvalidSignature   = errors.New("invalid signature format, expected PNG base64 data URL")
	ErrInvalidIntraJWT    = errors.New("invalid intra jwt")
)

const signaturePrefix = "data:image/png;base64,"

// UserService covers account lifecycle, API sessions and the signature
// collection used by portal validation.
type UserService struct {
	Users       repo.UserRepository
	Signatures  repo.SignatureRepository
	JWT         *helpers.JWTManager
	Redis       *redis.Client
	Logger      *logrus.Logger
	RegisterKey string
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func sessionKey(userID string) string {
	return "user:session:" + userID
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func NewUserService(users repo.UserRepository, sigs repo.SignatureRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, registerKey string) *UserService {
	return &UserService{
		Users:       users,
		Signatures:  sigs,
		JWT:         jwt,
		Redis:       rdb,
		Logger:      logger,
		RegisterKey: registerKey,
	}
}

// Register creates an account. The shared register key gates sign-ups; it is
// not a per-user secret.
func (s *UserService) Register(ctx context.Context, username, password, key string) (*entity.User, error) {
	if key != s.RegisterKey {
		return nil, ErrInvalidRegisterKey
	}
	if _, err := s.Users.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.Logger.WithField("username", username).Info("user registered")
	return u, nil
}

// Authenticate validates username/password and returns the user without issuing tokens.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *UserService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		return TokenPair{}, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":    u.ID,
			"username":   u.Username,
			"sid":        sid,
			"logged_in":  true,
			"created_at": nowRFC3339(),
		}
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, 24*time.Hour)
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	if s.Redis != nil {
		key := sessionKey(u.ID)
		data, rErr := s.Redis.HGetAll(ctx, key).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, "", ErrInvalidCredentials
		}
	}
	// Rotate session id and tokens
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, sid)
	if err != nil {
		return TokenPair{}, "", err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, sid)
	if err != nil {
		return TokenPair{}, "", err
	}
	if s.Redis != nil {
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"sid":        sid,
			"updated_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, 24*time.Hour)
		_, _ = pipe.Exec(ctx)
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, u.ID, nil
}

func (s *UserService) Logout(ctx context.Context, userID string) {
	if s.Redis != nil {
		if err := helpers.RedisDel(ctx, s.Redis, sessionKey(userID)); err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("failed to drop redis session")
		}
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]entity.User, error) {
	return s.Users.GetAll(ctx)
}

type UpdateProfileInput struct {
	Username    string
	OldPassword string
	NewPassword string
}

// UpdateProfile changes username and/or password. A password change requires
// the current one; a username change must not collide with another account.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if in.NewPassword != "" {
		if !helpers.CompareHashAndPassword(u.PasswordHash, in.OldPassword) {
			return nil, ErrWrongOldPassword
		}
		hash, hErr := helpers.HashPassword(in.NewPassword)
		if hErr != nil {
			return nil, hErr
		}
		u.PasswordHash = hash
	}

	if in.Username != "" && in.Username != u.Username {
		existing, gErr := s.Users.GetByUsername(ctx, in.Username)
		if gErr == nil && existing.ID != u.ID {
			return nil, ErrUsernameTaken
		}
		if gErr != nil && !errors.Is(gErr, repo.ErrNotFound) {
			return nil, gErr
		}
		u.Username = in.Username
	}

	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}

	if s.Redis != nil {
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"username":   u.Username,
			"updated_at": nowRFC3339(),
		})
		if ttl, tErr := s.Redis.TTL(ctx, key).Result(); tErr == nil && ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		if _, pErr := pipe.Exec(ctx); pErr != nil {
			s.Logger.WithError(pErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}
	return u, nil
}

// UpdateIntraJWT stores a raw intra token after extracting its expiry from the
// unverified payload segment. The token is issued by a third party, so only
// its shape is checked, never its signature.
func (s *UserService) UpdateIntraJWT(ctx context.Context, userID, token string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrInvalidIntraJWT
	}
	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrInvalidIntraJWT
	}
	var payload struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(decoded, &payload); err != nil || payload.Exp <= 0 {
		return ErrInvalidIntraJWT
	}
	expiresAt := time.Unix(payload.Exp, 0).UTC()
	if err := s.Users.UpdateIntraJWT(ctx, userID, token, expiresAt); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": userID, "expires_at": expiresAt}).Info("intra jwt updated")
	return nil
}

// AddSignature stores one more handwritten signature for the user. Only PNG
// data URLs are accepted.
func (s *UserService) AddSignature(ctx context.Context, userID, signatureData string) (*entity.UserSignature, error) {
	if !strings.HasPrefix(signatureData, signaturePrefix) {
		return nil, ErrInvalidSignature
	}
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		return nil, ErrUserNotFound
	}
	sig, err := s.Signatures.Add(ctx, userID, signatureData)
	if err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": userID, "length": len(signatureData)}).Info("signature saved")
	return sig, nil
}

func (s *UserService) ListSignatures(ctx context.Context, userID string) ([]entity.UserSignature, error) {
	return s.Signatures.ListByUser(ctx, userID)
}

func (s *UserService) DeleteSignature(ctx context.Context, userID, signatureID string) (bool, error) {
	return s.Signatures.Delete(ctx, signatureID, userID)
}

// RandomSignature picks one of the user's signatures at random, or
// ErrNoSignature when the collection is empty.
func (s *UserService) RandomSignature(ctx context.Context, userID string) (string, error) {
	sigs, err := s.Signatures.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(sigs) == 0 {
		return "", ErrNoSignature
	}
	return pickRandom(sigs).SignatureData, nil
}

// DeleteAccount removes the user and all owned data, and drops the Redis session.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) (bool, error) {
	deleted, err := s.Users.DeleteAccount(ctx, userID)
	if err != nil {
		return false, err
	}
	if deleted && s.Redis != nil {
		_ = helpers.RedisDel(ctx, s.Redis, sessionKey(userID))
	}
	return deleted, nil
}
