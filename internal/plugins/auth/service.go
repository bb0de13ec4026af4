package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/argon2"

	"github.com/keyxmakerx/gatehouse/internal/apperror"
	"github.com/keyxmakerx/gatehouse/internal/rbac"
	"github.com/keyxmakerx/gatehouse/internal/token"
)

// refreshKeyPrefix is the Redis key prefix for refresh tokens. The value is
// the owning user's ID.
const refreshKeyPrefix = "refresh:"

// refreshTokenBytes is the number of random bytes in a refresh token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const refreshTokenBytes = 32

// argon2id parameters following OWASP recommendations for argon2id:
// memory=64MB, iterations=3, parallelism=4.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB in KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	CurrentUser(ctx context.Context, userID string) (*User, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) error
}

// authService implements AuthService with argon2id hashing, stateless bearer
// tokens, and Redis-backed refresh tokens.
type authService struct {
	repo       UserRepository
	codec      *token.Codec
	redis      *redis.Client
	refreshTTL time.Duration
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(repo UserRepository, codec *token.Codec, rdb *redis.Client, refreshTTL time.Duration) AuthService {
	return &authService{
		repo:       repo,
		codec:      codec,
		redis:      rdb,
		refreshTTL: refreshTTL,
	}
}

// Register creates a new user account. It validates uniqueness, hashes the
// password with argon2id, seeds the permission set from the role's defaults,
// and persists the user.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Check if email is already taken before doing expensive hashing.
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("an account with this email already exists")
	}

	// Hash the password with argon2id (memory-hard, GPU-resistant).
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		Role:         rbac.RoleUser,
		Permissions:  rbac.DefaultPermissions(rbac.RoleUser),
		TenantID:     input.TenantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("tenant_id", user.TenantID),
	)

	return user, nil
}

// Login authenticates a user by email and password. On success it mints a
// bearer token carrying the user's role, permission set, and tenant, and
// creates a refresh token in Redis.
func (s *authService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	// Find user by email. A missing user and a wrong password produce the
	// same generic message -- never reveal whether the email exists.
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, apperror.NewUnauthorized("invalid email or password")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, apperror.NewUnauthorized("invalid email or password")
	}

	result, err := s.issueCredentials(ctx, user)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("role", string(user.Role)),
	)

	return result, nil
}

// CurrentUser resolves the principal behind a forwarded identity header.
// Used by the session-introspection endpoint.
func (s *authService) CurrentUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, apperror.NewUnauthorized("not authenticated")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	return user, nil
}

// Refresh exchanges a refresh token for fresh credentials. The old refresh
// token is rotated: deleted and replaced in one flow.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	key := refreshKeyPrefix + refreshToken

	userID, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, apperror.NewUnauthorized("refresh token expired or invalid")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading refresh token: %w", err))
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewUnauthorized("refresh token expired or invalid")
	}

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("rotating refresh token: %w", err))
	}

	result, err := s.issueCredentials(ctx, user)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	slog.Info("token refreshed", slog.String("user_id", user.ID))

	return result, nil
}

// RevokeRefreshToken removes a refresh token from Redis. Logging out with an
// unknown token is not an error.
func (s *authService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.redis.Del(ctx, refreshKeyPrefix+refreshToken).Err(); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting refresh token: %w", err))
	}
	return nil
}

// issueCredentials mints the bearer token and a new refresh token for user.
func (s *authService) issueCredentials(ctx context.Context, user *User) (*LoginResult, error) {
	bearer, err := s.codec.Encode(token.Claims{
		Sub:         user.ID,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: user.Permissions,
		TenantID:    user.TenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding bearer token: %w", err)
	}

	refresh, err := generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	if err := s.redis.Set(ctx, refreshKeyPrefix+refresh, user.ID, s.refreshTTL).Err(); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &LoginResult{User: user, Token: bearer, RefreshToken: refresh}, nil
}

// --- Password Hashing (argon2id) ---

// hashPassword creates an argon2id hash of the given password. The output
// format is: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
// This format is compatible with most argon2 libraries and allows self-
// contained verification without separate salt storage.
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	// Encode to the standard PHC string format.
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, b64Salt, b64Hash)

	return encoded, nil
}

// verifyPassword checks a plaintext password against an argon2id hash string.
// Returns true if the password matches.
func verifyPassword(password, encodedHash string) bool {
	// Parse the encoded hash to extract parameters, salt, and hash.
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Compute the hash of the provided password with the same parameters.
	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Constant-time comparison to prevent timing attacks.
	return subtle.ConstantTimeCompare(expectedHash, computedHash) == 1
}

// generateRefreshToken creates a cryptographically random hex-encoded token.
func generateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
