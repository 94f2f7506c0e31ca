package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/agrisoil/backend/internal/logger"
	"github.com/pageza/agrisoil/backend/internal/models"
	"github.com/pageza/agrisoil/backend/internal/types"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)

// TokenPair is what a successful login hands back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService struct {
	db         *gorm.DB
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	log        *logger.Logger
}

func NewAuthService(db *gorm.DB, jwtSecret string, accessTTL, refreshTTL time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		db:         db,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		log:        log.With("service", "auth"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active, non-admin account.
func (s *AuthService) Register(ctx context.Context, req types.RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		Province:     req.Province,
		City:         req.City,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// A concurrent registration can pass the count check above.
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("User registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials, stamps last_login_at and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, fmt.Errorf("%w: account is inactive", ErrForbidden)
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLoginAt = &now

	pair, err := s.GenerateTokenPair(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// GenerateTokenPair issues a fresh access and refresh token for user.
func (s *AuthService) GenerateTokenPair(user *models.User) (*TokenPair, error) {
	access, err := s.generateToken(user, types.TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateToken(user, types.TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) generateToken(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    user.ID,
		TokenType: tokenType,
		IsAdmin:   user.IsAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) parse(tokenString, wantType string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid || claims.JTI() == "" || claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: %s token required", ErrUnauthorized, wantType)
	}

	var revoked int64
	if err := s.db.Model(&models.RevokedToken{}).Where("jti = ?", claims.JTI()).Count(&revoked).Error; err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked > 0 {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// ValidateToken accepts only unrevoked access tokens.
func (s *AuthService) ValidateToken(tokenString string) (*types.TokenClaims, error) {
	return s.parse(tokenString, types.TokenTypeAccess)
}

// ValidateRefreshToken accepts only unrevoked refresh tokens.
func (s *AuthService) ValidateRefreshToken(tokenString string) (*types.TokenClaims, error) {
	return s.parse(tokenString, types.TokenTypeRefresh)
}

// Refresh issues a new access token for the refresh token's user.
func (s *AuthService) Refresh(ctx context.Context, claims *types.TokenClaims) (string, error) {
	user, err := s.GetUser(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	return s.generateToken(user, types.TokenTypeAccess, s.accessTTL)
}

// Logout revokes exactly the presented token and purges revocations whose
// tokens have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *types.TokenClaims) error {
	now := s.now().UTC()
	expires := now.Add(s.accessTTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time.UTC()
	}

	record := &models.RevokedToken{
		JTI:       claims.JTI(),
		UserID:    claims.UserID,
		TokenType: claims.TokenType,
		RevokedAt: now,
		ExpiresAt: expires,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	purged := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if purged.Error != nil {
		s.log.Warn("Failed to purge expired revocations", "error", purged.Error)
	} else if purged.RowsAffected > 0 {
		s.log.Debug("Purged expired revocations", "count", purged.RowsAffected)
	}
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}
