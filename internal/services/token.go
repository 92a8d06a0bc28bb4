// Package services holds collaborators the handlers orchestrate but that
// own no HTTP surface of their own.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/config"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/utils"
)

// TokenService issues paired access and refresh tokens and manages refresh
// token lifecycle. Access tokens are stateless JWTs; refresh tokens are
// opaque, stored and revocable.
type TokenService struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewTokenService constructs a TokenService.
func NewTokenService(db *gorm.DB, cfg *config.Config) *TokenService {
	return &TokenService{db: db, cfg: cfg}
}

// TokenPair is an access token plus its refresh token.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Issue creates a new token pair for the user.
func (s *TokenService) Issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	return s.issue(ctx, s.db, user)
}

func (s *TokenService) issue(ctx context.Context, db *gorm.DB, user *models.User) (*TokenPair, error) {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}

	access, err := utils.GenerateToken(s.cfg.JWTSecret, user.ID, roles, s.cfg.AccessTokenExpires)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	refresh := hex.EncodeToString(raw)

	row := models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: time.Now().Add(s.cfg.RefreshTokenExpires),
	}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.cfg.AccessTokenExpires),
	}, nil
}

// Refresh exchanges a valid refresh token for a new pair. The used token is
// revoked so each refresh token works exactly once.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var row models.RefreshToken
	err := s.db.WithContext(ctx).Where("token = ?", refreshToken).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return nil, err
	}

	if !row.Usable(time.Now()) {
		return nil, apperr.Unauthorized("refresh token expired or revoked")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", row.UserID).Error; err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("user is not active")
	}

	// Revoking the used token and creating its replacement commit together,
	// so a failed issue cannot strand the user without a usable token.
	var pair *TokenPair
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&row).Update("revoked_at", &now).Error; err != nil {
			return err
		}
		issued, err := s.issue(ctx, tx, &user)
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Revoke invalidates a single refresh token.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", refreshToken).
		Update("revoked_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("refresh token not found")
	}
	return nil
}

// RevokeAll invalidates every outstanding refresh token of a user.
func (s *TokenService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", &now).Error
}
