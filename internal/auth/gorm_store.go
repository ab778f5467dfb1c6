package auth

import (
	"context"
	"errors"
	"time"

	internalmodels "github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/go-oauth2/oauth2/v4"
	oautherrors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/go-oauth2/oauth2/v4/models"
	"gorm.io/gorm"
)

// GormClientStore looks up device clients for the oauth2 manager
type GormClientStore struct {
	db *gorm.DB
}

func NewGormClientStore(db *gorm.DB) *GormClientStore {
	return &GormClientStore{db: db}
}

// GetByID returns the client itself, which verifies bcrypt secrets
func (s *GormClientStore) GetByID(ctx context.Context, id string) (oauth2.ClientInfo, error) {
	var client internalmodels.OAuthClient
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oautherrors.ErrInvalidClient
		}
		return nil, err
	}
	return &client, nil
}

// GormTokenStore records issued device tokens so they can be listed, revoked
// with their client and purged once expired. Only the client credentials grant
// is served, so the authorization code and refresh lookups refuse.
type GormTokenStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db, now: time.Now}
}

func (s *GormTokenStore) Create(ctx context.Context, info oauth2.TokenInfo) error {
	issued := info.GetAccessCreateAt()
	token := &internalmodels.OAuthToken{
		ClientID:    info.GetClientID(),
		OwnerID:     info.GetUserID(),
		AccessToken: info.GetAccess(),
		Scopes:      info.GetScope(),
		IssuedAt:    issued,
		ExpiresAt:   issued.Add(info.GetAccessExpiresIn()),
	}
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *GormTokenStore) RemoveByAccess(ctx context.Context, access string) error {
	return s.db.WithContext(ctx).Where("access_token = ?", access).Delete(&internalmodels.OAuthToken{}).Error
}

// RemoveByRefresh has nothing to remove; device tokens carry no refresh token
func (s *GormTokenStore) RemoveByRefresh(ctx context.Context, refresh string) error {
	return nil
}

func (s *GormTokenStore) GetByAccess(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	var token internalmodels.OAuthToken
	if err := s.db.WithContext(ctx).Where("access_token = ?", access).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oautherrors.ErrInvalidAccessToken
		}
		return nil, err
	}
	if token.Expired(s.now()) {
		return nil, oautherrors.ErrExpiredAccessToken
	}
	return &models.Token{
		ClientID:        token.ClientID,
		UserID:          token.OwnerID,
		Access:          token.AccessToken,
		AccessCreateAt:  token.IssuedAt,
		AccessExpiresIn: token.ExpiresAt.Sub(token.IssuedAt),
		Scope:           token.Scopes,
	}, nil
}

func (s *GormTokenStore) GetByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	return nil, oautherrors.ErrInvalidRefreshToken
}

func (s *GormTokenStore) GetByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	return nil, oautherrors.ErrUnsupportedGrantType
}

func (s *GormTokenStore) RemoveByCode(ctx context.Context, code string) error {
	return oautherrors.ErrUnsupportedGrantType
}

// DeleteExpired drops token records that can no longer be used
func (s *GormTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&internalmodels.OAuthToken{})
	return result.RowsAffected, result.Error
}
