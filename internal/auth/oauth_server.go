package auth

import (
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/go-oauth2/oauth2/v4/manage"
	"github.com/go-oauth2/oauth2/v4/server"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// DeviceTokenTTL is how long a client credentials token stays valid
const DeviceTokenTTL = 2 * time.Hour

// OAuthService issues access tokens to storefront devices and keeps the
// record of what it issued
type OAuthService struct {
	server *server.Server
	tokens *GormTokenStore
}

func NewOAuthService(db *gorm.DB, jwtSecret string) *OAuthService {
	tokens := NewGormTokenStore(db)

	manager := manage.NewDefaultManager()
	manager.SetClientTokenCfg(&manage.Config{AccessTokenExp: DeviceTokenTTL})
	manager.MapAccessGenerate(NewDeviceTokenGenerator([]byte(jwtSecret), jwt.SigningMethodHS256, services.NewUserService(db)))
	manager.MustTokenStorage(tokens, nil)
	manager.MapClientStorage(NewGormClientStore(db))

	srv := server.NewDefaultServer(manager)
	srv.SetClientInfoHandler(server.ClientFormHandler)
	srv.SetAllowedGrantType(oauth2.ClientCredentials)

	return &OAuthService{server: srv, tokens: tokens}
}

func (o *OAuthService) GetServer() *server.Server {
	return o.server
}

// Tokens exposes the issued token record, for housekeeping
func (o *OAuthService) Tokens() *GormTokenStore {
	return o.tokens
}
