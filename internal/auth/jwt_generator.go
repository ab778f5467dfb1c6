package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/golang-jwt/jwt/v5"
)

// UserTokenTTL is how long a login token stays valid
const UserTokenTTL = 24 * time.Hour

// identityClaims are the claims every bearer token carries, whether it was
// issued at login or to a device. The API middleware reads uid and role.
func identityClaims(uid string, role models.Role, issued time.Time, ttl time.Duration) jwt.MapClaims {
	if role == "" {
		role = models.RoleUser
	}
	return jwt.MapClaims{
		"uid":  uid,
		"role": string(role),
		"iat":  issued.Unix(),
		"exp":  issued.Add(ttl).Unix(),
	}
}

// SignUserToken issues the bearer token returned by the login endpoint
func SignUserToken(secret []byte, user *models.User, now time.Time) (string, error) {
	if user == nil || user.ID == 0 {
		return "", errors.New("cannot sign token: user has no id")
	}
	claims := identityClaims(strconv.FormatUint(uint64(user.ID), 10), user.Role, now, UserTokenTTL)
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// DeviceTokenGenerator signs client credentials tokens. A device has no user
// of its own, so it acts as the user who owns the client, with that user's
// current role.
type DeviceTokenGenerator struct {
	key    []byte
	method jwt.SigningMethod
	users  services.UserService
}

func NewDeviceTokenGenerator(key []byte, method jwt.SigningMethod, users services.UserService) *DeviceTokenGenerator {
	return &DeviceTokenGenerator{key: key, method: method, users: users}
}

// Token is called by the oauth2 manager for every issued access token.
// Refresh tokens are never generated for client credentials.
func (g *DeviceTokenGenerator) Token(ctx context.Context, data *oauth2.GenerateBasic, isGenRefresh bool) (string, string, error) {
	clientID := data.Client.GetID()
	uid := data.UserID
	if uid == "" {
		uid = data.Client.GetUserID()
	}
	if uid == "" {
		return "", "", fmt.Errorf("cannot generate token: client %s has no owner", clientID)
	}

	id, err := strconv.ParseUint(uid, 10, 32)
	if err != nil {
		return "", "", fmt.Errorf("invalid owner id %q: %w", uid, err)
	}
	owner, err := g.users.GetUserByID(uint(id))
	if err != nil {
		return "", "", fmt.Errorf("look up owner of client %s: %w", clientID, err)
	}

	claims := identityClaims(uid, owner.Role, data.TokenInfo.GetAccessCreateAt(), data.TokenInfo.GetAccessExpiresIn())
	claims["aud"] = clientID
	if scope := data.TokenInfo.GetScope(); scope != "" {
		claims["scope"] = scope
	}

	access, err := jwt.NewWithClaims(g.method, claims).SignedString(g.key)
	if err != nil {
		return "", "", err
	}
	return access, "", nil
}
