package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// Gin context keys filled in by OAuth2Auth
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
	ContextClientID = "clientID"
	ContextScopes   = "scopes"
)

// TelegramSecretHeader carries the secret token registered with the bot webhook
const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// OAuth2Auth validates HS256 bearer tokens issued by the login endpoint or the
// client credentials flow and puts the caller's id and role on the context.
func OAuth2Auth(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "authorization_required",
				"Missing Authorization header. A valid Bearer token is required.")
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_request",
				"Authorization header must use Bearer scheme. Format: 'Bearer <token>'")
			return
		}
		if strings.TrimSpace(tokenString) == "" {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_token", "Bearer token is empty")
			return
		}

		claims, err := parseAndValidateJWT(tokenString, jwtSecret)
		if err != nil {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_token", err.Error())
			return
		}

		if err := extractAndSetClaims(c, claims); err != nil {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_token", err.Error())
			return
		}

		c.Next()
	}
}

// respondWithOAuth2Error responds with RFC 6750 compliant error format
func respondWithOAuth2Error(c *gin.Context, status int, errorCode, description string) {
	c.AbortWithStatusJSON(status, models.NewOAuth2Error(errorCode, description))
}

func parseAndValidateJWT(tokenString string, jwtSecret []byte) (jwt.MapClaims, error) {
	// restricting methods blocks alg-swapping tokens
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v. Expected HMAC", token.Header["alg"])
		}
		return jwtSecret, nil
	}, jwt.WithIssuedAt(), jwt.WithExpirationRequired(), jwt.WithLeeway(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims format")
	}
	return claims, nil
}

func extractAndSetClaims(c *gin.Context, claims jwt.MapClaims) error {
	userID, err := extractUserID(claims)
	if err != nil {
		return err
	}
	c.Set(ContextUserID, userID)

	role, err := extractRole(claims)
	if err != nil {
		return err
	}
	c.Set(ContextUserRole, role)

	if aud, err := claims.GetAudience(); err == nil && len(aud) > 0 && aud[0] != "" {
		c.Set(ContextClientID, aud[0])
	}
	if scope, ok := claims["scope"].(string); ok && scope != "" {
		c.Set(ContextScopes, scope)
	}
	return nil
}

// extractUserID reads the "uid" claim. Both token issuers write it as a
// numeric string; plain numbers are accepted too.
func extractUserID(claims jwt.MapClaims) (uint, error) {
	switch uid := claims["uid"].(type) {
	case string:
		parsed, err := strconv.ParseUint(uid, 10, 32)
		if err != nil || parsed == 0 {
			return 0, fmt.Errorf("invalid uid claim: %q", uid)
		}
		return uint(parsed), nil
	case float64:
		if uid <= 0 {
			return 0, fmt.Errorf("invalid uid claim: must be positive, got: %v", uid)
		}
		return uint(uid), nil
	}
	return 0, errors.New("token missing required 'uid' claim")
}

// extractRole requires an explicit role; there is no default
func extractRole(claims jwt.MapClaims) (models.Role, error) {
	raw, ok := claims["role"].(string)
	if !ok || raw == "" {
		return "", errors.New("token missing required 'role' claim")
	}
	switch role := models.Role(raw); role {
	case models.RoleAdmin, models.RoleUser:
		return role, nil
	}
	return "", fmt.Errorf("invalid role '%s'. Allowed roles: admin, user", raw)
}

// TelegramSecret rejects webhook calls that do not carry the secret token the
// webhook was registered with. An empty secret disables the endpoint.
func TelegramSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				models.NewAPIError(models.ErrForbidden, "Telegram webhook is not configured"))
			return
		}
		got := c.GetHeader(TelegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			log.WithField("client_ip", c.ClientIP()).Warn("Rejected webhook call with a bad secret token")
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				models.NewAPIError(models.ErrUnauthorized, "Invalid webhook secret token"))
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request with the logrus logger
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.FullPath(),
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Debug("Request served")
		}
	}
}
