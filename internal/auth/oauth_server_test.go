package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/database"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-jwt-secret-key-32-characters"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDatabase(database.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// seedClient stores an owner with the given role and a device client it owns
func seedClient(t *testing.T, db *gorm.DB, role models.Role, clientID, secret string) *models.User {
	t.Helper()
	owner := &models.User{Email: clientID + "@pizza.test", PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(owner).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.OAuthClient{
		ID:     clientID,
		Secret: string(hash),
		Name:   "Kitchen tablet",
		UserID: owner.ID,
		Scopes: "orders",
	}).Error)
	return owner
}

func tokenRouter(svc *OAuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/oauth/token", svc.HandleToken)
	return router
}

func postToken(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	return claims
}

func TestOAuthServerInitialization(t *testing.T) {
	svc := NewOAuthService(setupTestDB(t), testSecret)
	require.NotNil(t, svc)
	assert.NotNil(t, svc.GetServer())
}

func TestClientCredentialsFlow(t *testing.T) {
	db := setupTestDB(t)
	owner := seedClient(t, db, models.RoleAdmin, "kitchen", "s3cret")
	router := tokenRouter(NewOAuthService(db, testSecret))

	w := postToken(router, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"kitchen"},
		"client_secret": {"s3cret"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Bearer", response["token_type"])
	assert.Equal(t, DeviceTokenTTL.Seconds(), response["expires_in"])

	claims := parseClaims(t, response["access_token"].(string))
	assert.Equal(t, "admin", claims["role"])
	assert.Equal(t, "kitchen", claims["aud"])
	assert.NotEmpty(t, claims["uid"])
	uid, err := strconv.ParseUint(claims["uid"].(string), 10, 32)
	require.NoError(t, err)
	assert.EqualValues(t, owner.ID, uid)

	var stored models.OAuthToken
	require.NoError(t, db.Where("client_id = ?", "kitchen").First(&stored).Error)
	assert.Equal(t, response["access_token"], stored.AccessToken)
}

func TestClientCredentialsBasicAuth(t *testing.T) {
	db := setupTestDB(t)
	seedClient(t, db, models.RoleUser, "kiosk", "s3cret")
	router := tokenRouter(NewOAuthService(db, testSecret))

	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader("grant_type=client_credentials"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("kiosk", "s3cret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "user", parseClaims(t, response["access_token"].(string))["role"])
}

func TestClientCredentialsRejected(t *testing.T) {
	db := setupTestDB(t)
	seedClient(t, db, models.RoleAdmin, "kitchen", "s3cret")
	router := tokenRouter(NewOAuthService(db, testSecret))

	testCases := []struct {
		name   string
		form   url.Values
		status int
		code   string
	}{
		{"wrong secret", url.Values{"grant_type": {"client_credentials"}, "client_id": {"kitchen"}, "client_secret": {"nope"}},
			http.StatusUnauthorized, models.ErrInvalidClient},
		{"unknown client", url.Values{"grant_type": {"client_credentials"}, "client_id": {"ghost"}, "client_secret": {"s3cret"}},
			http.StatusUnauthorized, models.ErrInvalidClient},
		{"authorization code grant", url.Values{"grant_type": {"authorization_code"}, "code": {"abc"}},
			http.StatusBadRequest, models.ErrUnsupportedGrantType},
		{"missing credentials", url.Values{"grant_type": {"client_credentials"}},
			http.StatusBadRequest, models.ErrInvalidRequest},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			w := postToken(router, tt.form)
			assert.Equal(t, tt.status, w.Code)

			var body models.OAuth2Error
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error)
		})
	}
}

func TestClientWithoutOwnerGetsNoToken(t *testing.T) {
	db := setupTestDB(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.OAuthClient{ID: "orphan", Secret: string(hash)}).Error)

	w := postToken(tokenRouter(NewOAuthService(db, testSecret)), url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"orphan"},
		"client_secret": {"s3cret"},
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSignUserToken(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	token, err := SignUserToken([]byte(testSecret), &models.User{ID: 42, Role: models.RoleAdmin}, now)
	require.NoError(t, err)

	claims := parseClaims(t, token)
	assert.Equal(t, "42", claims["uid"])
	assert.Equal(t, "admin", claims["role"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.True(t, exp.Equal(now.Add(UserTokenTTL)))

	_, err = SignUserToken([]byte(testSecret), &models.User{}, now)
	assert.Error(t, err)
}

func TestTokenStore(t *testing.T) {
	db := setupTestDB(t)
	seedClient(t, db, models.RoleAdmin, "kitchen", "s3cret")
	svc := NewOAuthService(db, testSecret)
	ctx := context.Background()

	clientStore := NewGormClientStore(db)
	info, err := clientStore.GetByID(ctx, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, "kitchen", info.GetID())
	_, err = clientStore.GetByID(ctx, "ghost")
	assert.Error(t, err)

	w := postToken(tokenRouter(svc), url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"kitchen"},
		"client_secret": {"s3cret"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	access := response["access_token"].(string)

	store := svc.Tokens()
	ti, err := store.GetByAccess(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", ti.GetClientID())

	_, err = store.GetByCode(ctx, "abc")
	assert.Error(t, err)
	_, err = store.GetByRefresh(ctx, "abc")
	assert.Error(t, err)

	store.now = func() time.Time { return time.Now().Add(DeviceTokenTTL + time.Second) }
	_, err = store.GetByAccess(ctx, access)
	assert.Error(t, err, "expired token must not resolve")
	store.now = time.Now

	removed, err := store.DeleteExpired(ctx, time.Now().Add(DeviceTokenTTL+time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	_, err = store.GetByAccess(ctx, access)
	assert.Error(t, err)
}
