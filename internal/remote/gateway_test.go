package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	settings models.Settings
	menu     []models.Pizza
	orders   []models.Order
	patched  []models.StatusUpdate
	authHdr  string
}

func newFakeServer(t *testing.T, store *fakeStore) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.POST("/oauth/token", func(c *gin.Context) {
		if c.PostForm("client_id") != "kiosk" || c.PostForm("client_secret") != "s3cret" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": "device-token", "token_type": "Bearer", "expires_in": 3600})
	})
	router.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"access_token": "admin-token",
			"user":         gin.H{"id": 1, "email": "admin@pizza.test", "role": "admin"},
		})
	})
	router.GET("/api/v1/public/settings", func(c *gin.Context) {
		c.JSON(http.StatusOK, store.settings.Redacted())
	})
	router.GET("/api/v1/protected/admin/settings", func(c *gin.Context) {
		store.authHdr = c.GetHeader("Authorization")
		c.JSON(http.StatusOK, store.settings)
	})
	router.POST("/api/v1/protected/admin/pizzas", func(c *gin.Context) {
		store.authHdr = c.GetHeader("Authorization")
		var menu []models.Pizza
		if err := c.ShouldBindJSON(&menu); err != nil {
			c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrPizzaInvalidData, err.Error()))
			return
		}
		store.menu = menu
		c.JSON(http.StatusOK, menu)
	})
	router.GET("/api/v1/public/pizzas", func(c *gin.Context) {
		c.JSON(http.StatusOK, store.menu)
	})
	router.POST("/api/v1/public/orders", func(c *gin.Context) {
		var order models.Order
		require.NoError(t, c.ShouldBindJSON(&order))
		order.RowID = uint(len(store.orders) + 1)
		store.orders = append([]models.Order{order}, store.orders...)
		c.JSON(http.StatusCreated, order)
	})
	router.GET("/api/v1/public/orders/:id", func(c *gin.Context) {
		for _, o := range store.orders {
			if o.ID == c.Param("id") {
				c.JSON(http.StatusOK, o)
				return
			}
		}
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrOrderNotFound, "Order not found"))
	})
	router.PATCH("/api/v1/protected/admin/orders", func(c *gin.Context) {
		var update models.StatusUpdate
		require.NoError(t, c.ShouldBindJSON(&update))
		store.patched = append(store.patched, update)
		for i, o := range store.orders {
			if o.ID == update.ID {
				store.orders[i].Status = update.Status
				if store.orders[i].PreparingStartTime == nil {
					store.orders[i].PreparingStartTime = update.PreparingStartTime
				}
				c.JSON(http.StatusOK, store.orders[i])
				return
			}
		}
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrOrderNotFound, "Order not found"))
	})
	router.GET("/api/v1/protected/admin/orders", func(c *gin.Context) {
		c.String(http.StatusOK, "{broken")
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSettingsPublicAndAdmin(t *testing.T) {
	store := &fakeStore{settings: models.DefaultSettings()}
	store.settings.Integrations.TelegramBotToken = "bot-token"
	srv := newFakeServer(t, store)

	public := New(srv.URL)
	settings, err := public.FetchSettings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, settings.Integrations.TelegramBotToken)

	device := New(srv.URL, WithTokenSource(NewClientCredentials(srv.URL, "kiosk", "s3cret", nil)))
	settings, err = device.FetchSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bot-token", settings.Integrations.TelegramBotToken)
	assert.Equal(t, "Bearer device-token", store.authHdr)
}

func TestReplaceMenuWithEmptyList(t *testing.T) {
	store := &fakeStore{menu: models.DefaultMenu()}
	srv := newFakeServer(t, store)
	g := New(srv.URL, WithTokenSource(StaticToken("admin-token")))

	require.NoError(t, g.ReplaceMenu(context.Background(), nil))

	menu, err := g.FetchMenu(context.Background())
	require.NoError(t, err)
	assert.Empty(t, menu)
	assert.NotNil(t, menu)
}

func TestAdminCallsNeedCredentials(t *testing.T) {
	srv := newFakeServer(t, &fakeStore{})
	g := New(srv.URL)

	err := g.SaveSettings(context.Background(), models.DefaultSettings())
	require.Error(t, err)
	assert.Equal(t, models.KindUnauthorized, KindOf(err))
}

func TestOrderRoundTrip(t *testing.T) {
	store := &fakeStore{}
	srv := newFakeServer(t, store)
	g := New(srv.URL, WithTokenSource(StaticToken("admin-token")))
	ctx := context.Background()

	stored, err := g.InsertOrder(ctx, models.Order{ID: "PZ-1", Status: models.StatusPending, Total: 500})
	require.NoError(t, err)
	assert.Equal(t, uint(1), stored.RowID)

	found, err := g.FetchOrder(ctx, "PZ-1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, found.Total)

	_, err = g.FetchOrder(ctx, "PZ-404")
	assert.Equal(t, models.KindNotFound, KindOf(err))

	stamp := int64(1700000000000)
	updated, err := g.PatchOrderStatus(ctx, "PZ-1", models.StatusPreparing, &stamp)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, updated.Status)
	assert.Equal(t, uint(1), updated.RowID)

	// the store keeps the first stamp and reports it back
	later := stamp + 60_000
	updated, err = g.PatchOrderStatus(ctx, "PZ-1", models.StatusPreparing, &later)
	require.NoError(t, err)
	assert.Equal(t, stamp, *updated.PreparingStartTime)
	require.Len(t, store.patched, 2)
	assert.Equal(t, models.StatusPreparing, store.patched[0].Status)
	assert.Equal(t, stamp, *store.patched[0].PreparingStartTime)
}

func TestMalformedPayloadIsServerError(t *testing.T) {
	srv := newFakeServer(t, &fakeStore{})
	g := New(srv.URL, WithTokenSource(StaticToken("admin-token")))

	_, err := g.FetchOrders(context.Background())
	assert.Equal(t, models.KindServer, KindOf(err))
}

func TestNetworkError(t *testing.T) {
	srv := newFakeServer(t, &fakeStore{})
	url := srv.URL
	srv.Close()

	_, err := New(url, WithTimeout(time.Second)).FetchMenu(context.Background())
	assert.Equal(t, models.KindNetwork, KindOf(err))
}

func TestLoginSwitchesTokenAndLogoutRestores(t *testing.T) {
	store := &fakeStore{settings: models.DefaultSettings()}
	srv := newFakeServer(t, store)
	g := New(srv.URL, WithTokenSource(StaticToken("device-token")))
	ctx := context.Background()

	user, err := g.Login(ctx, "admin@pizza.test", "pw")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	_, err = g.FetchSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer admin-token", store.authHdr)

	g.Logout()
	_, err = g.FetchSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer device-token", store.authHdr)
}

func TestClientCredentialsCachesToken(t *testing.T) {
	var calls int32
	expiresIn := int32(3600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		assert.Equal(t, "id", r.FormValue("client_id"))
		assert.Equal(t, "secret", r.FormValue("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"t","token_type":"Bearer","expires_in":%d}`, atomic.LoadInt32(&expiresIn))
	}))
	defer srv.Close()

	cc := NewClientCredentials(srv.URL, "id", "secret", nil)
	for i := 0; i < 3; i++ {
		token, err := cc.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "t", token)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// tokens about to expire are fetched again
	short := NewClientCredentials(srv.URL, "id", "secret", nil)
	atomic.StoreInt32(&expiresIn, 1)
	for i := 0; i < 2; i++ {
		_, err := short.Token(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientCredentialsRejected(t *testing.T) {
	srv := newFakeServer(t, &fakeStore{})
	_, err := NewClientCredentials(srv.URL, "kiosk", "wrong", nil).Token(context.Background())
	assert.Equal(t, models.KindUnauthorized, KindOf(err))

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "token", gwErr.Op)
	assert.Equal(t, http.StatusUnauthorized, gwErr.Status)
}

func TestClientCredentialsErrorKinds(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		kind   models.ErrorKind
	}{
		{"oauth code wins over status", http.StatusBadRequest, `{"error":"invalid_client"}`, models.KindUnauthorized},
		{"unsupported grant", http.StatusBadRequest, `{"error":"unsupported_grant_type"}`, models.KindValidation},
		{"status without code", http.StatusServiceUnavailable, `down`, models.KindServer},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClientCredentials(srv.URL, "id", "secret", nil).Token(context.Background())
			var gwErr *Error
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, tt.kind, gwErr.Kind)
			assert.Equal(t, tt.status, gwErr.Status)
		})
	}

	t.Run("malformed token response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{broken`))
		}))
		defer srv.Close()
		_, err := NewClientCredentials(srv.URL, "id", "secret", nil).Token(context.Background())
		assert.Equal(t, models.KindServer, KindOf(err))
	})

	t.Run("unreachable store", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		_, err := NewClientCredentials(srv.URL, "id", "secret", nil).Token(context.Background())
		assert.Equal(t, models.KindNetwork, KindOf(err))
	})
}

func TestErrorFromResponse(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		kind   models.ErrorKind
	}{
		{"code wins over status", http.StatusConflict, `{"code":"CONFLICT","message":"order exists"}`, models.KindValidation},
		{"transition", http.StatusConflict, `{"code":"ORDER_INVALID_TRANSITION","message":"no"}`, models.KindInvalidTransition},
		{"unknown code falls back to status", http.StatusNotFound, `{"code":"TEAPOT","message":"?"}`, models.KindNotFound},
		{"plain text body", http.StatusBadGateway, "upstream down", models.KindServer},
		{"forbidden", http.StatusForbidden, "", models.KindUnauthorized},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			err := errorFromResponse("op", tt.status, []byte(tt.body))
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, tt.status, err.Status)
		})
	}
}
