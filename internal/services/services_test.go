package services

import (
	"testing"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/database"
	"github.com/franciscosanchezn/pizzeria/internal/lifecycle"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDatabase(database.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testOrder(id string, createdAt int64) models.Order {
	return models.Order{
		ID:            id,
		Items:         []models.CartItem{{Pizza: models.DefaultMenu()[0], Quantity: 1}},
		Total:         180,
		Date:          "19.10.2024, 18:00:00",
		CreatedAt:     createdAt,
		Type:          models.OrderTypePickup,
		PickupTime:    "18:30",
		PaymentMethod: models.PaymentCash,
		Status:        models.StatusPending,
	}
}

func TestPizzaService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPizzaService(db)

	t.Run("empty menu", func(t *testing.T) {
		menu, err := svc.GetAllPizzas()
		require.NoError(t, err)
		assert.Empty(t, menu)
		assert.NotNil(t, menu)
	})

	t.Run("replace keeps order and assigns ids", func(t *testing.T) {
		stored, err := svc.ReplaceAll([]models.Pizza{
			{Name: "Diavola", Price: 240},
			{ID: "lemonade", Name: "Lemonade", Price: 60, Category: models.CategoryDrinks},
		})
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.NotEmpty(t, stored[0].ID)
		assert.Equal(t, models.CategoryPizza, stored[0].Category)

		menu, err := svc.GetAllPizzas()
		require.NoError(t, err)
		require.Len(t, menu, 2)
		assert.Equal(t, "Diavola", menu[0].Name)
		assert.Equal(t, "lemonade", menu[1].ID)
	})

	t.Run("get by id", func(t *testing.T) {
		p, err := svc.GetPizzaByID("lemonade")
		require.NoError(t, err)
		assert.Equal(t, 60.0, p.Price)

		_, err = svc.GetPizzaByID("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty replace empties the menu", func(t *testing.T) {
		_, err := svc.ReplaceAll(nil)
		require.NoError(t, err)
		menu, err := svc.GetAllPizzas()
		require.NoError(t, err)
		assert.Empty(t, menu)
	})
}

func TestOrderService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewOrderService(db)
	base := time.Date(2024, 10, 19, 18, 0, 0, 0, time.UTC)

	first, err := svc.CreateOrder(testOrder("1", base.UnixMilli()))
	require.NoError(t, err)
	assert.NotZero(t, first.RowID)
	_, err = svc.CreateOrder(testOrder("2", base.Add(time.Minute).UnixMilli()))
	require.NoError(t, err)

	t.Run("list is most recent first", func(t *testing.T) {
		orders, err := svc.GetAllOrders()
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "2", orders[0].ID)
		assert.Len(t, orders[1].Items, 1)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		_, err := svc.CreateOrder(testOrder("1", base.UnixMilli()))
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("invalid order is rejected", func(t *testing.T) {
		bad := testOrder("3", base.UnixMilli())
		bad.Items = nil
		_, err := svc.CreateOrder(bad)
		assert.ErrorIs(t, err, lifecycle.ErrValidation)
	})

	t.Run("preparing uses the supplied stamp", func(t *testing.T) {
		stamp := base.Add(5 * time.Minute).UnixMilli()
		updated, err := svc.UpdateStatus("1", models.StatusPreparing, &stamp)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPreparing, updated.Status)
		require.NotNil(t, updated.PreparingStartTime)
		assert.Equal(t, stamp, *updated.PreparingStartTime)

		stored, err := svc.GetOrderByID("1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPreparing, stored.Status)
		require.NotNil(t, stored.PreparingStartTime)
		assert.Equal(t, stamp, *stored.PreparingStartTime)
	})

	t.Run("stamp outside creation and now is rejected", func(t *testing.T) {
		svc := &orderService{db: db, now: func() time.Time { return base.Add(10 * time.Minute) }}
		zero := int64(0)
		early := base.Add(time.Minute - time.Millisecond).UnixMilli()
		future := base.Add(11 * time.Minute).UnixMilli()
		for _, stamp := range []*int64{&zero, &early, &future} {
			_, err := svc.UpdateStatus("2", models.StatusPreparing, stamp)
			assert.ErrorIs(t, err, lifecycle.ErrValidation, "stamp %d", *stamp)
		}

		stored, err := svc.GetOrderByID("2")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, stored.Status)
		assert.Nil(t, stored.PreparingStartTime)
	})

	t.Run("illegal transition is rejected", func(t *testing.T) {
		_, err := svc.UpdateStatus("2", models.StatusCompleted, nil)
		assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

		stored, err := svc.GetOrderByID("2")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, stored.Status)
	})

	t.Run("unknown status and order", func(t *testing.T) {
		_, err := svc.UpdateStatus("2", models.OrderStatus("baking"), nil)
		assert.ErrorIs(t, err, lifecycle.ErrInvalidStatus)

		_, err = svc.UpdateStatus("404", models.StatusReady, nil)
		assert.ErrorIs(t, err, lifecycle.ErrOrderNotFound)
	})
}

func TestSettingsService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettingsService(db)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings().Phone, settings.Phone)

	settings.Phone = "+380111"
	settings.Integrations.TelegramBotToken = "bot-token"
	settings.ID = "ignored"
	_, err = svc.Upsert(settings)
	require.NoError(t, err)

	settings.Special.Title = "Two for one"
	saved, err := svc.Upsert(settings)
	require.NoError(t, err)
	assert.Equal(t, models.SettingsID, saved.ID)

	stored, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "+380111", stored.Phone)
	assert.Equal(t, "Two for one", stored.Special.Title)
	assert.Equal(t, "bot-token", stored.Integrations.TelegramBotToken)

	var count int64
	require.NoError(t, db.Model(&models.Settings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	user := &models.User{Email: "  Chef@Pizza.Test ", Password: "letmein", Name: "Chef"}
	require.NoError(t, user.HashPassword())
	require.NoError(t, svc.CreateUser(user))
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotNil(t, user.Favorites)

	found, err := svc.GetUserByEmail("CHEF@pizza.test")
	require.NoError(t, err)
	assert.Equal(t, "chef@pizza.test", found.Email)

	byID, err := svc.GetUserByID(found.ID)
	require.NoError(t, err)
	assert.Equal(t, found.Email, byID.Email)

	assert.ErrorIs(t, svc.CreateUser(&models.User{Email: "chef@pizza.test", PasswordHash: "x"}), ErrUserExists)
	assert.ErrorIs(t, svc.CreateUser(&models.User{Email: "cook@pizza.test", PasswordHash: "x", Role: "chef"}), ErrInvalidRole)

	_, err = svc.GetUserByEmail("nobody@pizza.test")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetUserByID(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	user := &models.User{Email: "chef@pizza.test", Password: "letmein"}
	require.NoError(t, user.HashPassword())
	require.NoError(t, svc.CreateUser(user))

	found, err := svc.Authenticate("Chef@Pizza.test", "letmein")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = svc.Authenticate("chef@pizza.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate("ghost@pizza.test", "letmein")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestClientService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClientService(db)

	client, secret, err := svc.IssueClient(7, "Kitchen tablet", "", "orders")
	require.NoError(t, err)
	assert.NotEmpty(t, client.ID)
	assert.True(t, client.VerifyPassword(secret))
	assert.NotEqual(t, secret, client.Secret)

	require.NoError(t, svc.CreateClient(&models.OAuthClient{ID: "kiosk", Secret: "hash", Name: "Kiosk", UserID: 7}))
	assert.Error(t, svc.CreateClient(&models.OAuthClient{ID: "orphan", Secret: "hash"}))

	clients, err := svc.ClientsOwnedBy(7)
	require.NoError(t, err)
	assert.Len(t, clients, 2)
	none, err := svc.ClientsOwnedBy(8)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, db.Create(&models.OAuthToken{ClientID: "kiosk", AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	assert.ErrorIs(t, svc.RevokeClient("kiosk", 8), ErrNotFound)
	require.NoError(t, svc.RevokeClient("kiosk", 7))

	_, err = svc.GetClientByID("kiosk")
	assert.ErrorIs(t, err, ErrNotFound)
	var tokens int64
	require.NoError(t, db.Model(&models.OAuthToken{}).Where("client_id = ?", "kiosk").Count(&tokens).Error)
	assert.Zero(t, tokens)
}
