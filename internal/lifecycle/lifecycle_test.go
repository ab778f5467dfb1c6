package lifecycle

import (
	"testing"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingOrder(t *testing.T, orderType models.OrderType, created time.Time) models.Order {
	t.Helper()
	req := CheckoutRequest{Type: orderType, PaymentMethod: models.PaymentCash}
	if orderType == models.OrderTypeDelivery {
		req.Address = "Khreshchatyk"
		req.HouseNumber = "22"
		req.Phone = "+380111"
	}
	order, err := Checkout([]models.CartItem{{Pizza: models.Pizza{ID: "p1", Price: 100}, Quantity: 1}}, req, created)
	require.NoError(t, err)
	return order
}

func TestCanTransition(t *testing.T) {
	testCases := []struct {
		name      string
		from      models.OrderStatus
		to        models.OrderStatus
		orderType models.OrderType
		allowed   bool
	}{
		{"pending to preparing", models.StatusPending, models.StatusPreparing, models.OrderTypePickup, true},
		{"pending to cancelled", models.StatusPending, models.StatusCancelled, models.OrderTypePickup, true},
		{"pending straight to ready", models.StatusPending, models.StatusReady, models.OrderTypePickup, false},
		{"preparing to ready", models.StatusPreparing, models.StatusReady, models.OrderTypePickup, true},
		{"ready to completed", models.StatusReady, models.StatusCompleted, models.OrderTypePickup, true},
		{"ready to delivered for delivery", models.StatusReady, models.StatusDelivered, models.OrderTypeDelivery, true},
		{"ready to delivered for pickup", models.StatusReady, models.StatusDelivered, models.OrderTypePickup, false},
		{"delivered to completed", models.StatusDelivered, models.StatusCompleted, models.OrderTypeDelivery, true},
		{"cancelled is terminal", models.StatusCancelled, models.StatusPreparing, models.OrderTypePickup, false},
		{"completed is terminal", models.StatusCompleted, models.StatusCancelled, models.OrderTypePickup, false},
		{"same status is a no-op", models.StatusReady, models.StatusReady, models.OrderTypePickup, true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to, tt.orderType)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	order := pendingOrder(t, models.OrderTypePickup, time.Now())

	out, err := Transition(order, models.OrderStatus("baking"), time.Now())

	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, models.KindValidation, Kind(err))
	assert.Equal(t, models.StatusPending, out.Status)
}

func TestTransitionStampsPreparingOnce(t *testing.T) {
	created := time.Date(2024, 10, 19, 12, 0, 0, 0, time.UTC)
	order := pendingOrder(t, models.OrderTypePickup, created)
	startedAt := created.Add(2 * time.Minute)

	preparing, err := Transition(order, models.StatusPreparing, startedAt)
	require.NoError(t, err)
	require.NotNil(t, preparing.PreparingStartTime)
	assert.Equal(t, startedAt.UnixMilli(), *preparing.PreparingStartTime)
	assert.GreaterOrEqual(t, *preparing.PreparingStartTime, order.CreatedAt)
	assert.Nil(t, order.PreparingStartTime, "input order must not be mutated")

	again, err := Transition(preparing, models.StatusPreparing, startedAt.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, *preparing.PreparingStartTime, *again.PreparingStartTime)

	ready, err := Transition(again, models.StatusReady, startedAt.Add(9*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, *preparing.PreparingStartTime, *ready.PreparingStartTime)
}

func TestTransitionNeverStampsBeforeCreation(t *testing.T) {
	created := time.Date(2024, 10, 19, 12, 0, 0, 0, time.UTC)
	order := pendingOrder(t, models.OrderTypePickup, created)

	preparing, err := Transition(order, models.StatusPreparing, created.Add(-3*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, preparing.PreparingStartTime)
	assert.Equal(t, order.CreatedAt, *preparing.PreparingStartTime)
}

func TestTransitionChangesOnlyStatus(t *testing.T) {
	order := pendingOrder(t, models.OrderTypeDelivery, time.Now())

	cancelled, err := Transition(order, models.StatusCancelled, time.Now())
	require.NoError(t, err)

	expected := order.Clone()
	expected.Status = models.StatusCancelled
	assert.Equal(t, expected, cancelled)
	assert.Nil(t, cancelled.PreparingStartTime)
}

func TestCancelledThenPreparingIsRejected(t *testing.T) {
	order := pendingOrder(t, models.OrderTypePickup, time.Now())

	cancelled, err := Transition(order, models.StatusCancelled, time.Now())
	require.NoError(t, err)

	out, err := Transition(cancelled, models.StatusPreparing, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.StatusCancelled, out.Status)
	assert.Nil(t, out.PreparingStartTime)
}

func TestApplyStatus(t *testing.T) {
	now := time.Now()
	first := pendingOrder(t, models.OrderTypePickup, now)
	second := pendingOrder(t, models.OrderTypePickup, now.Add(time.Minute))
	history := Prepend(Prepend(nil, first), second)
	require.Equal(t, second.ID, history[0].ID)

	t.Run("transitions the matching order", func(t *testing.T) {
		updated, order, err := ApplyStatus(history, first.ID, models.StatusPreparing, now)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPreparing, order.Status)
		assert.Equal(t, models.StatusPreparing, updated[1].Status)
		assert.Equal(t, models.StatusPending, history[1].Status)
	})

	t.Run("unknown id reports not found", func(t *testing.T) {
		updated, _, err := ApplyStatus(history, "missing", models.StatusPreparing, now)
		assert.ErrorIs(t, err, ErrOrderNotFound)
		assert.Equal(t, models.KindNotFound, Kind(err))
		assert.Equal(t, history, updated)
	})
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" Ready ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, status)

	_, err = ParseStatus("new")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
