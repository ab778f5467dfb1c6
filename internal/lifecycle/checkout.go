package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the human-readable format of Order.Date
const DateLayout = "02.01.2006, 15:04:05"

var validate = validator.New()

// CheckoutRequest carries the customer's delivery or pickup details
type CheckoutRequest struct {
	Type          models.OrderType     `json:"type" validate:"required,oneof=delivery pickup"`
	Address       string               `json:"address" validate:"required_if=Type delivery,max=200"`
	HouseNumber   string               `json:"houseNumber" validate:"required_if=Type delivery,max=20"`
	Phone         string               `json:"phone" validate:"required_if=Type delivery,max=20"`
	PickupTime    string               `json:"pickupTime" validate:"max=32"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash card_on_receipt"`
	Notes         string               `json:"notes" validate:"max=500"`
}

// Validate checks the request fields
func (r CheckoutRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// NewOrderID returns a short human-readable order id such as PZ-241019-3F9A1C
func NewOrderID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("PZ-%s-%s", now.Format("060102"), suffix)
}

// Total sums price times quantity over the items
func Total(items []models.CartItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		sum = sum.Add(line)
	}
	total, _ := sum.Round(2).Float64()
	return total
}

func validateItems(items []models.CartItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w: quantity of %q must be at least 1", ErrValidation, it.ID)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: price of %q is negative", ErrValidation, it.ID)
		}
	}
	return nil
}

// Checkout builds a new pending order from the cart. Items are copied, so
// edits to the cart or the menu afterwards do not reach the order.
func Checkout(cart []models.CartItem, req CheckoutRequest, now time.Time) (models.Order, error) {
	if err := validateItems(cart); err != nil {
		return models.Order{}, err
	}
	if err := req.Validate(); err != nil {
		return models.Order{}, err
	}

	items := make([]models.CartItem, len(cart))
	copy(items, cart)

	order := models.Order{
		ID:            NewOrderID(now),
		Items:         items,
		Total:         Total(items),
		Date:          now.Format(DateLayout),
		CreatedAt:     now.UnixMilli(),
		Type:          req.Type,
		PaymentMethod: req.PaymentMethod,
		Notes:         strings.TrimSpace(req.Notes),
		Status:        models.StatusPending,
	}
	switch req.Type {
	case models.OrderTypeDelivery:
		order.Address = strings.TrimSpace(req.Address)
		order.HouseNumber = strings.TrimSpace(req.HouseNumber)
		order.Phone = strings.TrimSpace(req.Phone)
	case models.OrderTypePickup:
		order.PickupTime = strings.TrimSpace(req.PickupTime)
		order.Phone = strings.TrimSpace(req.Phone)
	}
	return order, nil
}

// ValidateNewOrder checks an order submitted for insertion: it must be
// pending, unstamped, carry its delivery details and a total that matches
// its items.
func ValidateNewOrder(order models.Order) error {
	if order.ID == "" {
		return fmt.Errorf("%w: missing id", ErrValidation)
	}
	if err := ValidateStatus(order.Status); err != nil {
		return err
	}
	if order.Status != models.StatusPending {
		return fmt.Errorf("%w: new orders must be %s, got %s", ErrValidation, models.StatusPending, order.Status)
	}
	if order.PreparingStartTime != nil {
		return fmt.Errorf("%w: new orders cannot carry a preparation start time", ErrValidation)
	}
	if err := validateItems(order.Items); err != nil {
		return err
	}
	req := CheckoutRequest{
		Type:          order.Type,
		Address:       order.Address,
		HouseNumber:   order.HouseNumber,
		Phone:         order.Phone,
		PickupTime:    order.PickupTime,
		PaymentMethod: order.PaymentMethod,
		Notes:         order.Notes,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	want := decimal.NewFromFloat(Total(order.Items))
	if !decimal.NewFromFloat(order.Total).Round(2).Equal(want) {
		return fmt.Errorf("%w: total %.2f does not match items (%s)", ErrValidation, order.Total, want.StringFixed(2))
	}
	return nil
}
