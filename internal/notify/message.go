package notify

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/franciscosanchezn/pizzeria/internal/lifecycle"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/shopspring/decimal"
)

// Telegram rejects callback data longer than this
const maxCallbackData = 64

// ErrBadCallback is returned for callback data this package did not produce
var ErrBadCallback = errors.New("unrecognised callback data")

var actionCodes = map[models.OrderStatus]string{
	models.StatusPreparing: "p",
	models.StatusReady:     "r",
	models.StatusDelivered: "d",
	models.StatusCompleted: "c",
	models.StatusCancelled: "x",
}

var codeActions = func() map[string]models.OrderStatus {
	m := make(map[string]models.OrderStatus, len(actionCodes))
	for status, code := range actionCodes {
		m[code] = status
	}
	return m
}()

var statusLabels = map[models.OrderStatus]string{
	models.StatusPending:   "New",
	models.StatusPreparing: "Preparing",
	models.StatusReady:     "Ready",
	models.StatusDelivered: "Delivered",
	models.StatusCompleted: "Completed",
	models.StatusCancelled: "Cancelled",
}

var buttonIcons = map[models.OrderStatus]string{
	models.StatusPreparing: "👨‍🍳",
	models.StatusReady:     "✅",
	models.StatusDelivered: "🚗",
	models.StatusCompleted: "🏁",
	models.StatusCancelled: "❌",
}

// StatusLabel returns the human label of a status
func StatusLabel(status models.OrderStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

// EncodeCallback packs a target status and an order id into button data
func EncodeCallback(to models.OrderStatus, orderID string) (string, error) {
	code, ok := actionCodes[to]
	if !ok {
		return "", fmt.Errorf("%w: no action code for status %q", ErrBadCallback, to)
	}
	data := code + ":" + orderID
	if len(data) > maxCallbackData {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrBadCallback, len(data), maxCallbackData)
	}
	return data, nil
}

// DecodeCallback is the inverse of EncodeCallback
func DecodeCallback(data string) (models.OrderStatus, string, error) {
	code, orderID, found := strings.Cut(data, ":")
	if !found || orderID == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadCallback, data)
	}
	status, ok := codeActions[code]
	if !ok {
		return "", "", fmt.Errorf("%w: unknown action %q", ErrBadCallback, code)
	}
	return status, orderID, nil
}

// Keyboard offers one button per transition the order can still take. A
// terminal order gets no keyboard.
func Keyboard(order models.Order) *InlineKeyboard {
	next := lifecycle.NextStatuses(order.Status, order.Type)
	if len(next) == 0 {
		return &InlineKeyboard{InlineKeyboard: [][]InlineButton{}}
	}
	rows := make([][]InlineButton, 0, len(next))
	for _, status := range next {
		data, err := EncodeCallback(status, order.ID)
		if err != nil {
			log.WithError(err).WithField("order_id", order.ID).Warn("Skipping status button")
			continue
		}
		rows = append(rows, []InlineButton{{
			Text:         strings.TrimSpace(buttonIcons[status] + " " + StatusLabel(status)),
			CallbackData: data,
		}})
	}
	return &InlineKeyboard{InlineKeyboard: rows}
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatOrder renders an order as a Telegram HTML message
func FormatOrder(order models.Order) string {
	var b strings.Builder
	esc := html.EscapeString

	fmt.Fprintf(&b, "🍕 <b>Order %s</b>\n", esc(order.ID))
	if order.Date != "" {
		fmt.Fprintf(&b, "🕒 %s\n", esc(order.Date))
	}
	b.WriteString("\n")

	switch order.Type {
	case models.OrderTypeDelivery:
		b.WriteString("🚗 <b>Delivery</b>\n")
		fmt.Fprintf(&b, "Address: %s", esc(order.Address))
		if order.HouseNumber != "" {
			fmt.Fprintf(&b, ", %s", esc(order.HouseNumber))
		}
		b.WriteString("\n")
	case models.OrderTypePickup:
		b.WriteString("🏃 <b>Pickup</b>\n")
		if order.PickupTime != "" {
			fmt.Fprintf(&b, "Pickup time: %s\n", esc(order.PickupTime))
		}
	}
	if order.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", esc(order.Phone))
	}
	payment := "Cash"
	if order.PaymentMethod == models.PaymentCardOnReceipt {
		payment = "Card on receipt"
	}
	fmt.Fprintf(&b, "Payment: %s\n\n", payment)

	for _, item := range order.Items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(&b, "• %s x%d = %s\n", esc(item.Name), item.Quantity, line.StringFixed(2))
	}
	fmt.Fprintf(&b, "\n💰 <b>Total: %s</b>\n", money(order.Total))

	if order.Notes != "" {
		fmt.Fprintf(&b, "📝 %s\n", esc(order.Notes))
	}
	fmt.Fprintf(&b, "\nStatus: <b>%s</b>", StatusLabel(order.Status))
	return b.String()
}
