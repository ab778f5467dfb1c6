// Package lifecycle holds the order state machine: which status changes are
// allowed, how an order is created at checkout, and the one-time stamp taken
// when preparation starts.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
)

var (
	ErrInvalidStatus     = errors.New("unrecognized order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOrderNotFound     = errors.New("order not found")
	ErrValidation        = errors.New("invalid order")
)

// Edge is an allowed status change. DeliveryOnly edges apply to delivery orders only.
type Edge struct {
	From         models.OrderStatus
	To           models.OrderStatus
	DeliveryOnly bool
}

// edges is the authoritative state machine definition
var edges = []Edge{
	{From: models.StatusPending, To: models.StatusPreparing},
	{From: models.StatusPending, To: models.StatusCancelled},

	{From: models.StatusPreparing, To: models.StatusReady},
	{From: models.StatusPreparing, To: models.StatusCancelled},

	{From: models.StatusReady, To: models.StatusCompleted},
	{From: models.StatusReady, To: models.StatusDelivered, DeliveryOnly: true},
	{From: models.StatusReady, To: models.StatusCancelled},

	{From: models.StatusDelivered, To: models.StatusCompleted},
	{From: models.StatusDelivered, To: models.StatusCancelled},
}

type edgeKey struct {
	From models.OrderStatus
	To   models.OrderStatus
}

var edgeMap = func() map[edgeKey]Edge {
	m := make(map[edgeKey]Edge, len(edges))
	for _, e := range edges {
		m[edgeKey{e.From, e.To}] = e
	}
	return m
}()

// ParseStatus validates a raw status value
func ParseStatus(raw string) (models.OrderStatus, error) {
	status := models.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err := ValidateStatus(status); err != nil {
		return "", err
	}
	return status, nil
}

// ValidateStatus rejects anything outside the fixed status vocabulary
func ValidateStatus(status models.OrderStatus) error {
	for _, s := range models.OrderStatuses {
		if s == status {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// IsTerminal reports whether no further transition is possible from status
func IsTerminal(status models.OrderStatus) bool {
	return status == models.StatusCompleted || status == models.StatusCancelled
}

// NextStatuses returns the statuses an order of the given type can move to
func NextStatuses(from models.OrderStatus, orderType models.OrderType) []models.OrderStatus {
	var next []models.OrderStatus
	for _, e := range edges {
		if e.From != from {
			continue
		}
		if e.DeliveryOnly && orderType != models.OrderTypeDelivery {
			continue
		}
		next = append(next, e.To)
	}
	return next
}

// CanTransition checks whether an order of the given type may move from one status to another
func CanTransition(from, to models.OrderStatus, orderType models.OrderType) error {
	if err := ValidateStatus(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	e, ok := edgeMap[edgeKey{from, to}]
	if ok && (!e.DeliveryOnly || orderType == models.OrderTypeDelivery) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s (allowed: %s)", ErrInvalidTransition, from, to, describeNext(from, orderType))
}

func describeNext(from models.OrderStatus, orderType models.OrderType) string {
	next := NextStatuses(from, orderType)
	if len(next) == 0 {
		return "none, terminal state"
	}
	parts := make([]string, len(next))
	for i, s := range next {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// Transition returns a copy of order moved to status to. Entering preparing
// stamps PreparingStartTime with now unless it is already set, never earlier
// than the order's creation; no other field changes. Moving to the current
// status is a no-op.
func Transition(order models.Order, to models.OrderStatus, now time.Time) (models.Order, error) {
	if err := CanTransition(order.Status, to, order.Type); err != nil {
		return order, err
	}
	out := order.Clone()
	out.Status = to
	if to == models.StatusPreparing && out.PreparingStartTime == nil {
		stamp := max(now.UnixMilli(), order.CreatedAt)
		out.PreparingStartTime = &stamp
	}
	return out, nil
}

// Kind maps a lifecycle error onto the shared error taxonomy
func Kind(err error) models.ErrorKind {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return models.KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return models.KindInvalidTransition
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrValidation):
		return models.KindValidation
	}
	return ""
}
