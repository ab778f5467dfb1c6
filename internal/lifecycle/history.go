package lifecycle

import (
	"fmt"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
)

// Prepend returns a new history with order first; history is kept most-recent-first
func Prepend(history []models.Order, order models.Order) []models.Order {
	out := make([]models.Order, 0, len(history)+1)
	out = append(out, order)
	return append(out, history...)
}

// Find looks an order up by id
func Find(history []models.Order, id string) (models.Order, int, bool) {
	for i, o := range history {
		if o.ID == id {
			return o, i, true
		}
	}
	return models.Order{}, -1, false
}

// Replace returns a copy of history with the order of the same id swapped for
// order, or history unchanged when there is none
func Replace(history []models.Order, order models.Order) ([]models.Order, bool) {
	_, idx, ok := Find(history, order.ID)
	if !ok {
		return history, false
	}
	out := make([]models.Order, len(history))
	copy(out, history)
	out[idx] = order
	return out, true
}

// ApplyStatus transitions the order with the given id inside history. The
// returned history is a new slice; the input is never modified.
func ApplyStatus(history []models.Order, id string, to models.OrderStatus, now time.Time) ([]models.Order, models.Order, error) {
	current, _, ok := Find(history, id)
	if !ok {
		return history, models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	updated, err := Transition(current, to, now)
	if err != nil {
		return history, current, err
	}
	out, _ := Replace(history, updated)
	return out, updated, nil
}
