package storefront

import (
	"fmt"
	"sync"

	"github.com/franciscosanchezn/pizzeria/internal/lifecycle"
	"github.com/franciscosanchezn/pizzeria/internal/models"
)

// Cart is the customer's in-progress selection. It lives only as long as the
// session and is never persisted.
type Cart struct {
	mu    sync.Mutex
	items []models.CartItem
}

// NewCart returns an empty cart
func NewCart() *Cart {
	return &Cart{}
}

// Add puts qty of pizza into the cart, merging with an existing line
func (c *Cart) Add(pizza models.Pizza, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", lifecycle.ErrValidation)
	}
	if pizza.ID == "" {
		return fmt.Errorf("%w: menu item has no id", lifecycle.ErrValidation)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == pizza.ID {
			c.items[i].Quantity += qty
			return nil
		}
	}
	c.items = append(c.items, models.CartItem{Pizza: pizza, Quantity: qty})
	return nil
}

// SetQuantity changes the quantity of a line; zero or less removes it.
// It reports whether the line existed.
func (c *Cart) SetQuantity(pizzaID string, qty int) bool {
	if qty <= 0 {
		return c.Remove(pizzaID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == pizzaID {
			c.items[i].Quantity = qty
			return true
		}
	}
	return false
}

// Remove drops a line and reports whether it existed
func (c *Cart) Remove(pizzaID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == pizzaID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Items returns a copy of the cart lines in insertion order
func (c *Cart) Items() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Total() float64 {
	return lifecycle.Total(c.Items())
}

// Count is the number of units across all lines
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items() {
		n += it.Quantity
	}
	return n
}
