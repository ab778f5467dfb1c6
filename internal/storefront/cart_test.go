package storefront

import (
	"testing"

	"github.com/franciscosanchezn/pizzeria/internal/lifecycle"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	margherita = models.Pizza{ID: "margherita", Name: "Margherita", Price: 150, Category: models.CategoryPizza}
	pepperoni  = models.Pizza{ID: "pepperoni", Name: "Pepperoni", Price: 200, Category: models.CategoryPizza}
)

func TestCartAddMerges(t *testing.T) {
	c := NewCart()
	require.NoError(t, c.Add(margherita, 1))
	require.NoError(t, c.Add(pepperoni, 1))
	require.NoError(t, c.Add(margherita, 1))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "margherita", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, 500.0, c.Total())
}

func TestCartRejectsBadInput(t *testing.T) {
	c := NewCart()
	assert.ErrorIs(t, c.Add(margherita, 0), lifecycle.ErrValidation)
	assert.ErrorIs(t, c.Add(models.Pizza{Name: "nameless"}, 1), lifecycle.ErrValidation)
	assert.Empty(t, c.Items())
}

func TestCartQuantityAndRemove(t *testing.T) {
	c := NewCart()
	require.NoError(t, c.Add(margherita, 1))
	require.NoError(t, c.Add(pepperoni, 1))

	assert.True(t, c.SetQuantity("pepperoni", 4))
	assert.Equal(t, 5, c.Count())
	assert.False(t, c.SetQuantity("missing", 2))

	assert.True(t, c.SetQuantity("pepperoni", 0))
	assert.Len(t, c.Items(), 1)

	assert.True(t, c.Remove("margherita"))
	assert.False(t, c.Remove("margherita"))
	assert.Zero(t, c.Total())
}

func TestCartItemsIsACopy(t *testing.T) {
	c := NewCart()
	require.NoError(t, c.Add(margherita, 1))

	items := c.Items()
	items[0].Quantity = 99
	items[0].Price = 1

	assert.Equal(t, 1, c.Items()[0].Quantity)
	assert.Equal(t, 150.0, c.Total())

	c.Clear()
	assert.Zero(t, c.Count())
}
