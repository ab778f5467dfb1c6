package models

import "time"

// Category groups menu items on the storefront
type Category string

const (
	CategoryPizza      Category = "pizza"
	CategoryDrinks     Category = "drinks"
	CategoryPromotions Category = "promotions"
	CategoryNew        Category = "new"
	CategoryBox        Category = "box"
)

// Valid reports whether c is one of the known menu categories
func (c Category) Valid() bool {
	switch c {
	case CategoryPizza, CategoryDrinks, CategoryPromotions, CategoryNew, CategoryBox:
		return true
	}
	return false
}

// Pizza represents a menu item with its properties
type Pizza struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null" binding:"required"`
	Description string    `json:"description"`
	Price       float64   `json:"price" binding:"gte=0"`
	Image       string    `json:"image,omitempty"`
	Category    Category  `json:"category" gorm:"not null;default:'pizza'"`
	IsNew       bool      `json:"isNew" gorm:"default:false"`
	IsPromo     bool      `json:"isPromo" gorm:"default:false"`
	Position    int       `json:"-"`
	CreatedAt   time.Time `json:"-"`
}

// CartItem is a menu item together with the quantity the customer picked
type CartItem struct {
	Pizza
	Quantity int `json:"quantity"`
}

// DefaultMenu is served when neither the store nor the local cache holds a menu
func DefaultMenu() []Pizza {
	return []Pizza{
		{ID: "margherita", Name: "Margherita", Description: "Tomato sauce, mozzarella, basil", Price: 180, Category: CategoryPizza},
		{ID: "pepperoni", Name: "Pepperoni", Description: "Tomato sauce, mozzarella, pepperoni", Price: 220, Category: CategoryPizza},
		{ID: "vegetarian", Name: "Vegetarian", Description: "Tomato sauce, mozzarella, bell peppers, olives", Price: 200, Category: CategoryPizza},
		{ID: "lemonade", Name: "Lemonade", Description: "House lemonade, 0.5 l", Price: 60, Category: CategoryDrinks},
	}
}
