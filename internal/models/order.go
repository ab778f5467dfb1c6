package models

import "time"

// OrderStatus represents all possible states of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every recognised status in lifecycle order
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
}

// OrderType tells whether the customer collects the order or gets it delivered
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

// PaymentMethod is how the customer pays when the order is handed over
type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentCardOnReceipt PaymentMethod = "card_on_receipt"
)

// Order is a placed order. Items are snapshots taken at checkout, so later
// menu edits never change an order that already exists.
type Order struct {
	// RowID is the storage id assigned by the store on insert
	RowID              uint          `json:"rowId,omitempty" gorm:"primaryKey"`
	ID                 string        `json:"id" gorm:"uniqueIndex;not null"`
	Items              []CartItem    `json:"items" gorm:"serializer:json"`
	Total              float64       `json:"total"`
	Date               string        `json:"date"`
	CreatedAt          int64         `json:"createdAt" gorm:"autoCreateTime:false;index"`
	Type               OrderType     `json:"type" gorm:"not null"`
	Address            string        `json:"address,omitempty"`
	HouseNumber        string        `json:"houseNumber,omitempty"`
	Phone              string        `json:"phone,omitempty"`
	PickupTime         string        `json:"pickupTime,omitempty"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	Notes              string        `json:"notes,omitempty"`
	Status             OrderStatus   `json:"status" gorm:"not null;default:'pending'"`
	PreparingStartTime *int64        `json:"preparingStartTime,omitempty"`
	UpdatedAt          time.Time     `json:"-"`
}

// PreparingStartedAt returns the preparation start stamp and whether it is set
func (o Order) PreparingStartedAt() (time.Time, bool) {
	if o.PreparingStartTime == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*o.PreparingStartTime), true
}

// Clone returns a deep copy of the order
func (o Order) Clone() Order {
	out := o
	if o.Items != nil {
		out.Items = make([]CartItem, len(o.Items))
		copy(out.Items, o.Items)
	}
	if o.PreparingStartTime != nil {
		stamp := *o.PreparingStartTime
		out.PreparingStartTime = &stamp
	}
	return out
}

// StatusUpdate is the body of a targeted status change
type StatusUpdate struct {
	ID                 string      `json:"id" binding:"required"`
	Status             OrderStatus `json:"status" binding:"required"`
	PreparingStartTime *int64      `json:"preparingStartTime,omitempty"`
}
