package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/lifecycle"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"gorm.io/gorm"
)

// OrderService stores orders and applies status transitions to them
type OrderService interface {
	// GetAllOrders returns every order, most recent first
	GetAllOrders() ([]models.Order, error)
	GetOrderByID(id string) (models.Order, error)
	// CreateOrder inserts a new pending order and returns it with its storage id
	CreateOrder(order models.Order) (models.Order, error)
	// UpdateStatus moves an order along the lifecycle. A non-nil stamp is used
	// as the preparation start when the order enters preparing; it must lie
	// between the order's creation and now.
	UpdateStatus(id string, status models.OrderStatus, stamp *int64) (models.Order, error)
}

type orderService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOrderService(db *gorm.DB) OrderService {
	return &orderService{db: db, now: time.Now}
}

func (s *orderService) GetAllOrders() ([]models.Order, error) {
	orders := []models.Order{}
	if err := s.db.Order("created_at desc").Order("row_id desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *orderService) GetOrderByID(id string) (models.Order, error) {
	return s.find(s.db, id)
}

func (s *orderService) find(db *gorm.DB, id string) (models.Order, error) {
	var order models.Order
	if err := db.Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, fmt.Errorf("%w: %s", lifecycle.ErrOrderNotFound, id)
		}
		return models.Order{}, err
	}
	return order, nil
}

func (s *orderService) CreateOrder(order models.Order) (models.Order, error) {
	if err := lifecycle.ValidateNewOrder(order); err != nil {
		return models.Order{}, err
	}
	if order.CreatedAt == 0 {
		order.CreatedAt = s.now().UnixMilli()
	}
	order.RowID = 0

	var count int64
	if err := s.db.Model(&models.Order{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
		return models.Order{}, err
	}
	if count > 0 {
		return models.Order{}, fmt.Errorf("%w: order %s already exists", ErrConflict, order.ID)
	}
	if err := s.db.Create(&order).Error; err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *orderService) UpdateStatus(id string, status models.OrderStatus, stamp *int64) (models.Order, error) {
	if err := lifecycle.ValidateStatus(status); err != nil {
		return models.Order{}, err
	}

	var updated models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.find(tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		if stamp != nil {
			if *stamp < current.CreatedAt || *stamp > now.UnixMilli() {
				return fmt.Errorf("%w: preparingStartTime %d outside [%d, %d]",
					lifecycle.ErrValidation, *stamp, current.CreatedAt, now.UnixMilli())
			}
			now = time.UnixMilli(*stamp)
		}
		updated, err = lifecycle.Transition(current, status, now)
		if err != nil {
			return err
		}
		return tx.Model(&models.Order{}).Where("row_id = ?", current.RowID).Updates(map[string]any{
			"status":               updated.Status,
			"preparing_start_time": updated.PreparingStartTime,
		}).Error
	})
	if err != nil {
		return models.Order{}, err
	}
	return updated, nil
}
