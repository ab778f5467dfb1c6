package services

import (
	"errors"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a record with the same key already exists
var ErrConflict = errors.New("record already exists")

// PizzaService provides methods to interact with the menu stored in the database
type PizzaService interface {
	// GetAllPizzas retrieves the whole menu in display order
	GetAllPizzas() ([]models.Pizza, error)
	// GetPizzaByID retrieves a menu item by its ID
	GetPizzaByID(id string) (models.Pizza, error)
	// ReplaceAll deletes the current menu and stores menu in its place
	ReplaceAll(menu []models.Pizza) ([]models.Pizza, error)
}

// pizzaService is the implementation of the PizzaService interface
type pizzaService struct {
	db *gorm.DB
}

// NewPizzaService creates a new instance of PizzaService
func NewPizzaService(db *gorm.DB) PizzaService {
	return &pizzaService{db: db}
}

func (s *pizzaService) GetAllPizzas() ([]models.Pizza, error) {
	pizzas := []models.Pizza{}
	if err := s.db.Order("position").Find(&pizzas).Error; err != nil {
		return nil, err
	}
	return pizzas, nil
}

func (s *pizzaService) GetPizzaByID(id string) (models.Pizza, error) {
	var pizza models.Pizza
	if err := s.db.Where("id = ?", id).First(&pizza).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Pizza{}, ErrNotFound
		}
		return models.Pizza{}, err
	}
	return pizza, nil
}

// ReplaceAll is a destructive replace: an empty menu empties the table
func (s *pizzaService) ReplaceAll(menu []models.Pizza) ([]models.Pizza, error) {
	stored := make([]models.Pizza, len(menu))
	copy(stored, menu)
	for i := range stored {
		if stored[i].ID == "" {
			stored[i].ID = uuid.NewString()
		}
		if stored[i].Category == "" {
			stored[i].Category = models.CategoryPizza
		}
		stored[i].Position = i
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Pizza{}).Error; err != nil {
			return err
		}
		if len(stored) == 0 {
			return nil
		}
		return tx.Create(&stored).Error
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}
