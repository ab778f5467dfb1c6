package services

import (
	"errors"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsService reads and writes the settings singleton
type SettingsService interface {
	// Get returns the stored settings, or the defaults when none were saved
	Get() (models.Settings, error)
	// Upsert stores settings under the fixed singleton id
	Upsert(settings models.Settings) (models.Settings, error)
}

type settingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) SettingsService {
	return &settingsService{db: db}
}

func (s *settingsService) Get() (models.Settings, error) {
	var settings models.Settings
	err := s.db.Where("id = ?", models.SettingsID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

func (s *settingsService) Upsert(settings models.Settings) (models.Settings, error) {
	settings.ID = models.SettingsID
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&settings).Error
	if err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}
