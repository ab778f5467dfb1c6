package database

import (
	"fmt"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the store API uses
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Pizza{},
		&models.Order{},
		&models.Settings{},
		&models.User{},
		&models.OAuthClient{},
		&models.OAuthToken{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	log.Info("Database schema migrated")
	return nil
}

// Seed fills an empty menu with the default items
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Pizza{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("Database already seeded with initial data")
		return nil
	}

	log.Info("Database is empty, seeding initial data")
	menu := models.DefaultMenu()
	for i := range menu {
		menu[i].Position = i
	}
	if err := db.Create(&menu).Error; err != nil {
		return fmt.Errorf("seed menu: %w", err)
	}
	log.WithField("items", len(menu)).Info("Database seeded successfully")
	return nil
}
