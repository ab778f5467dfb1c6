package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Role defines allowed roles in the system
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Password     string    `json:"-" gorm:"-"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name"`
	Role         Role      `json:"role" gorm:"not null;default:'user'"`
	Favorites    []string  `json:"favorites" gorm:"serializer:json"`
	History      []Order   `json:"history,omitempty" gorm:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BeforeSave keeps stored emails normalized
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// HashPassword replaces the plain Password with a bcrypt hash
func (u *User) HashPassword() error {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.Password = ""
	return nil
}

// CheckPassword compares a plain password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// IsAdmin reports whether the user may manage the menu, orders and settings
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ToggleFavorite adds or removes a pizza id and reports whether it is now a favorite
func (u *User) ToggleFavorite(pizzaID string) bool {
	for i, id := range u.Favorites {
		if id == pizzaID {
			u.Favorites = append(u.Favorites[:i:i], u.Favorites[i+1:]...)
			return false
		}
	}
	u.Favorites = append(u.Favorites, pizzaID)
	return true
}
