package services

import (
	"errors"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserExists         = errors.New("user_already_exists")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRole        = errors.New("invalid_role")
)

// UserService stores customer and administrator accounts. Emails are
// compared case-insensitively.
type UserService interface {
	CreateUser(user *models.User) error
	// Authenticate returns the account when the password matches. Unknown
	// emails and wrong passwords are both ErrInvalidCredentials.
	Authenticate(email, password string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
}

type userService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) UserService {
	return &userService{db: db}
}

func (s *userService) CreateUser(user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if !user.Role.IsValid() {
		return ErrInvalidRole
	}
	if user.Favorites == nil {
		user.Favorites = []string{}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrUserExists
		}
		return tx.Create(user).Error
	})
}

func (s *userService) Authenticate(email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	return s.findUser("email = ?", models.NormalizeEmail(email))
}

func (s *userService) GetUserByID(id uint) (*models.User, error) {
	return s.findUser("id = ?", id)
}

func (s *userService) findUser(query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := s.db.Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
