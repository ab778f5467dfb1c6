package services

import (
	"errors"
	"fmt"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ClientService manages the device credentials storefronts use to reach the
// store. A device acts with the role of the user who owns it.
type ClientService interface {
	// IssueClient creates a client with a generated id and secret. The plain
	// secret is returned once and only its hash is stored.
	IssueClient(ownerID uint, name, domain, scopes string) (*models.OAuthClient, string, error)
	CreateClient(client *models.OAuthClient) error
	ClientsOwnedBy(ownerID uint) ([]models.OAuthClient, error)
	GetClientByID(id string) (*models.OAuthClient, error)
	// RevokeClient deletes the client and every token issued to it
	RevokeClient(clientID string, ownerID uint) error
}

type clientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) ClientService {
	return &clientService{db: db}
}

func (s *clientService) IssueClient(ownerID uint, name, domain, scopes string) (*models.OAuthClient, string, error) {
	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash client secret: %w", err)
	}
	client := &models.OAuthClient{
		ID:     uuid.NewString(),
		Secret: string(hash),
		Name:   name,
		Domain: domain,
		Scopes: scopes,
		UserID: ownerID,
	}
	if err := s.CreateClient(client); err != nil {
		return nil, "", err
	}
	return client, secret, nil
}

func (s *clientService) CreateClient(client *models.OAuthClient) error {
	if client.UserID == 0 {
		return errors.New("client must have an owner")
	}
	return s.db.Create(client).Error
}

func (s *clientService) ClientsOwnedBy(ownerID uint) ([]models.OAuthClient, error) {
	clients := []models.OAuthClient{}
	err := s.db.Where("user_id = ?", ownerID).Order("created_at").Find(&clients).Error
	return clients, err
}

func (s *clientService) GetClientByID(id string) (*models.OAuthClient, error) {
	var client models.OAuthClient
	if err := s.db.First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (s *clientService) RevokeClient(clientID string, ownerID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", clientID, ownerID).Delete(&models.OAuthClient{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("client_id = ?", clientID).Delete(&models.OAuthToken{}).Error
	})
}
