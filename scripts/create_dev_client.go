// Command create_dev_client provisions a development account and a device
// client for it, so a storefront can authenticate with client credentials.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/franciscosanchezn/pizzeria/internal/config"
	"github.com/franciscosanchezn/pizzeria/internal/database"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

type provisionRequest struct {
	Role         models.Role
	Email        string
	Password     string
	ClientID     string
	ClientSecret string
}

type provisioned struct {
	User          *models.User
	Client        *models.OAuthClient
	ClientCreated bool
}

// provision finds or creates the owner account, then the device client.
// An existing client is left untouched.
func provision(db *gorm.DB, req provisionRequest) (*provisioned, error) {
	if !req.Role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", req.Role)
	}
	users := services.NewUserService(db)
	clients := services.NewClientService(db)

	user, err := users.GetUserByEmail(req.Email)
	switch {
	case errors.Is(err, services.ErrNotFound):
		user = &models.User{Email: req.Email, Name: fmt.Sprintf("Development %s", req.Role), Password: req.Password, Role: req.Role}
		if err := user.HashPassword(); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		if err := users.CreateUser(user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("Created user")
	case err != nil:
		return nil, fmt.Errorf("look up user: %w", err)
	}

	existing, err := clients.GetClientByID(req.ClientID)
	if err == nil {
		return &provisioned{User: user, Client: existing}, nil
	}
	if !errors.Is(err, services.ErrNotFound) {
		return nil, fmt.Errorf("look up client: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.ClientSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}
	client := &models.OAuthClient{
		ID:     req.ClientID,
		Secret: string(hash),
		Name:   fmt.Sprintf("Development %s device", req.Role),
		Domain: "http://localhost",
		UserID: user.ID,
		Scopes: "orders menu settings",
	}
	if err := clients.CreateClient(client); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &provisioned{User: user, Client: client, ClientCreated: true}, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}

	app := &cli.App{
		Name:  "create_dev_client",
		Usage: "create a development user and an OAuth client it owns",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "role", Value: string(models.RoleAdmin), Usage: "admin or user"},
			&cli.StringFlag{Name: "email", Usage: "owner email (default <role>@pizza.com)"},
			&cli.StringFlag{Name: "password", Value: "dev-password", Usage: "owner password, used when the user is created"},
			&cli.StringFlag{Name: "client-id", Usage: "device client id (default <role>-client)"},
			&cli.StringFlag{Name: "client-secret", Value: "dev-secret-123"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("Provisioning failed")
	}
}

func run(c *cli.Context) error {
	role := models.Role(c.String("role"))
	req := provisionRequest{
		Role:         role,
		Email:        c.String("email"),
		Password:     c.String("password"),
		ClientID:     c.String("client-id"),
		ClientSecret: c.String("client-secret"),
	}
	if req.Email == "" {
		req.Email = fmt.Sprintf("%s@pizza.com", role)
	}
	if req.ClientID == "" {
		req.ClientID = fmt.Sprintf("%s-client", role)
	}

	conf, err := config.LoadConfig()
	if err != nil {
		return err
	}
	db, err := database.InitDatabase(conf.Database())
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	result, err := provision(db, req)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if result.ClientCreated {
		fmt.Fprintf(out, "Created client %s for %s (user %d)\n", result.Client.ID, result.User.Email, result.User.ID)
		fmt.Fprintf(out, "Client secret: %s\n", req.ClientSecret)
	} else {
		fmt.Fprintf(out, "Client %s already exists; its secret was not changed\n", result.Client.ID)
	}
	fmt.Fprintf(out, "\nSTORE_CLIENT_ID=%s\n", result.Client.ID)
	fmt.Fprintf(out, "curl -X POST http://%s:%d/oauth/token -d grant_type=client_credentials -d client_id=%s -d client_secret=...\n",
		conf.Host, conf.Port, result.Client.ID)
	return nil
}
