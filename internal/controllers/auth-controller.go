package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/auth"
	"github.com/franciscosanchezn/pizzeria/internal/middleware"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	userService services.UserService
	jwtSecret   []byte
	now         func() time.Time
}

func NewAuthController(userService services.UserService, jwtSecret string) *AuthController {
	return &AuthController{
		userService: userService,
		jwtSecret:   []byte(jwtSecret),
		now:         time.Now,
	}
}

// Register godoc
// @Summary Create a customer account
// @Tags auth
// @Accept json
// @Produce json
// @Param account body object{email=string,password=string,name=string} true "Account"
// @Success 201 {object} map[string]string
// @Failure 400 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Router /api/v1/auth/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, models.ErrValidationFailed, err)
		return
	}

	user := &models.User{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     models.RoleUser,
	}
	if err := user.HashPassword(); err != nil {
		respondInternal(c, "hash password", err)
		return
	}

	if err := ac.userService.CreateUser(user); err != nil {
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusConflict, models.NewAPIError(models.ErrConflict, "user_already_exists"))
			return
		}
		respondInternal(c, "create user", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user_created"})
}

// Login godoc
// @Summary Log in
// @Description Exchange email and password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body object{email=string,password=string} true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.APIError
// @Router /api/v1/auth/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, models.ErrValidationFailed, err)
		return
	}

	user, err := ac.userService.Authenticate(req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "invalid_credentials"))
		return
	}
	if err != nil {
		respondInternal(c, "authenticate", err)
		return
	}

	token, err := auth.SignUserToken(ac.jwtSecret, user, ac.now())
	if err != nil {
		respondInternal(c, "generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int64(auth.UserTokenTTL.Seconds()),
		"user":         user,
	})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/me [get]
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.userService.GetUserByID(c.GetUint(middleware.ContextUserID))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "User not found"))
			return
		}
		respondInternal(c, "retrieve user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
