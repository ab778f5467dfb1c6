package controllers

import (
	"errors"
	"net/http"

	"github.com/franciscosanchezn/pizzeria/internal/lifecycle"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// respondOrderError maps order failures onto status codes the storefront
// gateway classifies: 400 validation, 404 not found, 409 illegal transition.
func respondOrderError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrOrderNotFound), errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrOrderNotFound, err.Error()))
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		c.JSON(http.StatusConflict, models.NewAPIError(models.ErrOrderInvalidTransition, err.Error()))
	case errors.Is(err, lifecycle.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrOrderInvalidStatus, err.Error()))
	case errors.Is(err, lifecycle.ErrValidation):
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrOrderInvalidData, err.Error()))
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, models.NewAPIError(models.ErrConflict, err.Error()))
	default:
		log.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Error("Order operation failed")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to "+op))
	}
}

func respondBadRequest(c *gin.Context, code string, err error) {
	c.JSON(http.StatusBadRequest, models.NewAPIError(code, "Invalid request body", map[string]interface{}{
		"reason": err.Error(),
	}))
}

func respondInternal(c *gin.Context, op string, err error) {
	log.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to "+op))
}
