package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/pizzeria/internal/middleware"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/gin-gonic/gin"
)

type SettingsController struct {
	service services.SettingsService
}

func NewSettingsController(service services.SettingsService) *SettingsController {
	return &SettingsController{service: service}
}

// GetPublicSettings godoc
// @Summary Get site settings
// @Description Branding and contact details. Integration credentials are never included.
// @Tags settings
// @Produce json
// @Success 200 {object} models.Settings
// @Router /api/v1/public/settings [get]
func (sc *SettingsController) GetPublicSettings(c *gin.Context) {
	settings, err := sc.service.Get()
	if err != nil {
		respondInternal(c, "retrieve settings", err)
		return
	}
	c.JSON(http.StatusOK, settings.Redacted())
}

// GetSettings godoc
// @Summary Get site settings with credentials
// @Tags settings
// @Produce json
// @Success 200 {object} models.Settings
// @Security BearerAuth
// @Router /api/v1/protected/admin/settings [get]
func (sc *SettingsController) GetSettings(c *gin.Context) {
	settings, err := sc.service.Get()
	if err != nil {
		respondInternal(c, "retrieve settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SaveSettings godoc
// @Summary Save site settings
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body models.Settings true "Settings"
// @Success 200 {object} models.Settings
// @Failure 400 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/admin/settings [post]
func (sc *SettingsController) SaveSettings(c *gin.Context) {
	var settings models.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		respondBadRequest(c, models.ErrValidationFailed, err)
		return
	}

	saved, err := sc.service.Upsert(settings)
	if err != nil {
		respondInternal(c, "save settings", err)
		return
	}
	log.WithField("user_id", c.GetUint(middleware.ContextUserID)).Info("Settings saved")
	c.JSON(http.StatusOK, saved)
}
