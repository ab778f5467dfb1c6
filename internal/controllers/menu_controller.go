package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/gin-gonic/gin"
)

// MenuController serves the menu and lets admins replace it
type MenuController struct {
	service services.PizzaService
}

func NewMenuController(service services.PizzaService) *MenuController {
	return &MenuController{service: service}
}

// GetAllPizzas godoc
// @Summary Get the menu
// @Description Get every menu item in display order
// @Tags menu
// @Produce json
// @Success 200 {array} models.Pizza
// @Failure 500 {object} models.APIError
// @Router /api/v1/public/pizzas [get]
func (mc *MenuController) GetAllPizzas(c *gin.Context) {
	pizzas, err := mc.service.GetAllPizzas()
	if err != nil {
		respondInternal(c, "retrieve menu", err)
		return
	}
	c.JSON(http.StatusOK, pizzas)
}

// GetPizzaByID godoc
// @Summary Get a menu item
// @Tags menu
// @Produce json
// @Param id path string true "Pizza ID"
// @Success 200 {object} models.Pizza
// @Failure 404 {object} models.APIError
// @Router /api/v1/public/pizzas/{id} [get]
func (mc *MenuController) GetPizzaByID(c *gin.Context) {
	pizza, err := mc.service.GetPizzaByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrPizzaNotFound, "Pizza not found"))
			return
		}
		respondInternal(c, "retrieve pizza", err)
		return
	}
	c.JSON(http.StatusOK, pizza)
}

// ReplaceMenu godoc
// @Summary Replace the menu
// @Description Delete every menu item and store the given list in its place. An empty list empties the menu.
// @Tags menu
// @Accept json
// @Produce json
// @Param menu body []models.Pizza true "Full menu"
// @Success 200 {array} models.Pizza
// @Failure 400 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/admin/pizzas [post]
func (mc *MenuController) ReplaceMenu(c *gin.Context) {
	var menu []models.Pizza
	if err := c.ShouldBindJSON(&menu); err != nil {
		respondBadRequest(c, models.ErrPizzaInvalidData, err)
		return
	}
	if err := validateMenu(menu); err != nil {
		respondBadRequest(c, models.ErrPizzaInvalidData, err)
		return
	}

	stored, err := mc.service.ReplaceAll(menu)
	if err != nil {
		respondInternal(c, "replace menu", err)
		return
	}
	log.WithField("items", len(stored)).Info("Menu replaced")
	c.JSON(http.StatusOK, stored)
}

func validateMenu(menu []models.Pizza) error {
	seen := make(map[string]bool, len(menu))
	for i, p := range menu {
		if p.Category != "" && !p.Category.Valid() {
			return fmt.Errorf("item %d: unknown category %q", i, p.Category)
		}
		if p.ID == "" {
			continue
		}
		if seen[p.ID] {
			return fmt.Errorf("item %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
