package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/pizzeria/internal/middleware"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// OrderController accepts orders from storefronts and lets admins move them
// through the lifecycle
type OrderController struct {
	service services.OrderService
}

func NewOrderController(service services.OrderService) *OrderController {
	return &OrderController{service: service}
}

// CreateOrder godoc
// @Summary Place an order
// @Description Store a pending order built by a storefront at checkout
// @Tags orders
// @Accept json
// @Produce json
// @Param order body models.Order true "New order"
// @Success 201 {object} models.Order
// @Failure 400 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Router /api/v1/public/orders [post]
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var order models.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		respondBadRequest(c, models.ErrOrderInvalidData, err)
		return
	}

	stored, err := oc.service.CreateOrder(order)
	if err != nil {
		respondOrderError(c, "create order", err)
		return
	}
	log.WithFields(logrus.Fields{"order_id": stored.ID, "total": stored.Total}).Info("Order placed")
	c.JSON(http.StatusCreated, stored)
}

// GetOrder godoc
// @Summary Get an order
// @Description Look up one order by its id, for tracking
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.Order
// @Failure 404 {object} models.APIError
// @Router /api/v1/public/orders/{id} [get]
func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.service.GetOrderByID(c.Param("id"))
	if err != nil {
		respondOrderError(c, "retrieve order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders godoc
// @Summary List orders
// @Description Every order, most recent first
// @Tags orders
// @Produce json
// @Success 200 {array} models.Order
// @Security BearerAuth
// @Router /api/v1/protected/admin/orders [get]
func (oc *OrderController) ListOrders(c *gin.Context) {
	orders, err := oc.service.GetAllOrders()
	if err != nil {
		respondInternal(c, "retrieve orders", err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// UpdateOrderStatus godoc
// @Summary Change an order's status
// @Description Apply one lifecycle transition. preparingStartTime, when given, must lie between the order's creation and now and is recorded as the start of preparation. Returns the order as stored.
// @Tags orders
// @Accept json
// @Produce json
// @Param update body models.StatusUpdate true "Status change"
// @Success 200 {object} models.Order
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/admin/orders [patch]
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var update models.StatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondBadRequest(c, models.ErrOrderInvalidData, err)
		return
	}

	updated, err := oc.service.UpdateStatus(update.ID, update.Status, update.PreparingStartTime)
	if err != nil {
		respondOrderError(c, "update order status", err)
		return
	}
	log.WithFields(logrus.Fields{
		"order_id": updated.ID,
		"status":   updated.Status,
		"user_id":  c.GetUint(middleware.ContextUserID),
	}).Info("Order status changed")
	c.JSON(http.StatusOK, updated)
}
