package controllers

import (
	"errors"
	"net/http"

	"github.com/franciscosanchezn/pizzeria/internal/middleware"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/gin-gonic/gin"
)

// ClientController manages the device credentials storefronts use to reach
// the store. A device acts with the role of the user who created it.
type ClientController struct {
	clientService services.ClientService
}

func NewClientController(clientService services.ClientService) *ClientController {
	return &ClientController{clientService: clientService}
}

// CreateClient godoc
// @Summary Create a device client
// @Description Issue client credentials for a storefront device
// @Tags OAuth2 Clients
// @Accept json
// @Produce json
// @Param client body object{name=string,domain=string,scopes=string} true "Client details"
// @Success 201 {object} map[string]interface{} "Client created with client_id and client_secret"
// @Failure 400 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/clients [post]
func (cc *ClientController) CreateClient(c *gin.Context) {
	var req struct {
		Name   string `json:"name" binding:"required"`
		Domain string `json:"domain"`
		Scopes string `json:"scopes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, models.ErrValidationFailed, err)
		return
	}

	client, secret, err := cc.clientService.IssueClient(c.GetUint(middleware.ContextUserID), req.Name, req.Domain, req.Scopes)
	if err != nil {
		respondInternal(c, "create client", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"client_id":     client.ID,
		"client_secret": secret,
		"name":          client.Name,
		"scopes":        client.Scopes,
	})
}

// ListClients godoc
// @Summary List device clients
// @Tags OAuth2 Clients
// @Produce json
// @Success 200 {array} object
// @Security BearerAuth
// @Router /api/v1/protected/clients [get]
func (cc *ClientController) ListClients(c *gin.Context) {
	clients, err := cc.clientService.ClientsOwnedBy(c.GetUint(middleware.ContextUserID))
	if err != nil {
		respondInternal(c, "retrieve clients", err)
		return
	}

	out := make([]gin.H, 0, len(clients))
	for _, cl := range clients {
		out = append(out, gin.H{
			"client_id":  cl.ID,
			"name":       cl.Name,
			"domain":     cl.Domain,
			"scopes":     cl.Scopes,
			"created_at": cl.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// DeleteClient godoc
// @Summary Revoke a device client
// @Description Delete the client and every token issued to it
// @Tags OAuth2 Clients
// @Param id path string true "Client ID"
// @Success 204
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/v1/protected/clients/{id} [delete]
func (cc *ClientController) DeleteClient(c *gin.Context) {
	err := cc.clientService.RevokeClient(c.Param("id"), c.GetUint(middleware.ContextUserID))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "client_not_found"))
			return
		}
		respondInternal(c, "delete client", err)
		return
	}
	c.Status(http.StatusNoContent)
}
