package auth

import (
	"errors"
	"net/http"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/go-oauth2/oauth2/v4"
	oautherrors "github.com/go-oauth2/oauth2/v4/errors"
	"github.com/sirupsen/logrus"
)

// HandleToken godoc
// @Summary Token Endpoint
// @Description Obtain a device access token with the client credentials grant
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "Must be client_credentials"
// @Param client_id formData string true "Client ID"
// @Param client_secret formData string true "Client Secret"
// @Param scope formData string false "Requested scope"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Router /oauth/token [post]
func (o *OAuthService) HandleToken(c *gin.Context) {
	if grantType := c.PostForm("grant_type"); grantType != string(oauth2.ClientCredentials) {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrUnsupportedGrantType,
			"only the client_credentials grant is supported"))
		return
	}

	clientID, clientSecret := c.PostForm("client_id"), c.PostForm("client_secret")
	if clientID == "" {
		// RFC 6749 2.3.1 allows HTTP Basic as well
		if id, secret, ok := c.Request.BasicAuth(); ok {
			clientID, clientSecret = id, secret
		}
	}
	if clientID == "" || clientSecret == "" {
		c.JSON(http.StatusBadRequest, models.NewOAuth2Error(models.ErrInvalidRequest, "client_id and client_secret are required"))
		return
	}

	ti, err := o.server.Manager.GenerateAccessToken(c.Request.Context(), oauth2.ClientCredentials, &oauth2.TokenGenerateRequest{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scope:        c.PostForm("scope"),
	})
	if err != nil {
		if errors.Is(err, oautherrors.ErrInvalidClient) {
			log.WithField("client_id", clientID).Warn("Rejected token request for invalid client")
			c.JSON(http.StatusUnauthorized, models.NewOAuth2Error(models.ErrInvalidClient, "client authentication failed"))
			return
		}
		log.WithFields(logrus.Fields{"client_id": clientID, "error": err.Error()}).Error("Token generation failed")
		c.JSON(http.StatusInternalServerError, models.NewOAuth2Error("server_error", "token generation failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": ti.GetAccess(),
		"token_type":   "Bearer",
		"expires_in":   int64(ti.GetAccessExpiresIn().Seconds()),
		"scope":        ti.GetScope(),
	})
}
