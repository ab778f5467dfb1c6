package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/pizzeria/internal/lifecycle"
	"github.com/franciscosanchezn/pizzeria/internal/notify"
	"github.com/franciscosanchezn/pizzeria/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CallbackBot is the part of the bot API the webhook needs
type CallbackBot interface {
	AnswerCallbackQuery(ctx context.Context, queryID, text string) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *notify.InlineKeyboard) error
}

// TelegramController applies the status buttons pressed under order
// notifications in the staff chat
type TelegramController struct {
	orders   services.OrderService
	settings services.SettingsService
	newBot   func(token string) CallbackBot
}

func NewTelegramController(orders services.OrderService, settings services.SettingsService, botOpts ...notify.BotOption) *TelegramController {
	return &TelegramController{
		orders:   orders,
		settings: settings,
		newBot: func(token string) CallbackBot {
			return notify.NewBot(token, botOpts...)
		},
	}
}

// Webhook godoc
// @Summary Telegram webhook
// @Description Receives bot updates. Button presses change the order status and refresh the message.
// @Tags telegram
// @Accept json
// @Produce json
// @Param X-Telegram-Bot-Api-Secret-Token header string true "Webhook secret"
// @Success 200 {object} map[string]bool
// @Router /api/v1/telegram/webhook [post]
func (tc *TelegramController) Webhook(c *gin.Context) {
	// the bot retries anything but 200, so every update is acknowledged
	defer c.JSON(http.StatusOK, gin.H{"ok": true})

	var update notify.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.WithError(err).Warn("Dropping malformed webhook update")
		return
	}

	cq := update.CallbackQuery
	if cq == nil || cq.Message == nil {
		return
	}
	entry := log.WithFields(logrus.Fields{"update_id": update.UpdateID, "from": cq.From.ID})

	settings, err := tc.settings.Get()
	if err != nil {
		entry.WithError(err).Error("Failed to load settings for webhook")
		return
	}
	if !settings.HasTelegram() {
		entry.Warn("Webhook call while the bot is not configured")
		return
	}

	ctx := c.Request.Context()
	bot := tc.newBot(settings.Integrations.TelegramBotToken)
	answer := func(text string) {
		if err := bot.AnswerCallbackQuery(ctx, cq.ID, text); err != nil {
			entry.WithError(err).Warn("Failed to answer callback query")
		}
	}

	if strconv.FormatInt(cq.Message.Chat.ID, 10) != settings.Integrations.TelegramChatID {
		entry.WithField("chat_id", cq.Message.Chat.ID).Warn("Callback from a foreign chat")
		answer("Not allowed")
		return
	}

	status, orderID, err := notify.DecodeCallback(cq.Data)
	if err != nil {
		entry.WithField("data", cq.Data).Warn("Undecodable callback data")
		answer("Unknown action")
		return
	}

	updated, err := tc.orders.UpdateStatus(orderID, status, nil)
	if err != nil {
		entry.WithFields(logrus.Fields{"order_id": orderID, "status": status, "error": err.Error()}).Warn("Callback status change rejected")
		switch {
		case errors.Is(err, lifecycle.ErrOrderNotFound):
			answer("Order not found")
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			answer("Cannot move order to " + notify.StatusLabel(status))
		default:
			answer("Status change failed")
		}
		return
	}

	entry.WithFields(logrus.Fields{"order_id": orderID, "status": updated.Status}).Info("Order status changed from chat")
	answer(notify.StatusLabel(updated.Status))
	if err := bot.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, notify.FormatOrder(updated), notify.Keyboard(updated)); err != nil {
		entry.WithError(err).Warn("Failed to refresh order message")
	}
}
