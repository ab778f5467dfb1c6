package notify

import (
	"context"
	"sync"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// Sender posts a message to a chat
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string, keyboard *InlineKeyboard) (Message, error)
}

// Dispatcher announces new orders to the shop chat
type Dispatcher struct {
	sender  Sender
	chatID  string
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher posting to chatID. A nil sender or an
// empty chat id yields a dispatcher that does nothing.
func NewDispatcher(sender Sender, chatID string) *Dispatcher {
	return &Dispatcher{sender: sender, chatID: chatID, timeout: 15 * time.Second}
}

// FromSettings builds a dispatcher from the bot credentials in settings, or
// returns nil when they are not configured
func FromSettings(settings models.Settings, opts ...BotOption) *Dispatcher {
	if !settings.HasTelegram() {
		return nil
	}
	return NewDispatcher(NewBot(settings.Integrations.TelegramBotToken, opts...), settings.Integrations.TelegramChatID)
}

// Enabled reports whether the dispatcher will actually send anything
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.sender != nil && d.chatID != ""
}

// Dispatch sends the new-order message and waits for the result
func (d *Dispatcher) Dispatch(ctx context.Context, order models.Order) error {
	if !d.Enabled() {
		return nil
	}
	_, err := d.sender.SendMessage(ctx, d.chatID, FormatOrder(order), Keyboard(order))
	return err
}

// Fire sends the new-order message in the background. Failures are logged and
// otherwise ignored.
func (d *Dispatcher) Fire(order models.Order) {
	if !d.Enabled() {
		log.WithField("order_id", order.ID).Debug("Messaging not configured, skipping notification")
		return
	}
	order = order.Clone()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.Dispatch(ctx, order); err != nil {
			log.WithError(err).WithField("order_id", order.ID).Warn("Order notification failed")
			return
		}
		log.WithField("order_id", order.ID).Info("Order notification sent")
	}()
}

// Wait blocks until every notification started by Fire has finished
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
