// Package notify sends order alerts to the shop's Telegram chat and decodes the
// button presses that come back from it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the public Telegram Bot API root
const DefaultAPIURL = "https://api.telegram.org"

// InlineButton is a button attached to a message
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboard is a grid of buttons, one slice per row
type InlineKeyboard struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

// Chat identifies a conversation
type Chat struct {
	ID int64 `json:"id"`
}

// User is the Telegram account that pressed a button
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Message is a chat message as returned by the Bot API
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// CallbackQuery is delivered when someone presses an inline button
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data"`
}

// Update is the webhook payload. Only callback queries are handled.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// Bot is a minimal Telegram Bot API client
type Bot struct {
	apiURL string
	token  string
	client *http.Client
}

// BotOption configures a Bot
type BotOption func(*Bot)

// WithAPIURL points the client at another Bot API root, such as a test server
func WithAPIURL(apiURL string) BotOption {
	return func(b *Bot) {
		if apiURL != "" {
			b.apiURL = strings.TrimRight(apiURL, "/")
		}
	}
}

// WithBotHTTPClient replaces the default HTTP client
func WithBotHTTPClient(client *http.Client) BotOption {
	return func(b *Bot) {
		b.client = client
	}
}

// NewBot creates a client for the bot identified by token
func NewBot(token string, opts ...BotOption) *Bot {
	b := &Bot{
		apiURL: DefaultAPIURL,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bot) call(ctx context.Context, method string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: encode: %w", method, err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", b.apiURL, b.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		// the URL carries the token; keep it out of the error
		return fmt.Errorf("telegram %s: request failed", method)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("telegram %s: HTTP %d: malformed response", method, resp.StatusCode)
	}
	if !body.OK {
		return fmt.Errorf("telegram %s: HTTP %d: %s", method, resp.StatusCode, body.Description)
	}
	if out != nil && len(body.Result) > 0 {
		if err := json.Unmarshal(body.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// SendMessage posts an HTML message to chatID with an optional inline keyboard
func (b *Bot) SendMessage(ctx context.Context, chatID, text string, keyboard *InlineKeyboard) (Message, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}
	var msg Message
	err := b.call(ctx, "sendMessage", payload, &msg)
	return msg, err
}

// AnswerCallbackQuery acknowledges a button press, showing text as a toast
func (b *Bot) AnswerCallbackQuery(ctx context.Context, queryID, text string) error {
	payload := map[string]any{
		"callback_query_id": queryID,
		"text":              text,
	}
	return b.call(ctx, "answerCallbackQuery", payload, nil)
}

// EditMessageText replaces the text and keyboard of a message already sent
func (b *Bot) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *InlineKeyboard) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}
	return b.call(ctx, "editMessageText", payload, nil)
}
