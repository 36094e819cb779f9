// Package telegram delivers rendered messages to groups through the Bot
// API. Each message carries one inline button that copies the extracted
// code; environments whose Bot API rejects copy_text get a single retry
// with a share-link button instead.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
)

// DeliveryError reports a failed send to one group after the fallback
// attempt. Non-fatal: other groups are still attempted.
type DeliveryError struct {
	Group string
	Err   error
}

func (e *DeliveryError) Error() string { return fmt.Sprintf("deliver to %s: %v", e.Group, e.Err) }
func (e *DeliveryError) Unwrap() error { return e.Err }

// The Bot API models reply_markup loosely, so the copy_text button is a
// local payload type rather than the library's keyboard builders.
type replyMarkup struct {
	InlineKeyboard [][]button `json:"inline_keyboard"`
}

type button struct {
	Text     string       `json:"text"`
	CopyText *copyPayload `json:"copy_text,omitempty"`
	URL      string       `json:"url,omitempty"`
}

type copyPayload struct {
	Text string `json:"text"`
}

type Sender struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
}

// NewSender authenticates against the public Bot API.
func NewSender(token string, timeout time.Duration, log zerolog.Logger) (*Sender, error) {
	return NewSenderWithEndpoint(token, tgbotapi.APIEndpoint, timeout, log)
}

// NewSenderWithEndpoint targets a self-hosted (or test) Bot API server.
func NewSenderWithEndpoint(token, endpoint string, timeout time.Duration, log zerolog.Logger) (*Sender, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Sender{api: api, log: log}, nil
}

// Send delivers text to the group with a quick-copy button labelled
// copyValue. A rejected primary send is retried exactly once with the
// button's action swapped for a share link carrying the same value;
// there is never a third attempt.
func (s *Sender) Send(ctx context.Context, group models.Group, text, copyValue string) (int, error) {
	sent, err := s.api.Send(s.message(group.ChatID, text, button{
		Text:     copyValue,
		CopyText: &copyPayload{Text: copyValue},
	}))
	if err == nil {
		return sent.MessageID, nil
	}

	s.log.Debug().Err(err).Str("group", group.Name).Msg("copy button rejected, retrying with share link")
	sent, err = s.api.Send(s.message(group.ChatID, text, button{
		Text: copyValue,
		URL:  "https://t.me/share/url?url=" + url.QueryEscape(copyValue),
	}))
	if err != nil {
		return 0, &DeliveryError{Group: group.Name, Err: err}
	}
	return sent.MessageID, nil
}

func (s *Sender) message(chatID, text string, b button) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = replyMarkup{InlineKeyboard: [][]button{{b}}}
	return msg
}
