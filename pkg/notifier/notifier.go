// Package notifier delivers the daily message.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dtnitsch/lunch-bot/models"
	"github.com/dtnitsch/lunch-bot/pkg/assembler"
)

// Notifier sends one message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

var ErrNotConfigured = errors.New("telegram token or chat id missing")

// Telegram posts to a chat through the Bot API using legacy Markdown. If
// Telegram rejects the markup, the message is re-sent as plain text.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegram connects to the Bot API. endpoint may be empty for the public
// API; client may be nil.
func NewTelegram(cfg models.TelegramConfig, endpoint string, client *http.Client, logger *slog.Logger) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, ErrNotConfigured
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: cfg.ChatID, logger: logger}, nil
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.bot.Send(msg)
	if err == nil {
		return nil
	}
	if !isMarkupError(err) {
		return fmt.Errorf("failed to send message: %w", err)
	}

	t.logger.Warn("telegram rejected markdown, sending plain text", "error", err)
	plain := tgbotapi.NewMessage(t.chatID, assembler.StripEmphasis(text))
	if _, err := t.bot.Send(plain); err != nil {
		return fmt.Errorf("failed to send plain message: %w", err)
	}
	return nil
}

func isMarkupError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "can't parse entities")
}

// Writer prints messages, for dry runs. Plain strips emphasis markers.
type Writer struct {
	W     io.Writer
	Plain bool
}

func (w *Writer) Send(_ context.Context, text string) error {
	if w.Plain {
		text = assembler.StripEmphasis(text)
	}
	if _, err := fmt.Fprintln(w.W, text); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
