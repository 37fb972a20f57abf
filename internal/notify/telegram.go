// Package notify forwards relevant posts to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hyperjump/postscout/internal/models"
	"github.com/hyperjump/postscout/pkg/utils"
	"go.uber.org/zap"
)

// Sender sends one Telegram message; *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends one message per relevant post.
type Telegram struct {
	sender Sender
	chatID int64
	logger *zap.Logger
}

// NewTelegram connects to the Bot API with token.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram requires a bot token and chat id")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewTelegramWithSender(api, chatID, logger), nil
}

// NewTelegramWithSender builds a notifier over an existing sender.
func NewTelegramWithSender(sender Sender, chatID int64, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{sender: sender, chatID: chatID, logger: logger}
}

// Notify sends every post of result. Send failures are logged and counted, never returned.
func (t *Telegram) Notify(ctx context.Context, result *models.RunResult) (sent, failed int) {
	for _, p := range result.Posts {
		if ctx.Err() != nil {
			failed += len(result.Posts) - sent - failed
			break
		}
		msg := tgbotapi.NewMessage(t.chatID, FormatPost(p))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.sender.Send(msg); err != nil {
			failed++
			t.logger.Warn("telegram send failed", zap.String("post_id", p.ID), zap.Error(err))
			continue
		}
		sent++
	}
	t.logger.Info("telegram notifications sent", zap.Int("sent", sent), zap.Int("failed", failed))
	return sent, failed
}

// FormatPost renders a post as a Telegram HTML message.
func FormatPost(p models.Post) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(p.Title))
	b.WriteString("</b>\n")
	b.WriteString(fmt.Sprintf("r/%s · %s · %.2f (%s)\n",
		html.EscapeString(p.Source), html.EscapeString(p.Context), p.Score, html.EscapeString(p.BestKeyword)))
	b.WriteString(fmt.Sprintf("⬆ %d  💬 %d\n", p.Upvotes, p.Comments))
	if c := strings.TrimSpace(p.Content); c != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(utils.Truncate(c, 300)))
		b.WriteString("\n")
	}
	if p.Response != "" {
		b.WriteString("\n<i>")
		b.WriteString(html.EscapeString(p.Response))
		b.WriteString("</i>\n")
	}
	b.WriteString(fmt.Sprintf("\n<a href=\"%s\">Open post</a>", html.EscapeString(p.URL)))
	return b.String()
}
