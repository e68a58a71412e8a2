package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"robux-bot/internal/ui"
)

// TelegramMirror forwards escalations to an operations Telegram chat so the
// team is paged even when nobody watches Discord.
type TelegramMirror struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramMirror(token string, chatID int64) (*TelegramMirror, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &TelegramMirror{bot: bot, chatID: chatID}, nil
}

func (m *TelegramMirror) Mirror(_ context.Context, esc Escalation) error {
	msg := tgbotapi.NewMessage(m.chatID, FormatPlain(esc))
	msg.DisableWebPagePreview = true
	if _, err := m.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}

// FormatPlain renders an escalation as plain text for non-Discord channels.
func FormatPlain(esc Escalation) string {
	c := esc.Cart
	var b strings.Builder
	b.WriteString(esc.Kind.Title())
	fmt.Fprintf(&b, "\nCarrinho #%d (cliente %s)", c.CartID, c.UserID)
	if c.ProductName != "" {
		fmt.Fprintf(&b, "\nProduto: %s", strings.TrimSpace(c.ProductName+" "+c.QuantityLabel))
	}
	if c.Price.IsPositive() {
		fmt.Fprintf(&b, "\nValor: %s", ui.FormatBRL(c.Price))
	}
	if c.RobloxNickname != "" {
		fmt.Fprintf(&b, "\nNick: %s", c.RobloxNickname)
	}
	if c.GamepassLink != "" {
		fmt.Fprintf(&b, "\nGamepass: %s", c.GamepassLink)
	}
	if esc.Detail != "" {
		fmt.Fprintf(&b, "\n%s", esc.Detail)
	}
	return b.String()
}
