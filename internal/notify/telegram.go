// Package notify delivers operational notifications to the chapter admins
// over Telegram. The notifier is optional: without a token every method is
// a no-op so callers never need to branch on configuration.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New creates a Telegram notifier. An empty token or zero chat ID yields a
// disabled notifier.
func New(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return &Notifier{}, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Printf("Notifier authorized as @%s", api.Self.UserName)

	return &Notifier{api: api, chatID: chatID}, nil
}

func (n *Notifier) Enabled() bool {
	return n.api != nil
}

func (n *Notifier) SendMessage(text string) error {
	if n.api == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "HTML"
	_, err := n.api.Send(msg)
	return err
}

// SyncReport sends the outcome of one sync pass. Failures are logged, not
// returned: a broken notifier must never fail a sync.
func (n *Notifier) SyncReport(synced, skipped int, syncErr error) {
	if n.api == nil {
		return
	}

	var text string
	if syncErr != nil {
		text = fmt.Sprintf("⚠️ <b>Calendar sync failed</b>\n\n%v", syncErr)
	} else if skipped > 0 {
		text = fmt.Sprintf("📅 Calendar sync: %d synced, <b>%d skipped</b>", synced, skipped)
	} else {
		return // quiet on fully clean passes
	}

	if err := n.SendMessage(text); err != nil {
		log.Printf("Error sending sync report: %v", err)
	}
}
