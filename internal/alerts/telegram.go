package alerts

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram returns a notifier posting to one chat.
func Telegram(token string, chatID int64) (NotifyFunc, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	return func(message string) error {
		if _, err := api.Send(tgbotapi.NewMessage(chatID, message)); err != nil {
			return fmt.Errorf("telegram send to %d: %w", chatID, err)
		}
		return nil
	}, nil
}
