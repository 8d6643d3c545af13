package alerts

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Discord returns a notifier posting to one channel over the REST API. No
// gateway connection is opened.
func Discord(token, channelID string) (NotifyFunc, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: %w", err)
	}

	return func(message string) error {
		if _, err := session.ChannelMessageSend(channelID, message); err != nil {
			return fmt.Errorf("discord send to %s: %w", channelID, err)
		}
		return nil
	}, nil
}
