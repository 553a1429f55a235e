// Package alert posts operator notifications to a Discord channel. The
// notifier is optional: a nil *Notifier is a no-op, so callers never need to
// branch on whether alerts are configured.
package alert

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

type Notifier struct {
	session   *discordgo.Session
	channelID string
}

// New connects to Discord. Returns (nil, nil) when token or channel is
// empty, which disables alerts.
func New(token, channelID string) (*Notifier, error) {
	if token == "" || channelID == "" {
		return nil, nil
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("alert: create discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("alert: open discord session: %w", err)
	}
	return &Notifier{session: session, channelID: channelID}, nil
}

func (n *Notifier) Close() {
	if n == nil {
		return
	}
	if err := n.session.Close(); err != nil {
		log.Printf("alert: close discord session: %v", err)
	}
}

// Notify posts one message tagged with its topic. Fire and forget: failures
// are logged, never surfaced to the conversation.
func (n *Notifier) Notify(topic, text string) {
	if n == nil {
		return
	}
	if _, err := n.session.ChannelMessageSend(n.channelID, fmt.Sprintf("[%s] %s", topic, text)); err != nil {
		log.Printf("alert: send to %s: %v", n.channelID, err)
	}
}

// Alert satisfies the retry orchestrator's alerter.
func (n *Notifier) Alert(text string) {
	n.Notify("alertas", text)
}
