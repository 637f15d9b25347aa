package bot

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// Sender is the part of *tele.Bot the announcer needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Announcer posts formatted session events to one Telegram chat. Broadcast
// only queues; Run does the sending.
type Announcer struct {
	sender Sender
	chat   tele.Recipient
	queue  chan string
}

// NewAnnouncer creates an Announcer posting to chatID.
func NewAnnouncer(sender Sender, chatID int64, buffer int) *Announcer {
	if buffer <= 0 {
		buffer = 64
	}
	return &Announcer{
		sender: sender,
		chat:   tele.ChatID(chatID),
		queue:  make(chan string, buffer),
	}
}

// Broadcast queues the event if it has a chat rendering. A full queue
// drops the message.
func (a *Announcer) Broadcast(room, event string, payload any) {
	text, ok := FormatEvent(event, payload)
	if !ok {
		return
	}
	select {
	case a.queue <- text:
	default:
		log.Warn().Str("room", room).Str("event", event).Msg("Announcement queue full, dropping message")
	}
}

// Run sends queued messages until ctx is done.
func (a *Announcer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-a.queue:
			if _, err := a.sender.Send(a.chat, text); err != nil {
				log.Error().Err(err).Str("chat", a.chat.Recipient()).Msg("Failed to send announcement")
			}
		}
	}
}
