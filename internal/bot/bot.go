// Package bot connects the game server to Telegram: it announces session
// events to the configured chat and answers score queries.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telefunken-server/internal/config"
	"telefunken-server/internal/game/telefunken"
	"telefunken-server/internal/model"
)

// SessionLookup is the read side of the session service used by commands.
type SessionLookup interface {
	FindByCode(ctx context.Context, code string) (*model.GameSession, error)
}

// Bot wraps the telebot instance with the announcer and command handlers.
type Bot struct {
	bot       *tele.Bot
	commands  *Commands
	announcer *Announcer

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Bot instance for the configured chat.
func New(cfg config.TelegramConfig, sessions SessionLookup) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		bot:       teleBot,
		commands:  NewCommands(sessions),
		announcer: NewAnnouncer(teleBot, cfg.ChatID, cfg.Buffer),
		ctx:       ctx,
		cancel:    cancel,
	}

	b.registerMiddleware(cfg.ChatID)
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware(chatID int64) {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(ChatMiddleware(chatID))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/score", func(c tele.Context) error {
		return c.Reply(b.commands.Score(b.ctx, c.Args()))
	})
	b.bot.Handle("/rounds", func(c tele.Context) error {
		return c.Reply(b.commands.Rounds())
	})
}

// Announcer returns the notifier that posts to the configured chat.
func (b *Bot) Announcer() *Announcer {
	return b.announcer
}

// Start starts the announcer and blocks polling for commands.
func (b *Bot) Start() {
	log.Info().Msg("Starting Telegram bot...")
	go b.announcer.Run(b.ctx)
	b.bot.Start()
}

// Stop stops polling and the announcer.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping Telegram bot...")
	b.bot.Stop()
	b.cancel()
}

// Commands renders replies to chat commands.
type Commands struct {
	sessions SessionLookup
}

// NewCommands creates a new Commands instance.
func NewCommands(sessions SessionLookup) *Commands {
	return &Commands{sessions: sessions}
}

// Score answers /score <code> with the standings of that game.
func (c *Commands) Score(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "Usage: /score <game code>"
	}
	code := strings.ToUpper(strings.TrimSpace(args[0]))

	s, err := c.sessions.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, telefunken.ErrNotFound) {
			return fmt.Sprintf("No game with code %s", code)
		}
		log.Error().Err(err).Str("session_code", code).Msg("Failed to look up session")
		return "Something went wrong, please try again later"
	}
	return FormatStandings(s)
}

// Rounds answers /rounds with the fixed round sequence.
func (c *Commands) Rounds() string {
	names := telefunken.RoundNames()
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("%d. %s", i+1, name)
	}
	return "Rounds:\n" + strings.Join(lines, "\n")
}
