// Package bot is the Discord front-end: it receives operator commands in a
// single configured channel, relays pipeline notifications back, and answers
// the workflow's prompts with channel replies.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"shortsbot/config"
	"shortsbot/media"
	"shortsbot/progress"
	"shortsbot/workflow"
)

// messenger is the slice of discordgo.Session the bot sends through.
type messenger interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bot wires a Discord session to the workflow driver. It implements the
// workflow Notifier and Prompter ports.
type Bot struct {
	cfg     *config.Config
	store   *progress.Store
	folders media.Folders
	driver  *workflow.Driver
	log     *slog.Logger
	online  bool

	session *discordgo.Session
	send    messenger
	ready   atomic.Bool

	// requestEnd asks the process to shut down (the !end command).
	requestEnd func()

	mu      sync.Mutex
	waiters []*waiter

	probeDuration func(ctx context.Context, path string) (float64, error)
	now           func() time.Time
}

// waiter is one pending Prompter.Await call. The first channel message that
// passes accept resolves it.
type waiter struct {
	accept func(string) bool
	reply  chan string
}

// New creates the bot from DISCORD_BOT_TOKEN and registers its handlers. The
// session is not opened yet; attach the driver with AttachDriver, then Open.
func New(cfg *config.Config, store *progress.Store, folders media.Folders, online bool, requestEnd func(), logger *slog.Logger) (*Bot, error) {
	token := os.Getenv("DISCORD_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("discord: DISCORD_BOT_TOKEN is not set")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	b := &Bot{
		cfg:           cfg,
		store:         store,
		folders:       folders,
		log:           logger.With("component", "bot"),
		online:        online,
		session:       session,
		send:          session,
		requestEnd:    requestEnd,
		probeDuration: media.Duration,
		now:           time.Now,
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	return b, nil
}

// AttachDriver binds the workflow driver the commands act on. The bot and
// the workflow depend on each other (the workflow notifies through the bot),
// so the driver is attached after both are constructed.
func (b *Bot) AttachDriver(driver *workflow.Driver) {
	b.driver = driver
}

// Open connects to the Discord gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	return nil
}

// Close posts the shutdown notice and disconnects.
func (b *Bot) Close() {
	if b.ready.Load() {
		b.Notify("🔌 Bot is shutting down.")
	}
	if err := b.session.Close(); err != nil {
		b.log.Error("discord session close failed", "error", err)
	}
}

func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	if b.online {
		b.Notify("✅ **Bot is online.** Uploads are enabled.")
	} else {
		b.Notify("⚠️ **Bot is online in OFFLINE mode.** Clips are produced but nothing is uploaded.")
	}
	if err := s.UpdateWatchStatus(0, "the upload queue"); err != nil {
		b.log.Warn("could not set presence", "error", err)
	}
	b.ready.Store(true)
	b.log.Info("discord gateway ready", "channel", b.cfg.Bot.ChannelID, "online", b.online)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}
	b.HandleMessage(m.ChannelID, m.Content)
}

// HandleMessage routes one incoming channel message: commands to the
// dispatcher, everything else to a pending prompt.
func (b *Bot) HandleMessage(channelID, content string) {
	if channelID != b.cfg.Bot.ChannelID {
		return
	}
	if !b.ready.Load() {
		return
	}
	if cmd, args, ok := b.parseCommand(content); ok {
		b.dispatch(cmd, args)
		return
	}
	b.deliverReply(content)
}

// deliverReply hands the message to the oldest waiter that accepts it.
// Messages no waiter accepts are dropped.
func (b *Bot) deliverReply(content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, w := range b.waiters {
		if w.accept(content) {
			w.reply <- content
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			return
		}
	}
}

// Notify posts a message to the control channel.
func (b *Bot) Notify(text string) {
	if _, err := b.send.ChannelMessageSend(b.cfg.Bot.ChannelID, text); err != nil {
		b.log.Error("could not send channel message", "error", err)
	}
}

// NotifyProgress posts a message and returns a handle that edits it in place.
func (b *Bot) NotifyProgress(text string) workflow.ProgressHandle {
	msg, err := b.send.ChannelMessageSend(b.cfg.Bot.ChannelID, text)
	if err != nil {
		b.log.Error("could not send progress message", "error", err)
		return &progressMessage{bot: b}
	}
	return &progressMessage{bot: b, messageID: msg.ID, last: text}
}

// progressMessage edits a single Discord message. Edits are rate limited so a
// chatty ffmpeg progress stream does not hammer the API.
type progressMessage struct {
	bot       *Bot
	messageID string

	mu       sync.Mutex
	last     string
	lastEdit time.Time
}

func (p *progressMessage) Update(text string) {
	if p.messageID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if text == p.last || time.Since(p.lastEdit) < time.Second {
		return
	}
	if _, err := p.bot.send.ChannelMessageEdit(p.bot.cfg.Bot.ChannelID, p.messageID, text); err != nil {
		p.bot.log.Warn("could not edit progress message", "error", err)
		return
	}
	p.last = text
	p.lastEdit = time.Now()
}

// Await posts a prompt and blocks for the first channel reply that passes
// accept. ok is false on timeout or context cancellation.
func (b *Bot) Await(ctx context.Context, prompt string, accept func(string) bool, timeout time.Duration) (string, bool) {
	b.Notify(prompt)

	w := &waiter{accept: accept, reply: make(chan string, 1)}
	b.mu.Lock()
	b.waiters = append(b.waiters, w)
	b.mu.Unlock()
	defer b.removeWaiter(w)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-w.reply:
		return reply, true
	case <-timer.C:
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

func (b *Bot) removeWaiter(w *waiter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, cur := range b.waiters {
		if cur == w {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			return
		}
	}
}
