package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/calcmentor/CalcMentor/internal/models"
)

// Constants for TelegramService configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for the event channel
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
	// DefaultPollTimeout is the long-polling timeout requested from the Bot API, in seconds
	DefaultPollTimeout = 30
)

// Opts holds configuration for the Telegram service.
type Opts struct {
	Token       string
	PollTimeout int
	Debug       bool
}

// Option configures Opts for the Telegram service.
type Option func(*Opts)

// WithToken sets the bot token.
func WithToken(token string) Option {
	return func(o *Opts) {
		o.Token = token
	}
}

// WithPollTimeout sets the long-polling timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(o *Opts) {
		o.PollTimeout = seconds
	}
}

// WithDebug enables the Bot API client's debug logging.
func WithDebug(debug bool) Option {
	return func(o *Opts) {
		o.Debug = debug
	}
}

// TelegramService implements Service using the Telegram Bot API over long
// polling.
type TelegramService struct {
	bot         *tgbotapi.BotAPI
	pollTimeout int
	events      chan models.Event
	done        chan struct{}
}

// NewTelegramService connects to the Bot API and returns a service ready
// to Start.
func NewTelegramService(opts ...Option) (*TelegramService, error) {
	var cfg Opts
	cfg.PollTimeout = DefaultPollTimeout
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		slog.Error("TelegramService failed to connect to Bot API", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug

	slog.Info("TelegramService connected", "username", bot.Self.UserName)
	return &TelegramService{
		bot:         bot,
		pollTimeout: cfg.PollTimeout,
		events:      make(chan models.Event, DefaultChannelBufferSize),
		done:        make(chan struct{}),
	}, nil
}

// ValidateAndCanonicalizeRecipient checks that the recipient is a numeric
// Telegram chat ID.
func (s *TelegramService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	trimmed := strings.TrimSpace(recipient)
	if _, err := strconv.ParseInt(trimmed, 10, 64); err != nil {
		return "", fmt.Errorf("invalid telegram chat ID %q: %w", recipient, err)
	}
	return trimmed, nil
}

// Start begins polling for updates in a background goroutine.
func (s *TelegramService) Start(ctx context.Context) error {
	slog.Debug("TelegramService Start invoked", "poll_timeout", s.pollTimeout)

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = s.pollTimeout
	updates := s.bot.GetUpdatesChan(updateCfg)

	go s.handleUpdates(ctx, updates)
	slog.Debug("TelegramService update handler started")
	return nil
}

// Stop stops polling. The event channel is closed by the update handler
// once it drains, so consumers never race a close against an in-flight
// send.
func (s *TelegramService) Stop() error {
	slog.Info("TelegramService Stop invoked")
	s.bot.StopReceivingUpdates()
	close(s.done)
	slog.Info("TelegramService stopped")
	return nil
}

// SendMessage sends a plain text message to a chat.
func (s *TelegramService) SendMessage(ctx context.Context, to string, body string) error {
	chatID, err := s.chatID(to)
	if err != nil {
		return err
	}
	slog.Debug("TelegramService SendMessage invoked", "to", to, "body_length", len(body))
	if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, body)); err != nil {
		slog.Error("TelegramService SendMessage error", "error", err, "to", to)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendMessageWithButtons sends a message with an inline keyboard, one
// button per row.
func (s *TelegramService) SendMessageWithButtons(ctx context.Context, to string, body string, buttons []models.Button) error {
	chatID, err := s.chatID(to)
	if err != nil {
		return err
	}
	slog.Debug("TelegramService SendMessageWithButtons invoked", "to", to, "buttons", len(buttons))

	msg := tgbotapi.NewMessage(chatID, body)
	if len(buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, b := range buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := s.bot.Send(msg); err != nil {
		slog.Error("TelegramService SendMessageWithButtons error", "error", err, "to", to)
		return fmt.Errorf("failed to send message with buttons: %w", err)
	}
	return nil
}

// SendTyping shows the typing indicator. Errors are logged and swallowed;
// a missing indicator should never fail the handler.
func (s *TelegramService) SendTyping(ctx context.Context, to string) error {
	chatID, err := s.chatID(to)
	if err != nil {
		return err
	}
	if _, err := s.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.Warn("TelegramService SendTyping error", "error", err, "to", to)
	}
	return nil
}

// Events returns the channel of incoming user events.
func (s *TelegramService) Events() <-chan models.Event {
	return s.events
}

func (s *TelegramService) chatID(to string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(to), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat ID %q: %w", to, err)
	}
	return id, nil
}

// handleUpdates converts Bot API updates into events until the context is
// cancelled or polling stops. It is the only sender on s.events and
// closes the channel on exit.
func (s *TelegramService) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	slog.Debug("TelegramService handleUpdates starting")
	defer close(s.events)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("TelegramService handleUpdates stopping due to context cancellation")
			return
		case <-s.done:
			slog.Debug("TelegramService handleUpdates stopping")
			return
		case update, ok := <-updates:
			if !ok {
				slog.Debug("TelegramService updates channel closed")
				return
			}
			s.handleUpdate(update)
		}
	}
}

func (s *TelegramService) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		s.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		s.handleMessage(update.Message)
	default:
		// Ignore edits, channel posts and other update kinds.
		slog.Debug("TelegramService ignoring update", "update_id", update.UpdateID)
	}
}

// handleMessage converts a text or command message into an event.
func (s *TelegramService) handleMessage(msg *tgbotapi.Message) {
	if msg.Text == "" {
		slog.Debug("TelegramService ignoring non-text message", "from", msg.Chat.ID)
		return
	}

	event := models.Event{
		From: strconv.FormatInt(msg.Chat.ID, 10),
	}
	if msg.IsCommand() {
		event.Kind = models.EventKindCommand
		event.Command = msg.Command()
	} else {
		event.Kind = models.EventKindText
		event.Body = msg.Text
	}

	s.forward(event)
}

// handleCallback converts a button press into an event. The callback is
// answered immediately so the client stops showing a spinner.
func (s *TelegramService) handleCallback(query *tgbotapi.CallbackQuery) {
	if _, err := s.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		slog.Warn("TelegramService callback answer failed", "error", err)
	}
	if query.Message == nil {
		slog.Debug("TelegramService ignoring callback without message", "data", query.Data)
		return
	}

	s.forward(models.Event{
		Kind:       models.EventKindButton,
		From:       strconv.FormatInt(query.Message.Chat.ID, 10),
		ActionData: query.Data,
	})
}

// forward sends the event to the channel (non-blocking). Events arriving
// after Stop are dropped.
func (s *TelegramService) forward(event models.Event) {
	select {
	case <-s.done:
		slog.Debug("TelegramService dropping event after stop", "kind", event.Kind, "from", event.From)
	case s.events <- event:
		slog.Debug("TelegramService event forwarded", "kind", event.Kind, "from", event.From)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TelegramService events channel blocked, dropping event", "kind", event.Kind, "from", event.From, "timeout", DefaultChannelTimeout)
	}
}
