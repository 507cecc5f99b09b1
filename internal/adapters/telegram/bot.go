package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bnema/volumebot/internal/application"
	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const updateTimeout = 60

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Handler interface {
	Handle(ctx context.Context, ev application.Event) error
}

// Bot is both the presenter and the inbound update loop. It keeps one
// panel message per chat and edits it in place.
type Bot struct {
	api    API
	logger logrus.FieldLogger

	mu     sync.Mutex
	panels map[domain.SessionID]int
}

var _ ports.Presenter = (*Bot)(nil)

func NewBot(api API, logger logrus.FieldLogger) *Bot {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bot{api: api, logger: logger, panels: map[domain.SessionID]int{}}
}

func (b *Bot) PushSummary(ctx context.Context, id domain.SessionID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keyboard := inlineKeyboard(application.PanelActions())

	b.mu.Lock()
	messageID, ok := b.panels[id]
	b.mu.Unlock()

	if ok {
		edit := tgbotapi.NewEditMessageTextAndMarkup(int64(id), messageID, text, keyboard)
		edit.ParseMode = tgbotapi.ModeMarkdown
		_, err := b.api.Request(edit)
		if err == nil || isNotModified(err) {
			return nil
		}
		b.logger.WithError(err).WithField("session", id).Debug("edit panel failed; sending a new one")
	}

	msg := tgbotapi.NewMessage(int64(id), text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboard
	sent, err := b.api.Send(msg)
	if err != nil {
		return fmt.Errorf("send panel: %w", err)
	}

	b.mu.Lock()
	b.panels[id] = sent.MessageID
	b.mu.Unlock()

	return nil
}

func (b *Bot) Prompt(ctx context.Context, id domain.SessionID, text string, choices []domain.Choice) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(int64(id), text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if len(choices) > 0 {
		msg.ReplyMarkup = inlineKeyboard([][]domain.Choice{choices})
	}

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Run feeds updates to h until ctx is cancelled, then waits for in-flight
// handlers.
func (b *Bot) Run(ctx context.Context, h Handler) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeout
	updates := b.api.GetUpdatesChan(cfg)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := b.toEvent(update)
			if !ok {
				continue
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := h.Handle(ctx, ev); err != nil {
					b.logger.WithError(err).WithField("session", ev.SessionID).Warn("handle update")
				}
			}()
		}
	}
}

func (b *Bot) toEvent(update tgbotapi.Update) (application.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.logger.WithError(err).Debug("ack callback")
		}
		if cb.Message == nil || cb.Message.Chat == nil {
			return application.Event{}, false
		}
		return application.Event{
			SessionID: domain.SessionID(cb.Message.Chat.ID),
			Username:  username(cb.From),
			Action:    cb.Data,
		}, true
	case update.Message != nil && update.Message.Chat != nil:
		msg := update.Message
		return application.Event{
			SessionID: domain.SessionID(msg.Chat.ID),
			Username:  username(msg.From),
			Text:      msg.Text,
		}, true
	default:
		return application.Event{}, false
	}
}

func inlineKeyboard(rows [][]domain.Choice) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, choice := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Action))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func username(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.UserName
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
