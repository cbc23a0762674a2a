// Package bot is the Telegram front-end: it translates updates
// (commands, freeform text, inline-button taps) into engine calls and
// renders scenes, keyboards, and roll results back to the chat.
package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/questline/dungeonmaster/internal/game"
)

// handleTimeout bounds one update's processing, including the LLM
// round-trip.
const handleTimeout = 2 * time.Minute

// Sender is the subset of tgbotapi.BotAPI the handlers use. Tests
// substitute a recorder.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot routes Telegram updates to the game engine.
type Bot struct {
	sender    Sender
	engine    *game.Engine
	logger    *slog.Logger
	locks     *chatLocks
	creations *creationFlows
}

// New creates a bot around a sender and engine.
func New(sender Sender, engine *game.Engine, logger *slog.Logger) *Bot {
	return &Bot{
		sender:    sender,
		engine:    engine,
		logger:    logger,
		locks:     newChatLocks(),
		creations: newCreationFlows(),
	}
}

// Run consumes updates until the context is cancelled or the channel
// closes. Updates for distinct chats are handled concurrently; updates
// for the same chat are serialized by the chat lock, and a tap that
// arrives while the previous one is still processing gets a "hold on"
// answer instead of racing the state save.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.logger.Info("Bot update loop starting")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bot update loop stopping")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID, ok := updateChatID(update)
	if !ok {
		return
	}

	if !b.locks.TryAcquire(chatID) {
		b.answerBusy(update)
		return
	}

	go func() {
		defer b.locks.Release(chatID)
		hctx, cancel := context.WithTimeout(ctx, handleTimeout)
		defer cancel()
		b.handleUpdate(hctx, update)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil:
		b.handleText(ctx, update.Message)
	}
}

func updateChatID(update tgbotapi.Update) (int64, bool) {
	if update.Message != nil {
		return update.Message.Chat.ID, true
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

// answerBusy tells the player the previous move is still resolving.
func (b *Bot) answerBusy(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		callback := tgbotapi.NewCallback(update.CallbackQuery.ID, "Still resolving your last move…")
		if _, err := b.sender.Request(callback); err != nil {
			b.logger.Warn("Failed to answer busy callback", "error", err)
		}
		return
	}
	if update.Message != nil {
		b.send(update.Message.Chat.ID, "Easy there — still working on your last move.")
	}
}

// send delivers plain text, logging failures.
func (b *Bot) send(chatID int64, text string) {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

// sendMarkdown delivers Markdown-formatted text.
func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

// sendScene delivers a narrative and, when choices exist, the choice
// keyboard.
func (b *Bot) sendScene(chatID int64, scene *game.Scene) {
	if scene.Narrative != "" {
		b.send(chatID, scene.Narrative)
	}
	if len(scene.Choices) > 0 {
		msg := tgbotapi.NewMessage(chatID, "Your move:")
		msg.ReplyMarkup = choiceKeyboard(scene.SceneID, scene.Choices)
		if _, err := b.sender.Send(msg); err != nil {
			b.logger.Error("Failed to send choices", "chat_id", chatID, "error", err)
		}
	}
}
