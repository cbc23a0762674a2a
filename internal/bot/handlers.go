package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/questline/dungeonmaster/internal/game"
	"github.com/questline/dungeonmaster/pkg/rules"
	"github.com/questline/dungeonmaster/pkg/state"
)

const helpText = `I'm your Dungeon Master. Tell me what your hero does and I'll narrate what happens.

/start - begin a new adventure (replaces the current one)
/sheet - show your character sheet
/ask <question> - ask me something out of character
/roll - roll for your pending choice
/mode <normal|advantage|disadvantage> - set how d20s are rolled
/boost <ability> <amount> - adjust an ability score
/reset - abandon the adventure
/help - this message

Anything else you type is what your hero does.`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.creations.begin(chatID)
		fl, _ := b.creations.get(chatID)
		b.send(chatID, fl.prompt())
	case "help":
		b.send(chatID, helpText)
	case "ask":
		if args == "" {
			b.send(chatID, "Ask me something, e.g. /ask what does the sigil mean?")
			return
		}
		answer, err := b.engine.Ask(ctx, chatID, args)
		if err != nil {
			b.sendEngineError(chatID, err)
			return
		}
		b.send(chatID, answer)
	case "roll":
		b.doRoll(ctx, chatID)
	case "mode":
		b.handleMode(ctx, chatID, args)
	case "boost":
		b.handleBoost(ctx, chatID, args)
	case "sheet":
		gs, err := b.engine.State(ctx, chatID)
		if err != nil {
			b.sendEngineError(chatID, err)
			return
		}
		b.sendMarkdown(chatID, formatSheet(gs))
	case "reset":
		b.creations.finish(chatID)
		if err := b.engine.Reset(ctx, chatID); err != nil {
			b.logger.Error("Failed to reset game", "chat_id", chatID, "error", err)
			b.send(chatID, "Something went wrong abandoning the adventure. Try again.")
			return
		}
		b.send(chatID, "The adventure fades into legend. /start when you're ready for a new one.")
	default:
		b.send(chatID, "I don't know that command. /help lists what I understand.")
	}
}

func (b *Bot) handleMode(ctx context.Context, chatID int64, args string) {
	if args == "" {
		gs, err := b.engine.State(ctx, chatID)
		if err != nil {
			b.sendEngineError(chatID, err)
			return
		}
		b.send(chatID, fmt.Sprintf("Rolls are currently made at %s. Use /mode normal, /mode advantage, or /mode disadvantage.", gs.RollMode))
		return
	}

	mode, err := rules.ParseRollMode(args)
	if err != nil {
		b.send(chatID, "That's not a roll mode I know. Use normal, advantage, or disadvantage.")
		return
	}
	if err := b.engine.SetRollMode(ctx, chatID, mode); err != nil {
		b.sendEngineError(chatID, err)
		return
	}
	b.send(chatID, fmt.Sprintf("Got it. All rolls are now made at %s.", mode))
}

func (b *Bot) handleBoost(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.send(chatID, "Usage: /boost <ability> <amount>, e.g. /boost strength 2")
		return
	}
	delta, err := strconv.Atoi(fields[1])
	if err != nil {
		b.send(chatID, fmt.Sprintf("%q isn't a number I can apply.", fields[1]))
		return
	}

	abbr, err := rules.ParseAbility(fields[0])
	if err != nil {
		b.send(chatID, fmt.Sprintf("%q isn't an ability or skill I know.", fields[0]))
		return
	}

	gs, err := b.engine.Boost(ctx, chatID, fields[0], delta)
	if err != nil {
		b.sendEngineError(chatID, err)
		return
	}
	b.send(chatID, fmt.Sprintf("%s's %s is now %d.", gs.Character.Sheet.Name, abbr, gs.Character.Sheet.Score(abbr)))
}

// handleText routes freeform text: mid-creation answers feed the
// creation flow, everything else is a story action.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if fl, ok := b.creations.get(chatID); ok {
		b.handleCreationAnswer(ctx, chatID, fl, text)
		return
	}

	scene, err := b.engine.Action(ctx, chatID, text)
	if err != nil {
		b.sendEngineError(chatID, err)
		return
	}
	b.sendScene(chatID, scene)
}

func (b *Bot) handleCreationAnswer(ctx context.Context, chatID int64, fl *creation, answer string) {
	if !fl.advance(answer) {
		b.send(chatID, fl.prompt())
		return
	}
	b.creations.finish(chatID)

	sheet := fl.buildSheet(b.engine.Roller())
	b.send(chatID, "Rolling up your hero…")

	scene, err := b.engine.StartAdventure(ctx, chatID, sheet, fl.genre)
	if err != nil {
		b.logger.Error("Failed to start adventure", "chat_id", chatID, "error", err)
		b.send(chatID, "The adventure failed to take shape. /start to try again.")
		return
	}

	gs, err := b.engine.State(ctx, chatID)
	if err == nil {
		b.sendMarkdown(chatID, formatSheet(gs))
	}
	b.sendScene(chatID, scene)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	payload, err := parseCallbackData(cq.Data)
	if err != nil {
		b.logger.Warn("Bad callback data", "chat_id", chatID, "data", cq.Data, "error", err)
		b.answerCallback(cq.ID, "That button has expired.")
		return
	}

	switch payload.Kind {
	case callbackChoice:
		choice, err := b.engine.SelectChoice(ctx, chatID, payload.SceneID, payload.Index)
		if err != nil {
			b.answerCallback(cq.ID, b.rejectionText(err))
			return
		}
		b.answerCallback(cq.ID, "")
		b.clearKeyboard(chatID, cq.Message.MessageID)

		text := fmt.Sprintf("You chose: %s\n\nDC %d %s check. Ready?", choice.Text, choice.DC, choice.Ability)
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = rollKeyboard(payload.SceneID)
		if _, err := b.sender.Send(msg); err != nil {
			b.logger.Error("Failed to send roll prompt", "chat_id", chatID, "error", err)
		}
	case callbackRoll:
		b.answerCallback(cq.ID, "")
		b.clearKeyboard(chatID, cq.Message.MessageID)
		b.doRoll(ctx, chatID)
	}
}

// doRoll resolves the pending choice and renders the result. Shared by
// the roll button and the /roll command.
func (b *Bot) doRoll(ctx context.Context, chatID int64) {
	outcome, err := b.engine.Roll(ctx, chatID)
	if err != nil {
		b.sendEngineError(chatID, err)
		return
	}

	b.sendMarkdown(chatID, formatCheck(outcome.Check))
	b.send(chatID, outcome.Narrative)
	if outcome.LevelsGained > 0 {
		b.sendMarkdown(chatID, fmt.Sprintf("🎉 *Level up!* You are now level %d (HP %d/%d).",
			outcome.NewLevel, outcome.HP, outcome.MaxHP))
	}
	if len(outcome.Scene.Choices) > 0 {
		msg := tgbotapi.NewMessage(chatID, "Your move:")
		msg.ReplyMarkup = choiceKeyboard(outcome.Scene.SceneID, outcome.Scene.Choices)
		if _, err := b.sender.Send(msg); err != nil {
			b.logger.Error("Failed to send choices", "chat_id", chatID, "error", err)
		}
	}
}

// rejectionText maps selection errors to a short callback answer.
func (b *Bot) rejectionText(err error) string {
	switch {
	case errors.Is(err, state.ErrStaleScene), errors.Is(err, state.ErrChoiceOutOfRange):
		return "That choice isn't on the table anymore. Pick from the latest options."
	case errors.Is(err, game.ErrNoGame):
		return "No adventure in progress. Send /start first."
	}
	return "Something went wrong. Try again."
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Warn("Failed to answer callback", "error", err)
	}
}

// clearKeyboard removes the inline keyboard from a sent message so the
// same buttons can't be tapped twice.
func (b *Bot) clearKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.sender.Request(edit); err != nil {
		b.logger.Debug("Failed to clear keyboard", "chat_id", chatID, "error", err)
	}
}

// sendEngineError translates engine errors into player-facing text.
func (b *Bot) sendEngineError(chatID int64, err error) {
	switch {
	case errors.Is(err, game.ErrNoGame):
		b.send(chatID, "No adventure in progress. Send /start to begin one.")
	case errors.Is(err, state.ErrNoPendingChoice):
		b.send(chatID, "There's nothing to roll for. Pick one of the options first.")
	case errors.Is(err, state.ErrStaleScene), errors.Is(err, state.ErrChoiceOutOfRange):
		b.send(chatID, "That choice isn't on the table anymore. Pick from the latest options.")
	default:
		b.logger.Error("Engine call failed", "chat_id", chatID, "error", err)
		b.send(chatID, "Something went wrong behind the DM screen. Try that again.")
	}
}
