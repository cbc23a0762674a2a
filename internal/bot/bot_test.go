package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/questline/dungeonmaster/internal/game"
	"github.com/questline/dungeonmaster/internal/services"
	"github.com/questline/dungeonmaster/internal/storage"
)

// recorderSender captures everything the bot sends.
type recorderSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (r *recorderSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, c)
	return tgbotapi.Message{MessageID: len(r.sent)}, nil
}

func (r *recorderSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// messages returns the plain messages sent so far.
func (r *recorderSender) messages() []tgbotapi.MessageConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range r.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

// callbacks returns the callback answers sent so far.
func (r *recorderSender) callbacks() []tgbotapi.CallbackConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range r.sent {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

func newTestBot(t *testing.T) (*Bot, *recorderSender, *storage.MockStorage) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMockStorage()
	engine := game.New(&services.MockLLM{}, store, nil, logger)
	sender := &recorderSender{}
	return New(sender, engine, logger), sender, store
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	cmdLen := len(strings.Fields(text)[0])
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}}
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

// runCreation walks a chat through /start and the five creation
// questions.
func runCreation(t *testing.T, b *Bot, chatID int64) {
	t.Helper()
	ctx := context.Background()
	b.handleUpdate(ctx, commandUpdate(chatID, "/start"))
	for _, answer := range []string{"Mira", "elf", "rogue", "clear her name", "fantasy"} {
		b.handleUpdate(ctx, textUpdate(chatID, answer))
	}
}

func TestBot_StartBeginsCreation(t *testing.T) {
	b, sender, _ := newTestBot(t)

	b.handleUpdate(context.Background(), commandUpdate(42, "/start"))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "name") {
		t.Errorf("expected the first creation question, got %q", msgs[0].Text)
	}
}

func TestBot_CreationFlowStartsAdventure(t *testing.T) {
	b, sender, store := newTestBot(t)

	runCreation(t, b, 42)

	gs, err := store.LoadGameState(context.Background(), 42)
	if err != nil || gs == nil {
		t.Fatalf("adventure not saved: %v", err)
	}
	if gs.Character.Sheet.Name != "Mira" || gs.Genre != "fantasy" {
		t.Errorf("unexpected state: %+v", gs)
	}

	// The final burst carries the sheet, the narrative, and the choices
	// keyboard.
	msgs := sender.messages()
	var sawKeyboard bool
	for _, msg := range msgs {
		if _, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			sawKeyboard = true
		}
	}
	if !sawKeyboard {
		t.Error("expected a choice keyboard after the opening scene")
	}
}

func TestBot_ChoiceCallbackOffersRoll(t *testing.T) {
	b, sender, store := newTestBot(t)
	ctx := context.Background()
	runCreation(t, b, 42)

	gs, _ := store.LoadGameState(ctx, 42)
	sceneID := gs.ChoiceBuffer.SceneID

	b.handleUpdate(ctx, callbackUpdate(42, choiceCallbackData(sceneID, 0)))

	msgs := sender.messages()
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Text, "You chose") {
		t.Errorf("expected a selection confirmation, got %q", last.Text)
	}
	kb, ok := last.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatal("expected a roll keyboard")
	}
	data := kb.InlineKeyboard[0][0].CallbackData
	if data == nil || *data != rollCallbackData(sceneID) {
		t.Errorf("roll callback data = %v", data)
	}
}

func TestBot_StaleChoiceRejected(t *testing.T) {
	b, sender, store := newTestBot(t)
	ctx := context.Background()
	runCreation(t, b, 42)

	before := len(sender.messages())
	b.handleUpdate(ctx, callbackUpdate(42, choiceCallbackData("stale-scene", 0)))

	cbs := sender.callbacks()
	if len(cbs) == 0 {
		t.Fatal("expected a callback answer")
	}
	lastCb := cbs[len(cbs)-1]
	if !strings.Contains(lastCb.Text, "latest options") {
		t.Errorf("expected a pick-again answer, got %q", lastCb.Text)
	}
	if len(sender.messages()) != before {
		t.Error("a stale tap must not produce new messages")
	}

	gs, _ := store.LoadGameState(ctx, 42)
	if gs.PendingChoice != nil {
		t.Error("a stale tap must not mutate state")
	}
}

func TestBot_RollCallbackResolves(t *testing.T) {
	b, sender, store := newTestBot(t)
	ctx := context.Background()
	runCreation(t, b, 42)

	gs, _ := store.LoadGameState(ctx, 42)
	sceneID := gs.ChoiceBuffer.SceneID
	b.handleUpdate(ctx, callbackUpdate(42, choiceCallbackData(sceneID, 0)))
	b.handleUpdate(ctx, callbackUpdate(42, rollCallbackData(sceneID)))

	var sawBreakdown bool
	for _, msg := range sender.messages() {
		if strings.Contains(msg.Text, "vs DC") {
			sawBreakdown = true
		}
	}
	if !sawBreakdown {
		t.Error("expected a roll breakdown message")
	}

	gs, _ = store.LoadGameState(ctx, 42)
	if gs.PendingChoice != nil {
		t.Error("roll should clear the pending choice")
	}
	if gs.ChoiceBuffer.SceneID == sceneID {
		t.Error("roll should mint a fresh scene id")
	}
}

func TestBot_CommandsWithoutGame(t *testing.T) {
	b, sender, _ := newTestBot(t)
	ctx := context.Background()

	for _, cmd := range []string{"/sheet", "/roll", "/mode advantage", "/boost strength 2"} {
		b.handleUpdate(ctx, commandUpdate(42, cmd))
	}

	for _, msg := range sender.messages() {
		if !strings.Contains(msg.Text, "/start") && !strings.Contains(msg.Text, "nothing to roll") {
			t.Errorf("expected a no-game hint, got %q", msg.Text)
		}
	}
}

func TestBot_ModeCommand(t *testing.T) {
	b, sender, store := newTestBot(t)
	ctx := context.Background()
	runCreation(t, b, 42)

	b.handleUpdate(ctx, commandUpdate(42, "/mode advantage"))

	gs, _ := store.LoadGameState(ctx, 42)
	if string(gs.RollMode) != "advantage" {
		t.Errorf("roll mode = %q", gs.RollMode)
	}

	b.handleUpdate(ctx, commandUpdate(42, "/mode sideways"))
	msgs := sender.messages()
	if !strings.Contains(msgs[len(msgs)-1].Text, "not a roll mode") {
		t.Errorf("expected a mode error, got %q", msgs[len(msgs)-1].Text)
	}
}

func TestBot_BoostCommand_RejectsUnknownAbility(t *testing.T) {
	b, sender, store := newTestBot(t)
	ctx := context.Background()
	runCreation(t, b, 42)

	before, _ := store.LoadGameState(ctx, 42)
	str := before.Character.Sheet.Stats.Strength

	b.handleUpdate(ctx, commandUpdate(42, "/boost juggling 2"))

	msgs := sender.messages()
	if !strings.Contains(msgs[len(msgs)-1].Text, "isn't an ability or skill") {
		t.Errorf("expected an unknown-ability error, got %q", msgs[len(msgs)-1].Text)
	}

	// The old behavior silently boosted Strength.
	after, _ := store.LoadGameState(ctx, 42)
	if after.Character.Sheet.Stats.Strength != str {
		t.Errorf("STR changed from %d to %d", str, after.Character.Sheet.Stats.Strength)
	}
}

func TestBot_ResetCommand(t *testing.T) {
	b, _, store := newTestBot(t)
	ctx := context.Background()
	runCreation(t, b, 42)

	b.handleUpdate(ctx, commandUpdate(42, "/reset"))

	gs, _ := store.LoadGameState(ctx, 42)
	if gs != nil {
		t.Error("reset should delete the save")
	}
}

func TestBot_BusyChatGetsHoldOn(t *testing.T) {
	b, sender, _ := newTestBot(t)

	if !b.locks.TryAcquire(42) {
		t.Fatal("failed to acquire lock")
	}
	defer b.locks.Release(42)

	b.dispatch(context.Background(), textUpdate(42, "I open the door"))

	msgs := sender.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "still working") {
		t.Errorf("expected a hold-on message, got %+v", msgs)
	}
}
