package bot

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/questline/dungeonmaster/pkg/rules"
	"github.com/questline/dungeonmaster/pkg/state"
)

// Callback payload prefixes. The scene id rides along so a tap on an
// outdated keyboard is detected server-side.
const (
	callbackChoice = "choice"
	callbackRoll   = "roll"
)

// buttonTextLimit keeps choice labels within Telegram's button width.
const buttonTextLimit = 60

// choiceCallbackData encodes "choice|<scene_id>|<index>".
func choiceCallbackData(sceneID string, index int) string {
	return fmt.Sprintf("%s|%s|%d", callbackChoice, sceneID, index)
}

// rollCallbackData encodes "roll|<scene_id>".
func rollCallbackData(sceneID string) string {
	return fmt.Sprintf("%s|%s", callbackRoll, sceneID)
}

// callbackPayload is a parsed inline-button payload.
type callbackPayload struct {
	Kind    string
	SceneID string
	Index   int
}

// parseCallbackData decodes an inline-button payload. Unknown shapes
// are an error; the handler answers "pick again" rather than guessing.
func parseCallbackData(data string) (callbackPayload, error) {
	parts := strings.Split(data, "|")
	switch {
	case len(parts) == 3 && parts[0] == callbackChoice:
		index, err := strconv.Atoi(parts[2])
		if err != nil {
			return callbackPayload{}, fmt.Errorf("bad choice index %q: %w", parts[2], err)
		}
		return callbackPayload{Kind: callbackChoice, SceneID: parts[1], Index: index}, nil
	case len(parts) == 2 && parts[0] == callbackRoll:
		return callbackPayload{Kind: callbackRoll, SceneID: parts[1]}, nil
	}
	return callbackPayload{}, fmt.Errorf("unrecognized callback data %q", data)
}

// truncateLabel shortens a choice label to at most limit bytes without
// splitting a multi-byte rune; Telegram rejects invalid UTF-8 in
// button text.
func truncateLabel(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit - len("…")
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}

// choiceKeyboard renders a scene's choices as one button per row.
func choiceKeyboard(sceneID string, choices []state.Choice) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for i, c := range choices {
		text := truncateLabel(c.Text, buttonTextLimit)
		label := fmt.Sprintf("%d. %s (DC %d %s)", i+1, text, c.DC, c.Ability)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, choiceCallbackData(sceneID, i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// rollKeyboard renders the single roll button.
func rollKeyboard(sceneID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎲 Roll d20", rollCallbackData(sceneID)),
		),
	)
}

// formatCheck renders the roll breakdown as Markdown.
func formatCheck(check rules.CheckResult) string {
	var sb strings.Builder

	switch check.Mode {
	case rules.ModeAdvantage:
		sb.WriteString(fmt.Sprintf("🎲 You roll with advantage… %d and %d, keeping *%d*\n", check.Raw[0], check.Raw[1], check.Die))
	case rules.ModeDisadvantage:
		sb.WriteString(fmt.Sprintf("🎲 You roll with disadvantage… %d and %d, keeping *%d*\n", check.Raw[0], check.Raw[1], check.Die))
	default:
		sb.WriteString(fmt.Sprintf("🎲 You roll a d20… *%d*\n", check.Die))
	}

	sign := ""
	if check.Modifier >= 0 {
		sign = "+"
	}
	sb.WriteString(fmt.Sprintf("Modifier (%s %d → %s%d)", check.Ability, check.Score, sign, check.Modifier))
	if check.Proficiency > 0 {
		sb.WriteString(fmt.Sprintf(" +%d proficiency", check.Proficiency))
	}
	sb.WriteString("\n")

	verdict := "❌ Failure."
	if check.Success {
		verdict = "✅ Success!"
	}
	sb.WriteString(fmt.Sprintf("*Total = %d vs DC %d* → %s", check.Total, check.DC, verdict))
	return sb.String()
}

// formatSheet renders the character sheet as Markdown.
func formatSheet(gs *state.GameState) string {
	sheet := gs.Character.Sheet
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s* — Level %d %s %s\n", sheet.Name, gs.Level, sheet.Race, sheet.Class))
	if sheet.Motivation != "" {
		sb.WriteString(fmt.Sprintf("_%s_\n", sheet.Motivation))
	}
	sb.WriteString(fmt.Sprintf("\nHP: %d/%d  •  XP: %d  •  Roll mode: %s\n\n", gs.Character.HP(), sheet.MaxHP, gs.XP, gs.RollMode))
	sb.WriteString(fmt.Sprintf("STR %d  DEX %d  CON %d\nINT %d  WIS %d  CHA %d\n",
		sheet.Stats.Strength, sheet.Stats.Dexterity, sheet.Stats.Constitution,
		sheet.Stats.Intelligence, sheet.Stats.Wisdom, sheet.Stats.Charisma))
	if len(sheet.Proficiencies) > 0 {
		sb.WriteString("\nProficiencies: " + strings.Join(sheet.Proficiencies, ", ") + "\n")
	}
	if len(gs.Inventory) > 0 {
		sb.WriteString("\nInventory: " + strings.Join(gs.Inventory, ", ") + "\n")
	}
	return sb.String()
}
