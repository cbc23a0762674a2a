package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/questline/dungeonmaster/internal/game"
	"github.com/questline/dungeonmaster/pkg/character"
	"github.com/questline/dungeonmaster/pkg/rules"
	"github.com/questline/dungeonmaster/pkg/state"
)

const (
	AgentName       = "DM"
	PlaceHolderText = "What do you do?"
	requestTimeout  = 2 * time.Minute
)

// creationQuestions are asked in order before the adventure starts.
var creationQuestions = []string{
	"Let's make your hero. What is their name?",
	"What race are they? (human, elf, dwarf, …)",
	"What class are they? (fighter, rogue, wizard, …)",
	"What drives them? One sentence.",
	"Finally, pick a genre for your world (fantasy, sci-fi, horror, …)",
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	engine       *game.Engine
	mock         bool
	gameState    *state.GameState
	scene        *game.Scene
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	transcript   []transcriptEntry
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Character creation state
	creating bool
	answers  []string

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type transcriptEntry struct {
	role    string // "dm", "you", "roll", "error", "info"
	content string
}

type resumeMsg struct {
	gameState *state.GameState
	err       error
}

type sceneMsg struct {
	scene     *game.Scene
	gameState *state.GameState
	err       error
}

type rollMsg struct {
	outcome   *game.RollOutcome
	gameState *state.GameState
	err       error
}

type askMsg struct {
	answer string
	err    error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	rollStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")). // gold
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(engine *game.Engine, mock bool) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		engine:       engine,
		mock:         mock,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
		ready:        false,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(m.resumeGame(), textarea.Blink)
}

// resumeGame loads an existing save, if any.
func (m ConsoleUI) resumeGame() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		gs, err := m.engine.State(ctx, consoleChatID)
		if err != nil && !errors.Is(err, game.ErrNoGame) {
			return resumeMsg{nil, err}
		}
		return resumeMsg{gs, nil}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - chatWidth - 6

		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(chatWidth - 4)

		m.ready = true
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			return m.handleInput(input)
		}

	case resumeMsg:
		if msg.err != nil {
			m.err = msg.err
			m.addEntry("error", "Failed to load save: "+msg.err.Error())
		} else if msg.gameState != nil {
			m.gameState = msg.gameState
			m.addEntry("info", fmt.Sprintf("Welcome back, %s.", m.gameState.Character.Sheet.Name))
			if m.gameState.LastScene != "" {
				m.addEntry("dm", m.gameState.LastScene)
			}
			m.scene = &game.Scene{
				SceneID: m.gameState.ChoiceBuffer.SceneID,
				Choices: m.gameState.ChoiceBuffer.Choices,
			}
			m.addChoiceEntries()
		} else {
			m.creating = true
			if m.mock {
				m.addEntry("info", "No API key set: the canned narrator is running this adventure.")
			}
			m.addEntry("dm", creationQuestions[0])
		}
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case sceneMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry("error", msg.err.Error())
		} else {
			m.gameState = msg.gameState
			m.scene = msg.scene
			m.addEntry("dm", msg.scene.Narrative)
			m.addChoiceEntries()
		}
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case rollMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry("error", msg.err.Error())
		} else {
			m.gameState = msg.gameState
			m.scene = msg.outcome.Scene
			m.addEntry("roll", formatRoll(msg.outcome.Check))
			m.addEntry("dm", msg.outcome.Narrative)
			if msg.outcome.LevelsGained > 0 {
				m.addEntry("info", fmt.Sprintf("Level up! You are now level %d (HP %d/%d).",
					msg.outcome.NewLevel, msg.outcome.HP, msg.outcome.MaxHP))
			}
			m.addChoiceEntries()
		}
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case askMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry("error", msg.err.Error())
		} else {
			m.addEntry("dm", msg.answer)
		}
		m.writeChatContent()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// handleInput routes freeform text: creation answers, a choice number,
// or a story action.
func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	if m.creating {
		return m.handleCreationAnswer(input)
	}

	if m.gameState == nil {
		m.addEntry("info", "No adventure yet. Type /new to start one.")
		m.writeChatContent()
		return m, nil
	}

	// A bare number picks a choice from the last scene and rolls for it.
	if n, err := strconv.Atoi(input); err == nil && m.scene != nil && n >= 1 && n <= len(m.scene.Choices) {
		choice := m.scene.Choices[n-1]
		m.addEntry("you", choice.Text)
		m.loading = true
		m.progressTick = 0
		m.writeChatContent()
		return m, tea.Batch(m.selectAndRoll(m.scene.SceneID, n-1), progressTick())
	}

	m.addEntry("you", input)
	m.loading = true
	m.progressTick = 0
	m.writeChatContent()
	return m, tea.Batch(m.sendAction(input), progressTick())
}

func (m ConsoleUI) handleCreationAnswer(input string) (tea.Model, tea.Cmd) {
	m.addEntry("you", input)
	m.answers = append(m.answers, input)

	if len(m.answers) < len(creationQuestions) {
		m.addEntry("dm", creationQuestions[len(m.answers)])
		m.writeChatContent()
		return m, nil
	}

	m.creating = false
	m.loading = true
	m.progressTick = 0
	m.addEntry("info", "Rolling up your hero…")
	m.writeChatContent()
	answers := m.answers
	m.answers = nil
	return m, tea.Batch(m.startAdventure(answers), progressTick())
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch cmd {
	case "/help":
		m.addEntry("info", `Commands:
/new - start a new adventure (replaces the save)
/ask <question> - ask the DM out of character
/mode <normal|advantage|disadvantage> - set roll mode
/help - this help
Ctrl+C - quit

Type a choice number to attempt it, or describe what you do.`)

	case "/new":
		m.gameState = nil
		m.scene = nil
		m.creating = true
		m.answers = nil
		m.addEntry("dm", creationQuestions[0])

	case "/ask":
		if args == "" {
			m.addEntry("info", "Ask me something, e.g. /ask what does the sigil mean?")
			break
		}
		m.addEntry("you", args)
		m.loading = true
		m.progressTick = 0
		m.writeChatContent()
		return m, tea.Batch(m.sendAsk(args), progressTick())

	case "/mode":
		mode, err := rules.ParseRollMode(args)
		if err != nil {
			m.addEntry("info", "Use /mode normal, /mode advantage, or /mode disadvantage.")
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := m.engine.SetRollMode(ctx, consoleChatID, mode); err != nil {
			m.addEntry("error", err.Error())
			break
		}
		if m.gameState != nil {
			m.gameState.RollMode = mode
		}
		m.addEntry("info", fmt.Sprintf("All rolls are now made at %s.", mode))

	default:
		m.addEntry("info", "Unknown command. /help lists what I understand.")
	}

	m.writeChatContent()
	m.metaViewport.SetContent(m.writeMetadata())
	return m, nil
}

func (m ConsoleUI) startAdventure(answers []string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		sheet := character.NewClassSheet(answers[0], answers[1], answers[2], answers[3], engine.Roller())
		scene, err := engine.StartAdventure(ctx, consoleChatID, sheet, answers[4])
		if err != nil {
			return sceneMsg{nil, nil, err}
		}
		gs, err := engine.State(ctx, consoleChatID)
		return sceneMsg{scene, gs, err}
	}
}

func (m ConsoleUI) sendAction(input string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		scene, err := engine.Action(ctx, consoleChatID, input)
		if err != nil {
			return sceneMsg{nil, nil, err}
		}
		gs, err := engine.State(ctx, consoleChatID)
		return sceneMsg{scene, gs, err}
	}
}

func (m ConsoleUI) selectAndRoll(sceneID string, index int) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := engine.SelectChoice(ctx, consoleChatID, sceneID, index); err != nil {
			return rollMsg{nil, nil, err}
		}
		outcome, err := engine.Roll(ctx, consoleChatID)
		if err != nil {
			return rollMsg{nil, nil, err}
		}
		gs, err := engine.State(ctx, consoleChatID)
		return rollMsg{outcome, gs, err}
	}
}

func (m ConsoleUI) sendAsk(question string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		answer, err := engine.Ask(ctx, consoleChatID, question)
		return askMsg{answer, err}
	}
}

func (m *ConsoleUI) addEntry(role, content string) {
	m.transcript = append(m.transcript, transcriptEntry{role, content})
}

// addChoiceEntries appends the current scene's choices as a numbered
// list.
func (m *ConsoleUI) addChoiceEntries() {
	if m.scene == nil || len(m.scene.Choices) == 0 {
		return
	}
	var sb strings.Builder
	sb.WriteString("Your move:\n")
	for i, c := range m.scene.Choices {
		sb.WriteString(fmt.Sprintf("  %d. %s (DC %d %s)\n", i+1, c.Text, c.DC, c.Ability))
	}
	sb.WriteString("Type a number to attempt one, or do something else.")
	m.addEntry("info", sb.String())
}

// writeChatContent rebuilds the chat panel from the transcript for the
// current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("DUNGEON MASTER") + "\n\n")
	content.WriteString("Describe what your hero does and press Enter.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth-6)) + "\n\n")

	for _, entry := range m.transcript {
		switch entry.role {
		case "dm":
			content.WriteString(narratorStyle.Render(AgentName+": ") + wordwrap.String(entry.content, chatWidth-6) + "\n\n")
		case "you":
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(entry.content, chatWidth-6) + "\n\n")
		case "roll":
			content.WriteString(rollStyle.Render(entry.content) + "\n\n")
		case "error":
			content.WriteString(errorStyle.Render("Error: "+entry.content) + "\n\n")
		default:
			content.WriteString(promptStyle.Render(wordwrap.String(entry.content, chatWidth-6)) + "\n\n")
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

// formatRoll renders a check result on one line.
func formatRoll(check rules.CheckResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎲 d20: %d", check.Die))
	if len(check.Raw) > 1 {
		sb.WriteString(fmt.Sprintf(" (%s of %v)", check.Mode, check.Raw))
	}
	sb.WriteString(fmt.Sprintf(" %+d mod", check.Modifier))
	if check.Proficiency > 0 {
		sb.WriteString(fmt.Sprintf(" %+d prof", check.Proficiency))
	}
	sb.WriteString(fmt.Sprintf(" = %d vs DC %d", check.Total, check.DC))
	if check.Success {
		sb.WriteString(" — success!")
	} else {
		sb.WriteString(" — failure.")
	}
	return sb.String()
}

func (m *ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CHARACTER") + "\n\n")

	if m.gameState == nil || m.gameState.Character == nil {
		content.WriteString("No adventure yet.\n")
		return content.String()
	}

	sheet := m.gameState.Character.Sheet
	content.WriteString(sheet.Name + "\n")
	content.WriteString(fmt.Sprintf("%s %s\n\n", sheet.Race, sheet.Class))

	content.WriteString(fmt.Sprintf("Level %d\n", m.gameState.Level))
	content.WriteString(fmt.Sprintf("XP: %d / %d\n", m.gameState.XP, state.NextLevelThreshold(m.gameState.Level)))
	content.WriteString(fmt.Sprintf("HP: %d / %d\n\n", m.gameState.Character.HP(), sheet.MaxHP))

	for _, abbr := range []string{"STR", "DEX", "CON", "INT", "WIS", "CHA"} {
		content.WriteString(fmt.Sprintf("%s %d\n", abbr, sheet.Score(abbr)))
	}
	content.WriteString("\n")

	if len(sheet.Proficiencies) > 0 {
		content.WriteString("Proficiencies:\n")
		for _, p := range sheet.Proficiencies {
			content.WriteString("• " + p + "\n")
		}
		content.WriteString("\n")
	}

	if len(m.gameState.Inventory) > 0 {
		content.WriteString("Inventory:\n")
		for _, item := range m.gameState.Inventory {
			content.WriteString("• " + item + "\n")
		}
		content.WriteString("\n")
	}

	content.WriteString(fmt.Sprintf("Roll mode: %s\n\n", m.gameState.RollMode))

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")

	return content.String()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Your adventure is saved. Leave for now?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated bar for loading states.
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message.
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
