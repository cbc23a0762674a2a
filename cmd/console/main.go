package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/questline/dungeonmaster/internal/config"
	"github.com/questline/dungeonmaster/internal/game"
	"github.com/questline/dungeonmaster/internal/logger"
	"github.com/questline/dungeonmaster/internal/services"
	"github.com/questline/dungeonmaster/internal/storage"
)

// consoleChatID is the fixed save key the local console plays under.
const consoleChatID int64 = 1

func main() {
	cfg := config.Load()

	// The TUI owns the terminal, so engine logs go to a file.
	log, logClose := logger.File("console.log", slog.LevelDebug)
	defer logClose()

	var llm services.LLMService
	if cfg.OpenAIAPIKey != "" {
		llm = services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelName, cfg.FallbackModel, log)
	} else {
		llm = &services.MockLLM{}
	}

	store, err := storage.NewFileStorage(cfg.SavesDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open saves directory: %v\n", err)
		os.Exit(1)
	}

	engine := game.New(llm, store, nil, log)
	engine.SetFamilyFriendly(cfg.FamilyFriendly)
	engine.SetHistoryLimit(cfg.HistoryLimit)

	p := tea.NewProgram(NewConsoleUI(engine, cfg.OpenAIAPIKey == ""),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
