package state

import (
	"log/slog"
)

// Consequences is the compact set of state changes the LLM authors
// after a roll resolves. A delta is much faster for the LLM to
// generate than a full game state.
type Consequences struct {
	HPDelta     int      `json:"hp_delta,omitempty"`
	XPDelta     int      `json:"xp_delta,omitempty"`
	ItemsGained []string `json:"items_gained,omitempty"`
	ItemsLost   []string `json:"items_lost,omitempty"`
	Milestone   bool     `json:"milestone,omitempty"`
}

// IsEmpty checks if the Consequences carry no changes.
func (c *Consequences) IsEmpty() bool {
	return c == nil || (c.HPDelta == 0 &&
		c.XPDelta == 0 &&
		len(c.ItemsGained) == 0 &&
		len(c.ItemsLost) == 0 &&
		!c.Milestone)
}

// Report summarizes what applying a set of consequences did, for
// user-visible announcements.
type Report struct {
	HP           int
	LevelsGained int
	NewLevel     int
}

// ConsequenceWorker encapsulates the logic for applying LLM-authored
// consequences to game state.
type ConsequenceWorker struct {
	gs     *GameState
	cons   *Consequences
	logger *slog.Logger
}

// NewConsequenceWorker creates a worker for applying one set of
// consequences.
func NewConsequenceWorker(gs *GameState, cons *Consequences, logger *slog.Logger) *ConsequenceWorker {
	return &ConsequenceWorker{
		gs:     gs,
		cons:   cons,
		logger: logger,
	}
}

// Apply applies the consequences in order: hit points (clamped to
// [0, max]), inventory changes, XP delta, then milestone. Levels are
// reconciled after all XP changes.
func (cw *ConsequenceWorker) Apply() Report {
	report := Report{NewLevel: cw.gs.Level}
	if cw.cons.IsEmpty() {
		if cw.gs.Character != nil {
			report.HP = cw.gs.Character.HP()
		}
		return report
	}

	if cw.gs.Character != nil {
		report.HP = cw.gs.Character.AdjustHP(cw.cons.HPDelta)
	}

	for _, item := range cw.cons.ItemsGained {
		cw.gs.Inventory = append(cw.gs.Inventory, item)
	}
	for _, item := range cw.cons.ItemsLost {
		cw.removeFirst(item)
	}

	gained := cw.gs.AwardXP(cw.cons.XPDelta)
	if cw.cons.Milestone {
		gained += cw.gs.AwardMilestone()
	}

	report.LevelsGained = gained
	report.NewLevel = cw.gs.Level
	if cw.gs.Character != nil {
		// Level-ups may have healed past the pre-level HP.
		report.HP = cw.gs.Character.HP()
	}

	if cw.logger != nil && gained > 0 {
		cw.logger.Info("Level up",
			"chat_id", cw.gs.ChatID,
			"level", cw.gs.Level,
			"xp", cw.gs.XP)
	}

	return report
}

// removeFirst removes the first inventory occurrence whose label
// exactly matches. Duplicate copies beyond the first are kept.
func (cw *ConsequenceWorker) removeFirst(label string) {
	for i, item := range cw.gs.Inventory {
		if item == label {
			cw.gs.Inventory = append(cw.gs.Inventory[:i], cw.gs.Inventory[i+1:]...)
			return
		}
	}
	if cw.logger != nil {
		cw.logger.Debug("Lost item not in inventory", "item", label, "chat_id", cw.gs.ChatID)
	}
}
