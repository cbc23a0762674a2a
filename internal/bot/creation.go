package bot

import (
	"strings"
	"sync"

	"github.com/questline/dungeonmaster/pkg/character"
	"github.com/questline/dungeonmaster/pkg/dice"
)

// creationStep tracks the character-creation conversation.
type creationStep int

const (
	stepName creationStep = iota
	stepRace
	stepClass
	stepMotivation
	stepGenre
)

// creation is the in-flight character-creation state for one chat.
// It lives only in memory; a restart mid-creation just means the
// player types /start again.
type creation struct {
	step       creationStep
	name       string
	race       string
	class      string
	motivation string
	genre      string
}

// creationFlows tracks chats that are mid character creation.
type creationFlows struct {
	mu    sync.Mutex
	flows map[int64]*creation
}

func newCreationFlows() *creationFlows {
	return &creationFlows{flows: make(map[int64]*creation)}
}

func (c *creationFlows) begin(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flows[chatID] = &creation{step: stepName}
}

func (c *creationFlows) get(chatID int64) (*creation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fl, ok := c.flows[chatID]
	return fl, ok
}

func (c *creationFlows) finish(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flows, chatID)
}

// prompt returns the question for the current step.
func (cr *creation) prompt() string {
	switch cr.step {
	case stepName:
		return "Let's make your hero. What is their name?"
	case stepRace:
		return "What race are they? (human, elf, dwarf, …)"
	case stepClass:
		return "What class are they? (fighter, rogue, wizard, …)"
	case stepMotivation:
		return "What drives them? One sentence."
	case stepGenre:
		return "Finally, pick a genre for your world (fantasy, sci-fi, horror, …)"
	}
	return ""
}

// advance records an answer and moves to the next step. Returns true
// when creation is complete.
func (cr *creation) advance(answer string) bool {
	answer = strings.TrimSpace(answer)
	switch cr.step {
	case stepName:
		cr.name = answer
	case stepRace:
		cr.race = answer
	case stepClass:
		cr.class = answer
	case stepMotivation:
		cr.motivation = answer
	case stepGenre:
		cr.genre = answer
		return true
	}
	cr.step++
	return false
}

// buildSheet rolls a sheet from the completed creation answers.
func (cr *creation) buildSheet(roller dice.Roller) *character.Sheet {
	return character.NewClassSheet(cr.name, cr.race, cr.class, cr.motivation, roller)
}
