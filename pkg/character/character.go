package character

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/d20"

	"github.com/questline/dungeonmaster/pkg/dice"
)

// Stats5e represents the six core D&D 5e ability scores
type Stats5e struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// ToAttributes converts Stats5e to a map for d20.Actor compatibility
func (s *Stats5e) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"constitution": s.Constitution,
		"intelligence": s.Intelligence,
		"wisdom":       s.Wisdom,
		"charisma":     s.Charisma,
	}
}

// Sheet is the serializable character sheet for a player.
// It is the persisted form; the runtime d20.Actor is rebuilt from it.
type Sheet struct {
	Name          string   `json:"name"`
	Race          string   `json:"race,omitempty"`
	Class         string   `json:"class,omitempty"`
	Motivation    string   `json:"motivation,omitempty"`
	Stats         Stats5e  `json:"stats"`
	Proficiencies []string `json:"proficiencies,omitempty"`
	HP            int      `json:"hp"`
	MaxHP         int      `json:"max_hp"`
}

const (
	baseHP    = 10
	defaultAC = 10 // unarmored; checks are DC-based, AC is narrative-only here
)

// NewRandomSheet creates a sheet with ability scores rolled once at
// creation time: four d6 per ability, dropping the lowest die.
func NewRandomSheet(name, race, class, motivation string, roller dice.Roller) *Sheet {
	return &Sheet{
		Name:       name,
		Race:       race,
		Class:      class,
		Motivation: motivation,
		Stats: Stats5e{
			Strength:     rollAbilityScore(roller),
			Dexterity:    rollAbilityScore(roller),
			Constitution: rollAbilityScore(roller),
			Intelligence: rollAbilityScore(roller),
			Wisdom:       rollAbilityScore(roller),
			Charisma:     rollAbilityScore(roller),
		},
		HP:    baseHP,
		MaxHP: baseHP,
	}
}

// starterProficiencies are granted per class at creation. Unknown
// classes start with none.
var starterProficiencies = map[string][]string{
	"fighter":   {"Athletics", "Intimidation"},
	"barbarian": {"Athletics", "Survival"},
	"rogue":     {"Stealth", "Deception"},
	"ranger":    {"Stealth", "Perception"},
	"wizard":    {"Arcana", "History"},
	"sorcerer":  {"Arcana", "Persuasion"},
	"cleric":    {"Religion", "Medicine"},
	"druid":     {"Nature", "Animal Handling"},
	"bard":      {"Performance", "Persuasion"},
	"paladin":   {"Religion", "Intimidation"},
	"monk":      {"Acrobatics", "Insight"},
	"warlock":   {"Arcana", "Deception"},
}

// NewClassSheet rolls a random sheet and grants the class's starter
// proficiencies.
func NewClassSheet(name, race, class, motivation string, roller dice.Roller) *Sheet {
	sheet := NewRandomSheet(name, race, class, motivation, roller)
	sheet.Proficiencies = starterProficiencies[strings.ToLower(strings.TrimSpace(class))]
	return sheet
}

// rollAbilityScore rolls 4d6 and drops the lowest die.
func rollAbilityScore(roller dice.Roller) int {
	total := 0
	lowest := 7
	for i := 0; i < 4; i++ {
		d := roller.Roll(6)
		total += d
		if d < lowest {
			lowest = d
		}
	}
	return total - lowest
}

// Score returns the ability score for an abbreviation (STR, DEX, CON,
// INT, WIS, CHA). Unknown abbreviations return 10.
func (s *Sheet) Score(abbr string) int {
	switch strings.ToUpper(abbr) {
	case "STR":
		return s.Stats.Strength
	case "DEX":
		return s.Stats.Dexterity
	case "CON":
		return s.Stats.Constitution
	case "INT":
		return s.Stats.Intelligence
	case "WIS":
		return s.Stats.Wisdom
	case "CHA":
		return s.Stats.Charisma
	}
	return 10
}

// Boost adjusts a named ability score by delta. The resulting score is
// kept in [1, 30]. Unknown ability names are an error.
func (s *Sheet) Boost(abbr string, delta int) error {
	clamp := func(v int) int {
		if v < 1 {
			return 1
		}
		if v > 30 {
			return 30
		}
		return v
	}
	switch strings.ToUpper(abbr) {
	case "STR":
		s.Stats.Strength = clamp(s.Stats.Strength + delta)
	case "DEX":
		s.Stats.Dexterity = clamp(s.Stats.Dexterity + delta)
	case "CON":
		s.Stats.Constitution = clamp(s.Stats.Constitution + delta)
	case "INT":
		s.Stats.Intelligence = clamp(s.Stats.Intelligence + delta)
	case "WIS":
		s.Stats.Wisdom = clamp(s.Stats.Wisdom + delta)
	case "CHA":
		s.Stats.Charisma = clamp(s.Stats.Charisma + delta)
	default:
		return fmt.Errorf("unknown ability: %s", abbr)
	}
	return nil
}

// IsProficient reports whether the sheet lists the given label as a
// proficiency. Matching is case-insensitive.
func (s *Sheet) IsProficient(label string) bool {
	for _, p := range s.Proficiencies {
		if strings.EqualFold(p, label) {
			return true
		}
	}
	return false
}

// Character is the runtime representation of the player character.
type Character struct {
	Sheet *Sheet
	Actor *d20.Actor // Built at runtime from the Sheet
}

// NewFromSheet creates a Character and builds its d20.Actor.
func NewFromSheet(sheet *Sheet) (*Character, error) {
	if sheet == nil {
		return nil, fmt.Errorf("sheet cannot be nil")
	}
	ch := &Character{Sheet: sheet}
	if err := ch.rebuildActor(); err != nil {
		return nil, err
	}
	return ch, nil
}

// rebuildActor reconstructs the d20.Actor from the sheet. Called after
// any change to max HP or ability scores.
func (ch *Character) rebuildActor() error {
	actor, err := d20.NewActor(ch.Sheet.Name).
		WithHP(ch.Sheet.MaxHP).
		WithAC(defaultAC).
		WithAttributes(ch.Sheet.Stats.ToAttributes()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build actor: %w", err)
	}
	if ch.Sheet.HP != ch.Sheet.MaxHP && ch.Sheet.HP > 0 {
		if err := actor.SetHP(ch.Sheet.HP); err != nil {
			return fmt.Errorf("failed to set HP: %w", err)
		}
	}
	ch.Actor = actor
	return nil
}

// HP returns current hit points. The actor carries runtime HP; a
// downed character (or one without a built actor) is read from the
// sheet, which mirrors every HP change for persistence.
func (ch *Character) HP() int {
	if ch.Sheet.HP <= 0 || ch.Actor == nil {
		return ch.Sheet.HP
	}
	return ch.Actor.HP()
}

// AdjustHP applies an HP delta through the actor, clamping the result
// to [0, MaxHP]. Returns the new HP value.
func (ch *Character) AdjustHP(delta int) int {
	hp := ch.HP() + delta
	if hp < 0 {
		hp = 0
	}
	if hp > ch.Sheet.MaxHP {
		hp = ch.Sheet.MaxHP
	}
	if hp > 0 && ch.Actor != nil {
		if err := ch.Actor.SetHP(hp); err != nil {
			ch.Sheet.HP = hp
			_ = ch.rebuildActor()
			return hp
		}
	}
	ch.Sheet.HP = hp
	return hp
}

// RaiseMaxHP increases max HP by n and heals the same amount,
// clamped to the new maximum. Used on level-up.
func (ch *Character) RaiseMaxHP(n int) {
	ch.Sheet.MaxHP += n
	hp := ch.HP() + n
	if hp > ch.Sheet.MaxHP {
		hp = ch.Sheet.MaxHP
	}
	ch.Sheet.HP = hp
	_ = ch.rebuildActor()
}

// MarshalJSON serializes the sheet with current HP read from the
// actor, so a mid-fight save carries the runtime value.
func (ch *Character) MarshalJSON() ([]byte, error) {
	if ch == nil {
		return []byte("null"), nil
	}
	sheet := *ch.Sheet
	sheet.HP = ch.HP()
	return json.Marshal(&sheet)
}

// UnmarshalJSON reconstructs a Character from a serialized sheet and
// rebuilds its Actor.
func (ch *Character) UnmarshalJSON(data []byte) error {
	var sheet Sheet
	if err := json.Unmarshal(data, &sheet); err != nil {
		return fmt.Errorf("failed to unmarshal character sheet: %w", err)
	}
	ch.Sheet = &sheet
	return ch.rebuildActor()
}
