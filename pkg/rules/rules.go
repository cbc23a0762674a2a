// Package rules implements d20 ability-check resolution: ability
// modifiers, proficiency bonuses, skill lookup, and roll modes.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AbilityModifier derives the modifier from a raw ability score:
// floor((score-10)/2). Scores below 10 round toward negative
// infinity, e.g. score 8 gives -1 and score 7 gives -2.
func AbilityModifier(score int) int {
	d := score - 10
	if d < 0 {
		return -((-d + 1) / 2)
	}
	return d / 2
}

// ProficiencyBonus is a step function of character level:
// levels 1-4 grant +2, 5-8 +3, 9-12 +4, 13-16 +5, 17-20 +6.
// Levels below 1 are treated as 1.
func ProficiencyBonus(level int) int {
	if level < 1 {
		level = 1
	}
	return 2 + (level-1)/4
}

// RollMode selects how the d20 is rolled for a check. It is
// per-player state, not per-check.
type RollMode string

const (
	ModeNormal       RollMode = "normal"       // single d20
	ModeAdvantage    RollMode = "advantage"    // two d20, take higher
	ModeDisadvantage RollMode = "disadvantage" // two d20, take lower
)

// ParseRollMode validates a user-supplied roll mode string.
func ParseRollMode(s string) (RollMode, error) {
	switch RollMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeNormal:
		return ModeNormal, nil
	case ModeAdvantage:
		return ModeAdvantage, nil
	case ModeDisadvantage:
		return ModeDisadvantage, nil
	}
	return "", fmt.Errorf("invalid roll mode %q (want normal, advantage or disadvantage)", s)
}

// skillEntry maps a skill or ability name to its governing ability
// abbreviation and the skill labels it covers for proficiency.
type skillEntry struct {
	Abbr    string
	Covered []string
}

var skillTable = map[string]skillEntry{
	"Strength":     {"STR", nil},
	"Dexterity":    {"DEX", []string{"Acrobatics", "Stealth"}},
	"Constitution": {"CON", nil},
	"Intelligence": {"INT", []string{"Arcana", "History", "Investigation", "Nature", "Religion"}},
	"Wisdom":       {"WIS", []string{"Animal Handling", "Insight", "Medicine", "Perception"}},
	"Charisma":     {"CHA", []string{"Deception", "Intimidation", "Performance", "Persuasion"}},

	"Athletics":       {"STR", []string{"Athletics"}},
	"Acrobatics":      {"DEX", []string{"Acrobatics"}},
	"Stealth":         {"DEX", []string{"Stealth"}},
	"Arcana":          {"INT", []string{"Arcana"}},
	"History":         {"INT", []string{"History"}},
	"Investigation":   {"INT", []string{"Investigation"}},
	"Nature":          {"INT", []string{"Nature"}},
	"Religion":        {"INT", []string{"Religion"}},
	"Animal Handling": {"WIS", []string{"Animal Handling"}},
	"Insight":         {"WIS", []string{"Insight"}},
	"Medicine":        {"WIS", []string{"Medicine"}},
	"Perception":      {"WIS", []string{"Perception"}},
	"Deception":       {"CHA", []string{"Deception"}},
	"Intimidation":    {"CHA", []string{"Intimidation"}},
	"Performance":     {"CHA", []string{"Performance"}},
	"Persuasion":      {"CHA", []string{"Persuasion"}},
}

var titleCaser = cases.Title(language.English)

// NormalizeSkillName title-cases a user- or LLM-supplied ability or
// skill name so it can be looked up in the skill table.
func NormalizeSkillName(name string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(name)))
}

// ErrUnknownAbility is returned by ParseAbility for names outside the
// skill table.
var ErrUnknownAbility = errors.New("unknown ability or skill")

// ParseAbility resolves a player-supplied ability or skill name to its
// governing ability abbreviation. Unlike LookupSkill it rejects
// unrecognized names; an explicit edit must not fall back silently.
func ParseAbility(name string) (string, error) {
	entry, ok := skillTable[NormalizeSkillName(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAbility, name)
	}
	return entry.Abbr, nil
}

// LookupSkill resolves an ability or skill name to its governing
// ability abbreviation and covered skill labels. Unrecognized names
// resolve to Strength with no covered skills; this is a deliberate
// default, not an error, so a misnamed check from the LLM still rolls.
func LookupSkill(name string) (abbr string, covered []string) {
	entry, ok := skillTable[NormalizeSkillName(name)]
	if !ok {
		return "STR", nil
	}
	return entry.Abbr, entry.Covered
}
