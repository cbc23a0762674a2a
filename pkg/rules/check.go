package rules

import (
	"github.com/questline/dungeonmaster/pkg/character"
	"github.com/questline/dungeonmaster/pkg/dice"
)

// CheckResult is the full breakdown of a resolved ability check.
type CheckResult struct {
	Ability     string   `json:"ability"`
	Mode        RollMode `json:"mode"`
	Raw         []int    `json:"raw"`   // every die drawn
	Die         int      `json:"d20"`   // the die that counted
	Score       int      `json:"score"` // the ability score the modifier derives from
	Modifier    int      `json:"mod"`
	Proficiency int      `json:"prof"`
	Total       int      `json:"total"`
	DC          int      `json:"dc"`
	Success     bool     `json:"success"`
}

// ResolveCheck rolls a d20 check for the sheet against a difficulty
// class. The proficiency bonus applies only when the sheet is
// proficient in the named skill, one of its covered skills, or the
// normalized name itself. Success iff total >= dc.
func ResolveCheck(sheet *character.Sheet, level int, abilityOrSkill string, dc int, mode RollMode, roller dice.Roller) CheckResult {
	abbr, covered := LookupSkill(abilityOrSkill)
	score := sheet.Score(abbr)
	mod := AbilityModifier(score)

	var raw []int
	var die int
	switch mode {
	case ModeAdvantage:
		d1, d2 := roller.Roll(20), roller.Roll(20)
		raw = []int{d1, d2}
		die = max(d1, d2)
	case ModeDisadvantage:
		d1, d2 := roller.Roll(20), roller.Roll(20)
		raw = []int{d1, d2}
		die = min(d1, d2)
	default:
		die = roller.Roll(20)
		raw = []int{die}
	}

	prof := 0
	if isProficient(sheet, abilityOrSkill, covered) {
		prof = ProficiencyBonus(level)
	}

	total := die + mod + prof
	return CheckResult{
		Ability:     abilityOrSkill,
		Mode:        mode,
		Raw:         raw,
		Die:         die,
		Score:       score,
		Modifier:    mod,
		Proficiency: prof,
		Total:       total,
		DC:          dc,
		Success:     total >= dc,
	}
}

func isProficient(sheet *character.Sheet, name string, covered []string) bool {
	for _, skill := range covered {
		if sheet.IsProficient(skill) {
			return true
		}
	}
	return sheet.IsProficient(NormalizeSkillName(name))
}
