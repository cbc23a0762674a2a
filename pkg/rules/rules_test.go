package rules

import (
	"errors"
	"testing"
)

func TestAbilityModifier(t *testing.T) {
	tests := []struct {
		score    int
		expected int
	}{
		{1, -5},
		{3, -4},
		{7, -2},
		{8, -1},
		{9, -1},
		{10, 0},
		{11, 0},
		{12, 1},
		{14, 2},
		{15, 2},
		{19, 4},
		{20, 5},
		{30, 10},
	}

	for _, tt := range tests {
		if got := AbilityModifier(tt.score); got != tt.expected {
			t.Errorf("AbilityModifier(%d) = %d, want %d", tt.score, got, tt.expected)
		}
	}
}

func TestProficiencyBonus(t *testing.T) {
	tests := []struct {
		level    int
		expected int
	}{
		{-3, 2},
		{0, 2},
		{1, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{9, 4},
		{12, 4},
		{13, 5},
		{16, 5},
		{17, 6},
		{20, 6},
	}

	for _, tt := range tests {
		if got := ProficiencyBonus(tt.level); got != tt.expected {
			t.Errorf("ProficiencyBonus(%d) = %d, want %d", tt.level, got, tt.expected)
		}
	}
}

func TestParseRollMode(t *testing.T) {
	tests := []struct {
		input       string
		expected    RollMode
		expectError bool
	}{
		{"normal", ModeNormal, false},
		{"Advantage", ModeAdvantage, false},
		{"  DISADVANTAGE  ", ModeDisadvantage, false},
		{"lucky", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRollMode(tt.input)
		if tt.expectError {
			if err == nil {
				t.Errorf("ParseRollMode(%q) expected error, got %q", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRollMode(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseRollMode(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLookupSkill(t *testing.T) {
	tests := []struct {
		name         string
		expectedAbbr string
		wantCovered  bool
	}{
		{"Strength", "STR", false},
		{"strength", "STR", false},
		{"Dexterity", "DEX", true},
		{"stealth", "DEX", true},
		{"ARCANA", "INT", true},
		{"animal handling", "WIS", true},
		{"persuasion", "CHA", true},
		{"Basket Weaving", "STR", false},
		{"", "STR", false},
	}

	for _, tt := range tests {
		abbr, covered := LookupSkill(tt.name)
		if abbr != tt.expectedAbbr {
			t.Errorf("LookupSkill(%q) abbr = %q, want %q", tt.name, abbr, tt.expectedAbbr)
		}
		if tt.wantCovered && len(covered) == 0 {
			t.Errorf("LookupSkill(%q) expected covered skills, got none", tt.name)
		}
		if !tt.wantCovered && len(covered) != 0 {
			t.Errorf("LookupSkill(%q) expected no covered skills, got %v", tt.name, covered)
		}
	}
}

func TestParseAbility(t *testing.T) {
	tests := []struct {
		name         string
		expectedAbbr string
		wantErr      bool
	}{
		{"strength", "STR", false},
		{"Stealth", "DEX", false},
		{"  arcana ", "INT", false},
		{"juggling", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		abbr, err := ParseAbility(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownAbility) {
				t.Errorf("ParseAbility(%q) error = %v, want ErrUnknownAbility", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAbility(%q) unexpected error: %v", tt.name, err)
		}
		if abbr != tt.expectedAbbr {
			t.Errorf("ParseAbility(%q) = %q, want %q", tt.name, abbr, tt.expectedAbbr)
		}
	}
}

func TestNormalizeSkillName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"stealth", "Stealth"},
		{"ANIMAL HANDLING", "Animal Handling"},
		{"  insight ", "Insight"},
	}

	for _, tt := range tests {
		if got := NormalizeSkillName(tt.input); got != tt.expected {
			t.Errorf("NormalizeSkillName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
