// Package dice provides the random die rolls used by character
// generation and ability checks. Rolls go through the Roller
// interface so game logic can be tested with scripted dice.
package dice

import "math/rand"

// Roller produces die rolls. Roll returns a value in [1, sides].
type Roller interface {
	Roll(sides int) int
}

type randRoller struct{}

// NewRoller returns a Roller backed by math/rand's shared source,
// which is safe for concurrent use.
func NewRoller() Roller {
	return randRoller{}
}

func (randRoller) Roll(sides int) int {
	if sides < 1 {
		return 1
	}
	return rand.Intn(sides) + 1
}

// Scripted is a Roller that returns a fixed sequence of values,
// then repeats the last value. Intended for tests.
type Scripted struct {
	Values []int
	next   int
}

func (s *Scripted) Roll(sides int) int {
	if len(s.Values) == 0 {
		return 1
	}
	v := s.Values[s.next]
	if s.next < len(s.Values)-1 {
		s.next++
	}
	return v
}
