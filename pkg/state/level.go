package state

// xpThresholds is the fixed XP table: xpThresholds[i] is the total XP
// required to reach level i+1. Level 10 is the cap; XP keeps
// accumulating past the final threshold without further levels.
var xpThresholds = []int{0, 300, 900, 2700, 6500, 14000, 23000, 34000, 48000, 64000}

// hpPerLevel is the flat max-HP increase granted per level gained.
const hpPerLevel = 3

// LevelForXP returns the level the XP total corresponds to.
func LevelForXP(xp int) int {
	level := 1
	for i, threshold := range xpThresholds {
		if xp >= threshold {
			level = i + 1
		}
	}
	return level
}

// NextLevelThreshold returns the XP total required for the level after
// the given one. At or past the top of the table it returns the final
// threshold.
func NextLevelThreshold(level int) int {
	if level < 1 {
		level = 1
	}
	if level >= len(xpThresholds) {
		return xpThresholds[len(xpThresholds)-1]
	}
	return xpThresholds[level]
}

// AwardXP adds an XP delta (total floored at 0) and applies any level
// gains. Returns the number of levels gained.
func (gs *GameState) AwardXP(delta int) int {
	xp := gs.XP + delta
	if xp < 0 {
		xp = 0
	}
	gs.XP = xp
	return gs.applyLevelUps()
}

// AwardMilestone raises XP to at least the next level threshold, then
// applies level gains. Returns the number of levels gained.
func (gs *GameState) AwardMilestone() int {
	next := NextLevelThreshold(gs.Level)
	if gs.XP < next {
		gs.XP = next
	}
	return gs.applyLevelUps()
}

// applyLevelUps reconciles Level with XP and grants the flat HP bump
// for each level gained.
func (gs *GameState) applyLevelUps() int {
	newLevel := LevelForXP(gs.XP)
	if newLevel <= gs.Level {
		return 0
	}
	gained := newLevel - gs.Level
	gs.Level = newLevel
	if gs.Character != nil {
		gs.Character.RaiseMaxHP(gained * hpPerLevel)
	}
	return gained
}
