package progression

import "math"

const xpPerLevelUnit = 100

// LevelOf returns floor(sqrt(xp/100)).
func LevelOf(xp int64) int64 {
	if xp <= 0 {
		return 0
	}
	n := xp / xpPerLevelUnit
	root := int64(math.Sqrt(float64(n)))
	for root*root > n {
		root--
	}
	for (root+1)*(root+1) <= n {
		root++
	}
	return root
}

// XPForLevel is the total xp at which level+1 is reached.
func XPForLevel(level int64) int64 {
	if level < 0 {
		level = 0
	}
	next := level + 1
	return next * next * xpPerLevelUnit
}
