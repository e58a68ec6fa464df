package workflow

import (
	"math/rand/v2"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/chain"
)

const (
	baseStat      = 8
	pointBudget   = 27
	maxBoughtStat = 15
	maxStat       = 20
	earlyStopOdds = 0.05
)

// pointCost is the total cost of raising a stat from 8 to the key.
var pointCost = map[int]int{8: 0, 9: 1, 10: 2, 11: 3, 12: 4, 13: 5, 14: 7, 15: 9}

// RollStats allocates a hero's stats with a 27-point buy, then applies one or
// two random +1 bonuses capped at 20.
func RollStats(rng *rand.Rand) chain.HeroStats {
	s, _ := allocate(rng)
	return toHeroStats(addBonus(rng, s))
}

// allocate starts every stat at 8 and raises a random stat one step at a time
// while its incremental cost fits the remaining budget. It stops when the
// budget is spent, every stat is at 15, or a 5% early stop fires.
func allocate(rng *rand.Rand) (s [6]int, spent int) {
	for i := range s {
		s[i] = baseStat
	}
	for spent < pointBudget {
		i := rng.IntN(len(s))
		if s[i] < maxBoughtStat {
			if step := pointCost[s[i]+1] - pointCost[s[i]]; spent+step <= pointBudget {
				s[i]++
				spent += step
			}
		}
		if allAtLeast(s, maxBoughtStat) {
			break
		}
		if rng.Float64() < earlyStopOdds {
			break
		}
	}
	return s, spent
}

func addBonus(rng *rand.Rand, s [6]int) [6]int {
	for range 1 + rng.IntN(2) {
		if i := rng.IntN(len(s)); s[i] < maxStat {
			s[i]++
		}
	}
	return s
}

func allAtLeast(s [6]int, v int) bool {
	for _, x := range s {
		if x < v {
			return false
		}
	}
	return true
}

func toHeroStats(s [6]int) chain.HeroStats {
	return chain.HeroStats{
		Strength:     uint8(s[0]),
		Dexterity:    uint8(s[1]),
		WillPower:    uint8(s[2]),
		Intelligence: uint8(s[3]),
		Charisma:     uint8(s[4]),
		Constitution: uint8(s[5]),
	}
}
