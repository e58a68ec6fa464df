package workflow

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateWithinBudget(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 10000; trial++ {
		s, spent := allocate(rng)
		require.LessOrEqual(t, spent, pointBudget)

		cost := 0
		for _, v := range s {
			require.GreaterOrEqual(t, v, baseStat)
			require.LessOrEqual(t, v, maxBoughtStat)
			cost += pointCost[v]
		}
		require.Equal(t, spent, cost, "spent matches the cost table")
	}
}

func TestRollStatsBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	sawBonus := false
	for trial := 0; trial < 10000; trial++ {
		stats := RollStats(rng)
		total := 0
		for _, v := range stats.Values() {
			require.GreaterOrEqual(t, int(v), baseStat)
			require.LessOrEqual(t, int(v), maxStat)
			total += int(v)
			if v > maxBoughtStat {
				sawBonus = true
			}
		}
		// six base stats, at most 27 points of single-step raises, two bonuses
		require.LessOrEqual(t, total, 6*baseStat+pointBudget+2)
		require.GreaterOrEqual(t, total, 6*baseStat+1)
	}
	assert.True(t, sawBonus, "a bonus should push some stat past 15 eventually")
}

func TestAddBonusCapsAt20(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	s := [6]int{20, 20, 20, 20, 20, 20}
	assert.Equal(t, s, addBonus(rng, s))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "siremberash", slug("Sir Ember-Ash"))
	assert.Equal(t, "goblinhorde2", slug("  Goblin Horde #2 "))
	assert.Equal(t, "", slug("!!!"))
}
