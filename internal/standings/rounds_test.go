package standings

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourtsForPlayerCount(t *testing.T) {
	cases := map[int]int{
		0:  1,
		4:  1,
		6:  1,
		7:  1,
		8:  2,
		10: 2,
		11: 2,
		12: 3,
		16: 3,
	}
	for playerCount, want := range cases {
		assert.Equal(t, want, CourtsForPlayerCount(playerCount), "player count %d", playerCount)
	}
}

func TestGroupRoundsEightPlayers(t *testing.T) {
	matches := simpleMatches(4)

	rounds := GroupRounds(matches, CourtsForPlayerCount(8))

	require.Len(t, rounds, 2)
	assert.Equal(t, 1, rounds[0].Number)
	assert.Equal(t, []string{"m1", "m2"}, matchIDs(rounds[0].Matches))
	assert.Equal(t, 2, rounds[1].Number)
	assert.Equal(t, []string{"m3", "m4"}, matchIDs(rounds[1].Matches))
}

func TestGroupRoundsPartition(t *testing.T) {
	for _, courts := range []int{1, 2, 3} {
		for n := 0; n <= 10; n++ {
			t.Run(fmt.Sprintf("courts=%d/matches=%d", courts, n), func(t *testing.T) {
				matches := simpleMatches(n)
				rounds := GroupRounds(matches, courts)

				assert.Len(t, rounds, (n+courts-1)/courts)

				var flattened []Match
				for _, round := range rounds {
					assert.NotEmpty(t, round.Matches)
					assert.LessOrEqual(t, len(round.Matches), courts)
					flattened = append(flattened, round.Matches...)
				}
				assert.Equal(t, matchIDs(matches), matchIDs(flattened))
			})
		}
	}
}

func TestGroupRoundsEdgeCases(t *testing.T) {
	assert.Empty(t, GroupRounds(nil, 2))
	assert.NotNil(t, GroupRounds(nil, 2))

	rounds := GroupRounds(simpleMatches(3), 0)
	assert.Len(t, rounds, 3, "non-positive courts fall back to one court")
}

func TestSupportedPlayerCount(t *testing.T) {
	for _, n := range []int{6, 8, 10, 12} {
		assert.True(t, SupportedPlayerCount(n))
	}
	for _, n := range []int{0, 5, 7, 9, 14} {
		assert.False(t, SupportedPlayerCount(n))
	}
}
