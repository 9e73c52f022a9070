package standings

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRosterOrdering(t *testing.T) {
	rows := []RawMatch{
		doubles("m3", 3, [2]string{"a", "b"}, [2]string{"c", "d"}, TeamNone),
		doubles("m1", 1, [2]string{"a", "b"}, [2]string{"c", "d"}, TeamNone),
		doubles("m2a", 2, [2]string{"a", "b"}, [2]string{"c", "d"}, TeamNone),
		doubles("m2b", 2, [2]string{"a", "b"}, [2]string{"c", "d"}, TeamNone),
	}

	roster := BuildRoster(rows, NewDirectory(nil))

	assert.Equal(t, []string{"m1", "m2a", "m2b", "m3"}, matchIDs(roster.Matches))
	// input slice is left in fetch order
	assert.Equal(t, "m3", rows[0].ID)
}

func TestBuildRosterTeamsAndWinner(t *testing.T) {
	dir := NewDirectory([]Player{
		named("a", "Ann", "Lee"),
		named("b", "Bob", "Ng"),
		named("c", "Cat", "Ho"),
	})

	t.Run("unscored match has no winner", func(t *testing.T) {
		roster := BuildRoster([]RawMatch{doubles("m1", 1, [2]string{"a", "b"}, [2]string{"c", "d"}, TeamNone)}, dir)
		require.Len(t, roster.Matches, 1)
		match := roster.Matches[0]

		assert.Nil(t, match.Result)
		assert.Equal(t, TeamNone, match.Winner)
		assert.Equal(t, []string{"a", "b"}, []string{match.Team1[0].ID, match.Team1[1].ID})
		assert.Equal(t, []string{"c", "d"}, []string{match.Team2[0].ID, match.Team2[1].ID})
		// d has no account; it still occupies its slot
		assert.True(t, match.Team2[1].Placeholder())
		assert.Equal(t, DeletedPlayerName, match.Team2[1].FullName())
		assert.Empty(t, roster.Diagnostics)
	})

	scoreCases := []struct {
		name   string
		t1, t2 *int
		want   Team
	}{
		{name: "team1 higher", t1: intPtr(11), t2: intPtr(7), want: Team1},
		{name: "team2 higher", t1: intPtr(3), t2: intPtr(11), want: Team2},
		{name: "equal scores", t1: intPtr(5), t2: intPtr(5), want: TeamNone},
		{name: "both scores absent", want: TeamNone},
		{name: "only team1 score present", t1: intPtr(1), want: Team1},
	}
	for _, tc := range scoreCases {
		t.Run(tc.name, func(t *testing.T) {
			row := doubles("m1", 1, [2]string{"a", "b"}, [2]string{"c", "d"}, TeamNone)
			row.Results = []RawResult{{Team1Score: tc.t1, Team2Score: tc.t2}}
			roster := BuildRoster([]RawMatch{row}, dir)
			require.NotNil(t, roster.Matches[0].Result)
			assert.Equal(t, tc.want, roster.Matches[0].Winner)
		})
	}
}

func TestBuildRosterIntegrityAnomalies(t *testing.T) {
	completed := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	row := doubles("m1", 1, [2]string{"a", "b"}, [2]string{"c", "d"}, TeamNone)
	row.Participants = append(row.Participants, RawParticipant{PlayerID: "e", TeamTag: "team3"})
	row.Results = []RawResult{
		{Team1Score: intPtr(0), Team2Score: intPtr(1), CompletedAt: &completed},
		{Team1Score: intPtr(1), Team2Score: intPtr(0)},
	}
	lonely := RawMatch{
		ID:             "m2",
		ScheduledOrder: 2,
		Participants:   []RawParticipant{{PlayerID: "a", TeamTag: TeamTag1}},
	}

	roster := BuildRoster([]RawMatch{row, lonely}, NewDirectory(nil))

	require.Len(t, roster.Matches, 2)
	match := roster.Matches[0]
	require.Len(t, match.Unassigned, 1)
	assert.Equal(t, "e", match.Unassigned[0].ID)
	assert.Len(t, match.Team1, 2)
	assert.Len(t, match.Team2, 2)
	assert.Equal(t, Team2, match.Winner, "first result wins")
	assert.Equal(t, &completed, match.Result.CompletedAt)

	kinds := make([]DiagnosticKind, 0, len(roster.Diagnostics))
	for _, d := range roster.Diagnostics {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []DiagnosticKind{
		DiagnosticUnknownTeamTag,
		DiagnosticDuplicateResult,
		DiagnosticEmptyTeam,
	}, kinds)
	assert.Equal(t, "e", roster.Diagnostics[0].PlayerID)
	assert.Equal(t, "m2", roster.Diagnostics[2].MatchID)
}

func TestRosterApply(t *testing.T) {
	rows := []RawMatch{
		doubles("m1", 1, [2]string{"a", "b"}, [2]string{"c", "d"}, TeamNone),
		doubles("m2", 2, [2]string{"a", "c"}, [2]string{"b", "d"}, Team2),
	}
	original := BuildRoster(rows, NewDirectory(nil))
	now := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

	change, err := ToggleWinner(TeamNone, Team1, now)
	require.NoError(t, err)

	updated, err := original.Apply("m1", change)
	require.NoError(t, err)
	assert.Equal(t, Team1, updated.Matches[0].Winner)
	assert.Equal(t, 1, updated.Matches[0].Result.Team1Score)
	assert.Nil(t, original.Matches[0].Result, "receiver must be left untouched")

	cleared, err := updated.Apply("m2", ResultChange{Action: ChangeDelete})
	require.NoError(t, err)
	assert.Nil(t, cleared.Matches[1].Result)
	assert.Equal(t, TeamNone, cleared.Matches[1].Winner)
	assert.Equal(t, Team2, updated.Matches[1].Winner)

	_, err = original.Apply("missing", change)
	assert.True(t, errors.Is(err, ErrMatchNotFound))
}

func TestRosterApplyClearsDuplicateResult(t *testing.T) {
	row := doubles("m1", 1, [2]string{"a", "b"}, [2]string{"c", "d"}, Team1)
	row.Results = append(row.Results, RawResult{Team1Score: intPtr(0), Team2Score: intPtr(1)})
	roster := BuildRoster([]RawMatch{row}, NewDirectory(nil))
	require.Len(t, roster.Diagnostics, 1)

	updated, err := roster.Apply("m1", ResultChange{Action: ChangeDelete})
	require.NoError(t, err)

	assert.Empty(t, updated.Diagnostics)
	assert.Len(t, roster.Diagnostics, 1)
}

func TestTeamText(t *testing.T) {
	for _, team := range []Team{TeamNone, Team1, Team2} {
		text, err := team.MarshalText()
		require.NoError(t, err)

		var decoded Team
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, team, decoded)
	}

	var decoded Team
	assert.True(t, errors.Is(decoded.UnmarshalText([]byte("team3")), ErrInvalidTeam))
}
