package standings

import "fmt"

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func named(id, first, last string) Player {
	return Player{ID: id, FirstName: strPtr(first), LastName: strPtr(last)}
}

// doubles builds a 2v2 raw match row. winner 0 leaves the match unscored.
func doubles(id string, order int, team1, team2 [2]string, winner Team) RawMatch {
	row := RawMatch{
		ID:             id,
		SessionID:      "session-1",
		ScheduledOrder: order,
		Status:         string(MatchScheduled),
		Participants: []RawParticipant{
			{PlayerID: team1[0], TeamTag: TeamTag1},
			{PlayerID: team1[1], TeamTag: TeamTag1},
			{PlayerID: team2[0], TeamTag: TeamTag2},
			{PlayerID: team2[1], TeamTag: TeamTag2},
		},
	}
	switch winner {
	case Team1:
		row.Results = []RawResult{{Team1Score: intPtr(1), Team2Score: intPtr(0)}}
	case Team2:
		row.Results = []RawResult{{Team1Score: intPtr(0), Team2Score: intPtr(1)}}
	}
	return row
}

func matchIDs(matches []Match) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return ids
}

func simpleMatches(n int) []Match {
	matches := make([]Match, 0, n)
	for i := 1; i <= n; i++ {
		matches = append(matches, Match{ID: fmt.Sprintf("m%d", i), ScheduledOrder: i})
	}
	return matches
}
