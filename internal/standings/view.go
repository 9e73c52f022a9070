package standings

import (
	"fmt"
	"time"
)

type Session struct {
	ID          string     `json:"id" db:"id"`
	LeagueID    *string    `json:"leagueId,omitempty" db:"league_id"`
	LeagueName  *string    `json:"leagueName,omitempty" db:"league_name"`
	CreatorID   string     `json:"creatorId" db:"created_by"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty" db:"scheduled_at"`
	PlayerCount int        `json:"playerCount" db:"player_count"`
}

// View is everything derived for one session load. It is built per request
// and handed to the presentation layer; nothing in it is shared.
type View struct {
	Session     Session      `json:"session"`
	Courts      int          `json:"courts"`
	Matches     []Match      `json:"matches"`
	Rounds      []Round      `json:"rounds"`
	Standings   Standings    `json:"standings"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func BuildView(session Session, rows []RawMatch, players []Player) View {
	roster := BuildRoster(rows, NewDirectory(players))
	if !SupportedPlayerCount(session.PlayerCount) {
		roster.Diagnostics = append(roster.Diagnostics, Diagnostic{
			Kind:   DiagnosticUnsupportedCount,
			Detail: fmt.Sprintf("session has unsupported player count %d", session.PlayerCount),
		})
	}
	return ViewFromRoster(session, roster)
}

func ViewFromRoster(session Session, roster Roster) View {
	courts := CourtsForPlayerCount(session.PlayerCount)
	return View{
		Session:     session,
		Courts:      courts,
		Matches:     roster.Matches,
		Rounds:      GroupRounds(roster.Matches, courts),
		Standings:   Aggregate(roster.Matches),
		Diagnostics: roster.Diagnostics,
	}
}

func (v View) Roster() Roster {
	return Roster{Matches: v.Matches, Diagnostics: v.Diagnostics}
}

// ReferencedPlayerIDs returns every distinct participant id across rows in
// first-seen order, including participants with unrecognized tags.
func ReferencedPlayerIDs(rows []RawMatch) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, row := range rows {
		for _, participant := range row.Participants {
			if _, ok := seen[participant.PlayerID]; ok {
				continue
			}
			seen[participant.PlayerID] = struct{}{}
			ids = append(ids, participant.PlayerID)
		}
	}
	return ids
}
