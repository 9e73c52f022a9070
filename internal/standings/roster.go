package standings

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrInvalidTeam   = errors.New("team must be team 1 or team 2")
)

// Team identifies a slot within a single match. TeamNone doubles as the
// "no winner" value.
type Team int

const (
	TeamNone Team = 0
	Team1    Team = 1
	Team2    Team = 2
)

const (
	TeamTag1 = "team1"
	TeamTag2 = "team2"
)

func (t Team) Valid() bool {
	return t == Team1 || t == Team2
}

func (t Team) Other() Team {
	switch t {
	case Team1:
		return Team2
	case Team2:
		return Team1
	default:
		return TeamNone
	}
}

func (t Team) String() string {
	switch t {
	case Team1:
		return TeamTag1
	case Team2:
		return TeamTag2
	default:
		return ""
	}
}

func (t Team) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the tags MarshalText produces, with "" as TeamNone.
func (t *Team) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = TeamNone
		return nil
	}
	team, ok := ParseTeamTag(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTeam, text)
	}
	*t = team
	return nil
}

// ParseTeamTag maps a stored participant tag to a team. Only the two exact
// tags are recognized.
func ParseTeamTag(tag string) (Team, bool) {
	switch tag {
	case TeamTag1:
		return Team1, true
	case TeamTag2:
		return Team2, true
	default:
		return TeamNone, false
	}
}

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchCompleted MatchStatus = "completed"
	MatchCanceled  MatchStatus = "canceled"
)

type RawParticipant struct {
	PlayerID string `db:"player_id"`
	TeamTag  string `db:"team"`
}

type RawResult struct {
	Team1Score  *int       `db:"team1_score"`
	Team2Score  *int       `db:"team2_score"`
	CompletedAt *time.Time `db:"completed_at"`
}

// RawMatch is a match row with its joined participant and result rows. Both
// joins are always slices, whatever shape the source returned.
type RawMatch struct {
	ID             string
	SessionID      string
	CourtNumber    *int
	ScheduledOrder int
	Status         string
	Participants   []RawParticipant
	Results        []RawResult
}

type Result struct {
	Team1Score  int        `json:"team1Score"`
	Team2Score  int        `json:"team2Score"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Winner compares scores strictly; equal scores have no winner.
func (r *Result) Winner() Team {
	if r == nil {
		return TeamNone
	}
	switch {
	case r.Team1Score > r.Team2Score:
		return Team1
	case r.Team2Score > r.Team1Score:
		return Team2
	default:
		return TeamNone
	}
}

type Match struct {
	ID             string      `json:"id"`
	SessionID      string      `json:"sessionId"`
	CourtNumber    *int        `json:"courtNumber,omitempty"`
	ScheduledOrder int         `json:"scheduledOrder"`
	Status         MatchStatus `json:"status"`
	Team1          []Player    `json:"team1"`
	Team2          []Player    `json:"team2"`
	// Unassigned holds participants whose team tag was not recognized.
	Unassigned []Player `json:"unassigned,omitempty"`
	Result     *Result  `json:"result,omitempty"`
	Winner     Team     `json:"winner"`
}

func (m Match) TeamPlayers(team Team) []Player {
	switch team {
	case Team1:
		return m.Team1
	case Team2:
		return m.Team2
	default:
		return nil
	}
}

type DiagnosticKind string

const (
	DiagnosticUnknownTeamTag   DiagnosticKind = "unknown_team_tag"
	DiagnosticDuplicateResult  DiagnosticKind = "duplicate_result"
	DiagnosticEmptyTeam        DiagnosticKind = "empty_team"
	DiagnosticUnsupportedCount DiagnosticKind = "unsupported_player_count"
)

// Diagnostic records an integrity anomaly found while normalizing rows. The
// offending row is flagged, never dropped.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	MatchID  string         `json:"matchId,omitempty"`
	PlayerID string         `json:"playerId,omitempty"`
	Detail   string         `json:"detail"`
}

type Roster struct {
	Matches     []Match      `json:"matches"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func BuildRoster(rows []RawMatch, dir Directory) Roster {
	ordered := make([]RawMatch, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ScheduledOrder < ordered[j].ScheduledOrder
	})

	roster := Roster{
		Matches:     make([]Match, 0, len(ordered)),
		Diagnostics: []Diagnostic{},
	}
	for _, row := range ordered {
		match, diagnostics := normalizeMatch(row, dir)
		roster.Matches = append(roster.Matches, match)
		roster.Diagnostics = append(roster.Diagnostics, diagnostics...)
	}
	return roster
}

func normalizeMatch(row RawMatch, dir Directory) (Match, []Diagnostic) {
	var diagnostics []Diagnostic
	match := Match{
		ID:             row.ID,
		SessionID:      row.SessionID,
		CourtNumber:    row.CourtNumber,
		ScheduledOrder: row.ScheduledOrder,
		Status:         MatchStatus(row.Status),
		Team1:          []Player{},
		Team2:          []Player{},
	}

	for _, participant := range row.Participants {
		player := dir.Lookup(participant.PlayerID)
		team, ok := ParseTeamTag(participant.TeamTag)
		if !ok {
			match.Unassigned = append(match.Unassigned, player)
			diagnostics = append(diagnostics, Diagnostic{
				Kind:     DiagnosticUnknownTeamTag,
				MatchID:  row.ID,
				PlayerID: participant.PlayerID,
				Detail:   fmt.Sprintf("participant has unrecognized team tag %q", participant.TeamTag),
			})
			continue
		}
		if team == Team1 {
			match.Team1 = append(match.Team1, player)
		} else {
			match.Team2 = append(match.Team2, player)
		}
	}

	for _, team := range []Team{Team1, Team2} {
		if len(match.TeamPlayers(team)) == 0 {
			diagnostics = append(diagnostics, Diagnostic{
				Kind:    DiagnosticEmptyTeam,
				MatchID: row.ID,
				Detail:  fmt.Sprintf("%s has no participants", team),
			})
		}
	}

	if len(row.Results) > 1 {
		diagnostics = append(diagnostics, Diagnostic{
			Kind:    DiagnosticDuplicateResult,
			MatchID: row.ID,
			Detail:  fmt.Sprintf("match has %d results; using the first", len(row.Results)),
		})
	}
	if len(row.Results) > 0 {
		raw := row.Results[0]
		match.Result = &Result{
			Team1Score:  intOrZero(raw.Team1Score),
			Team2Score:  intOrZero(raw.Team2Score),
			CompletedAt: raw.CompletedAt,
		}
	}
	match.Winner = match.Result.Winner()

	return match, diagnostics
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// Apply returns a copy of the roster with change applied to one match. The
// receiver is never modified, so a failed write can simply discard the copy.
func (r Roster) Apply(matchID string, change ResultChange) (Roster, error) {
	idx := -1
	for i := range r.Matches {
		if r.Matches[i].ID == matchID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return r, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	matches := make([]Match, len(r.Matches))
	copy(matches, r.Matches)

	updated := matches[idx]
	switch change.Action {
	case ChangeDelete:
		updated.Result = nil
		if updated.Status != MatchCanceled {
			updated.Status = MatchScheduled
		}
	case ChangeUpsert:
		result := change.Result
		updated.Result = &result
		if updated.Status != MatchCanceled {
			updated.Status = MatchCompleted
		}
	default:
		return r, fmt.Errorf("unknown result change action %q", change.Action)
	}
	updated.Winner = updated.Result.Winner()
	matches[idx] = updated

	// the write replaces every stored result, so a duplicate is gone
	diagnostics := make([]Diagnostic, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		if d.Kind == DiagnosticDuplicateResult && d.MatchID == matchID {
			continue
		}
		diagnostics = append(diagnostics, d)
	}
	return Roster{Matches: matches, Diagnostics: diagnostics}, nil
}

func (r Roster) Match(matchID string) (Match, bool) {
	for _, m := range r.Matches {
		if m.ID == matchID {
			return m, true
		}
	}
	return Match{}, false
}
