package standings

import (
	"sort"

	"golang.org/x/text/cases"
)

type TeamStats struct {
	Team   Team     `json:"team"`
	Roster []Player `json:"roster"`
	Wins   int      `json:"wins"`
	Losses int      `json:"losses"`
	Games  int      `json:"games"`
}

type PlayerStats struct {
	Player      Player `json:"player"`
	DisplayName string `json:"displayName"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Games       int    `json:"games"`
	// Appearances counts every match the player was slotted in, scored or not.
	Team1Appearances int `json:"team1Appearances"`
	Team2Appearances int `json:"team2Appearances"`
	// Side is a display heuristic: the slot the player occupied most often,
	// Team1 on a tie. A player split evenly across both slots is shown on Team1.
	Side Team `json:"side"`
}

func (s PlayerStats) Appearances() int {
	return s.Team1Appearances + s.Team2Appearances
}

type Standings struct {
	Team1   TeamStats     `json:"team1"`
	Team2   TeamStats     `json:"team2"`
	Players []PlayerStats `json:"players"`
}

// Aggregate computes slot and player standings from scratch. It only reads
// its input and is safe to call concurrently.
func Aggregate(matches []Match) Standings {
	team1 := newTeamTally(Team1)
	team2 := newTeamTally(Team2)
	index := make(map[string]*PlayerStats)
	order := make([]string, 0)

	for _, match := range matches {
		switch match.Winner {
		case Team1:
			team1.stats.Wins++
			team2.stats.Losses++
		case Team2:
			team2.stats.Wins++
			team1.stats.Losses++
		}

		for _, slot := range []*teamTally{team1, team2} {
			for _, player := range match.TeamPlayers(slot.stats.Team) {
				slot.add(player)

				entry, ok := index[player.ID]
				if !ok {
					entry = &PlayerStats{Player: player, DisplayName: player.FullName()}
					index[player.ID] = entry
					order = append(order, player.ID)
				}
				if slot.stats.Team == Team1 {
					entry.Team1Appearances++
				} else {
					entry.Team2Appearances++
				}

				switch match.Winner {
				case TeamNone:
				case slot.stats.Team:
					entry.Wins++
				default:
					entry.Losses++
				}
			}
		}
	}

	players := make([]PlayerStats, 0, len(order))
	for _, id := range order {
		entry := index[id]
		entry.Games = entry.Wins + entry.Losses
		entry.Side = Team1
		if entry.Team2Appearances > entry.Team1Appearances {
			entry.Side = Team2
		}
		players = append(players, *entry)
	}
	RankPlayers(players)

	team1.stats.Games = team1.stats.Wins + team1.stats.Losses
	team2.stats.Games = team2.stats.Wins + team2.stats.Losses

	return Standings{
		Team1:   team1.stats,
		Team2:   team2.stats,
		Players: players,
	}
}

// RankPlayers orders by wins, then games played, then display name ignoring
// case. Player id breaks any remaining tie so the order is reproducible.
func RankPlayers(players []PlayerStats) {
	fold := cases.Fold()
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Wins != players[j].Wins {
			return players[i].Wins > players[j].Wins
		}
		if players[i].Games != players[j].Games {
			return players[i].Games > players[j].Games
		}
		nameI := fold.String(players[i].DisplayName)
		nameJ := fold.String(players[j].DisplayName)
		if nameI != nameJ {
			return nameI < nameJ
		}
		return players[i].Player.ID < players[j].Player.ID
	})
}

type teamTally struct {
	stats TeamStats
	seen  map[string]struct{}
}

func newTeamTally(team Team) *teamTally {
	return &teamTally{
		stats: TeamStats{Team: team, Roster: []Player{}},
		seen:  make(map[string]struct{}),
	}
}

func (t *teamTally) add(player Player) {
	if _, ok := t.seen[player.ID]; ok {
		return
	}
	t.seen[player.ID] = struct{}{}
	t.stats.Roster = append(t.stats.Roster, player)
}
