package standings

import (
	"fmt"
	"time"
)

type ResultState string

const (
	StateNoResult ResultState = "no_result"
	StateTeam1Win ResultState = "team1_win"
	StateTeam2Win ResultState = "team2_win"
)

func StateForWinner(winner Team) ResultState {
	switch winner {
	case Team1:
		return StateTeam1Win
	case Team2:
		return StateTeam2Win
	default:
		return StateNoResult
	}
}

type ChangeAction string

const (
	ChangeUpsert ChangeAction = "upsert"
	ChangeDelete ChangeAction = "delete"
)

// ResultChange is the single write a toggle produces: replace the match
// result with Result, or delete it.
type ResultChange struct {
	Action ChangeAction
	Result Result
}

func (c ResultChange) Winner() Team {
	if c.Action != ChangeUpsert {
		return TeamNone
	}
	return c.Result.Winner()
}

// ToggleWinner is the transition function of the result state machine.
// Toggling the current winner clears the result; toggling any other team
// records a 1-0 win for it stamped with now.
func ToggleWinner(current Team, team Team, now time.Time) (ResultChange, error) {
	if !team.Valid() {
		return ResultChange{}, fmt.Errorf("%w: got %d", ErrInvalidTeam, int(team))
	}
	if current == team {
		return ResultChange{Action: ChangeDelete}, nil
	}

	completedAt := now
	result := Result{CompletedAt: &completedAt}
	if team == Team1 {
		result.Team1Score, result.Team2Score = 1, 0
	} else {
		result.Team1Score, result.Team2Score = 0, 1
	}
	return ResultChange{Action: ChangeUpsert, Result: result}, nil
}
