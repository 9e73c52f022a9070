package standings

// SupportedPlayerCounts lists the session sizes the scheduler produces.
var SupportedPlayerCounts = []int{6, 8, 10, 12}

func SupportedPlayerCount(n int) bool {
	for _, supported := range SupportedPlayerCounts {
		if n == supported {
			return true
		}
	}
	return false
}

// CourtsForPlayerCount is the number of simultaneous courts for a session size.
func CourtsForPlayerCount(playerCount int) int {
	switch {
	case playerCount >= 12:
		return 3
	case playerCount >= 8:
		return 2
	default:
		return 1
	}
}

type Round struct {
	Number  int     `json:"number"`
	Matches []Match `json:"matches"`
}

// GroupRounds chunks the ordered matches positionally: match i belongs to
// round i/courts. It does not infer concurrency from court numbers.
func GroupRounds(matches []Match, courts int) []Round {
	if courts < 1 {
		courts = 1
	}
	if len(matches) == 0 {
		return []Round{}
	}

	rounds := make([]Round, 0, (len(matches)+courts-1)/courts)
	for start := 0; start < len(matches); start += courts {
		end := start + courts
		if end > len(matches) {
			end = len(matches)
		}
		chunk := make([]Match, end-start)
		copy(chunk, matches[start:end])
		rounds = append(rounds, Round{
			Number:  len(rounds) + 1,
			Matches: chunk,
		})
	}
	return rounds
}
