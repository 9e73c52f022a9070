package standings

import (
	"strings"
)

// DeletedPlayerName is shown for participants whose account no longer exists.
const DeletedPlayerName = "Deleted player"

type Player struct {
	ID          string   `json:"id" db:"id"`
	FirstName   *string  `json:"firstName" db:"first_name"`
	LastName    *string  `json:"lastName" db:"last_name"`
	Email       *string  `json:"email" db:"email"`
	SkillRating *float64 `json:"skillRating" db:"skill_rating"`
}

// FullName renders "{first} {last}", falling back to DeletedPlayerName.
func (p Player) FullName() string {
	name := strings.TrimSpace(trimmed(p.FirstName) + " " + trimmed(p.LastName))
	if name == "" {
		return DeletedPlayerName
	}
	return name
}

// ShortName renders "{first} {lastInitial}" when both names are known.
func (p Player) ShortName() string {
	first := trimmed(p.FirstName)
	last := trimmed(p.LastName)
	switch {
	case first != "" && last != "":
		initial := []rune(last)[0]
		return first + " " + string(initial)
	case first != "":
		return first
	case last != "":
		return last
	default:
		return DeletedPlayerName
	}
}

// Placeholder reports whether the player has no display fields, which is the
// case for synthetic records returned for deleted accounts.
func (p Player) Placeholder() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.SkillRating == nil
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

// Directory resolves participant ids to player records for one session load.
type Directory struct {
	players map[string]Player
}

func NewDirectory(players []Player) Directory {
	index := make(map[string]Player, len(players))
	for _, p := range players {
		if p.ID == "" {
			continue
		}
		index[p.ID] = p
	}
	return Directory{players: index}
}

// Lookup never fails: unknown ids resolve to a placeholder carrying only the id.
func (d Directory) Lookup(id string) Player {
	if p, ok := d.players[id]; ok {
		return p
	}
	return Player{ID: id}
}

func (d Directory) Len() int {
	return len(d.players)
}
