package standings

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codr1/courtside/internal/sessions"
	engine "github.com/codr1/courtside/internal/standings"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func sampleView() engine.View {
	session := engine.Session{ID: "s1", CreatorID: "p1", PlayerCount: 4, LeagueName: strPtr("Tuesday <Ladder>")}
	rows := []engine.RawMatch{
		{
			ID:             "m1",
			SessionID:      "s1",
			ScheduledOrder: 1,
			Participants: []engine.RawParticipant{
				{PlayerID: "p1", TeamTag: engine.TeamTag1},
				{PlayerID: "p2", TeamTag: engine.TeamTag1},
				{PlayerID: "p3", TeamTag: engine.TeamTag2},
				{PlayerID: "p4", TeamTag: engine.TeamTag2},
			},
			Results: []engine.RawResult{{Team1Score: intPtr(0), Team2Score: intPtr(1)}},
		},
	}
	players := []engine.Player{
		{ID: "p1", FirstName: strPtr("Ann"), LastName: strPtr("Lee")},
		{ID: "p2", FirstName: strPtr("Bob"), LastName: strPtr("Ng")},
		{ID: "p3", FirstName: strPtr("Cat"), LastName: strPtr("Ho")},
	}
	return engine.BuildView(session, rows, players)
}

func TestSessionViewRendersStandings(t *testing.T) {
	var buf bytes.Buffer
	err := SessionView(SessionViewData{View: sampleView()}).Render(context.Background(), &buf)
	require.NoError(t, err)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<div id="session-view"`))
	assert.Contains(t, out, "Tuesday &lt;Ladder&gt;")
	assert.Contains(t, out, `data-winner="team2"`)
	assert.Contains(t, out, "Ann L &amp; Bob N")
	assert.Contains(t, out, engine.DeletedPlayerName)
	assert.NotContains(t, out, "hx-post", "read-only view has no toggle buttons")
}

func TestSessionViewEditorControls(t *testing.T) {
	data := SessionViewData{
		View:    sampleView(),
		CanEdit: true,
		Mutations: map[string]sessions.MutationState{
			"m1": {MatchID: "m1", Phase: sessions.MutationFailed, Error: "The result could not be saved. Please try again."},
		},
	}

	out := BuildSessionViewHTML(data)

	assert.Contains(t, out, `hx-post="/api/v1/sessions/s1/matches/m1/winner"`)
	assert.Contains(t, out, `hx-vals='{"team":1}'`)
	assert.Contains(t, out, `hx-vals='{"team":2}'`)
	assert.Contains(t, out, ">Clear</button>", "winning side offers to clear")
	assert.Contains(t, out, `role="alert">The result could not be saved. Please try again.</div>`)
}

func TestSessionViewEmpty(t *testing.T) {
	view := engine.BuildView(engine.Session{ID: "s2", PlayerCount: 8}, nil, nil)

	out := BuildSessionViewHTML(SessionViewData{View: view})

	assert.Contains(t, out, "No matches scheduled.")
	assert.Contains(t, out, "Game session")
}
