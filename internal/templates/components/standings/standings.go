// Package standings renders session views as HTML fragments.
package standings

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/codr1/courtside/internal/sessions"
	engine "github.com/codr1/courtside/internal/standings"
)

const ViewElementID = "session-view"

type SessionViewData struct {
	View    engine.View
	CanEdit bool
	// Mutations holds the latest result change state per match id.
	Mutations map[string]sessions.MutationState
}

func SessionView(data SessionViewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, BuildSessionViewHTML(data))
		return err
	})
}

func BuildSessionViewHTML(data SessionViewData) string {
	view := data.View
	var builder strings.Builder

	fmt.Fprintf(&builder, `<div id="%s" class="space-y-6">`, ViewElementID)
	builder.WriteString(`<div class="flex items-center justify-between">`)
	fmt.Fprintf(&builder, `<h1 class="text-2xl font-semibold">%s</h1>`, html.EscapeString(SessionTitle(view.Session)))
	fmt.Fprintf(&builder, `<div class="text-xs text-gray-500">%d players, %d %s</div></div>`,
		view.Session.PlayerCount, view.Courts, plural(view.Courts, "court", "courts"))

	builder.WriteString(buildDiagnosticsHTML(view.Diagnostics))
	builder.WriteString(buildTeamSummaryHTML(view.Standings))
	builder.WriteString(buildRoundsHTML(data))
	builder.WriteString(buildPlayerTableHTML(view.Standings.Players))
	builder.WriteString(`</div>`)
	return builder.String()
}

// SessionTitle prefers the league name and falls back to a generic label.
func SessionTitle(session engine.Session) string {
	if session.LeagueName != nil && strings.TrimSpace(*session.LeagueName) != "" {
		return strings.TrimSpace(*session.LeagueName)
	}
	return "Game session"
}

func buildDiagnosticsHTML(diagnostics []engine.Diagnostic) string {
	if len(diagnostics) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(`<div class="rounded border border-yellow-300 bg-yellow-50 p-3 text-xs text-yellow-800"><ul>`)
	for _, d := range diagnostics {
		fmt.Fprintf(&builder, `<li data-kind="%s">%s</li>`, html.EscapeString(string(d.Kind)), html.EscapeString(d.Detail))
	}
	builder.WriteString(`</ul></div>`)
	return builder.String()
}

func buildTeamSummaryHTML(s engine.Standings) string {
	var builder strings.Builder
	builder.WriteString(`<div class="grid grid-cols-2 gap-4">`)
	for _, team := range []engine.TeamStats{s.Team1, s.Team2} {
		fmt.Fprintf(&builder, `<div class="rounded border bg-white p-4" data-team="%s">`, team.Team)
		fmt.Fprintf(&builder, `<div class="text-sm font-medium">%s</div>`, teamLabel(team.Team))
		fmt.Fprintf(&builder, `<div class="text-lg font-semibold" data-record>%d-%d</div>`, team.Wins, team.Losses)
		builder.WriteString(`</div>`)
	}
	builder.WriteString(`</div>`)
	return builder.String()
}

func buildRoundsHTML(data SessionViewData) string {
	rounds := data.View.Rounds
	if len(rounds) == 0 {
		return `<div class="rounded border border-dashed p-6 text-center text-sm text-gray-500">No matches scheduled.</div>`
	}

	var builder strings.Builder
	builder.WriteString(`<div class="space-y-4">`)
	for _, round := range rounds {
		fmt.Fprintf(&builder, `<section data-round="%d"><h2 class="text-sm font-semibold text-gray-700">Round %d</h2>`, round.Number, round.Number)
		builder.WriteString(`<div class="grid gap-3 md:grid-cols-3">`)
		for _, match := range round.Matches {
			builder.WriteString(buildMatchCardHTML(data, match))
		}
		builder.WriteString(`</div></section>`)
	}
	builder.WriteString(`</div>`)
	return builder.String()
}

func buildMatchCardHTML(data SessionViewData, match engine.Match) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, `<div class="rounded border bg-white p-3" id="match-%s" data-winner="%s">`,
		html.EscapeString(match.ID), match.Winner)
	if match.CourtNumber != nil {
		fmt.Fprintf(&builder, `<div class="text-xs text-gray-500">Court %d</div>`, *match.CourtNumber)
	}

	for _, team := range []engine.Team{engine.Team1, engine.Team2} {
		classes := "flex items-center justify-between py-1"
		if match.Winner == team {
			classes += " font-semibold text-green-700"
		}
		fmt.Fprintf(&builder, `<div class="%s"><span>%s</span>`, classes, html.EscapeString(teamNames(match.TeamPlayers(team))))
		if data.CanEdit {
			label := "Won"
			if match.Winner == team {
				label = "Clear"
			}
			fmt.Fprintf(&builder,
				`<button type="button" class="text-xs underline" hx-post="/api/v1/sessions/%s/matches/%s/winner" hx-vals='{"team":%d}' hx-target="#%s" hx-swap="outerHTML">%s</button>`,
				html.EscapeString(data.View.Session.ID), html.EscapeString(match.ID), int(team), ViewElementID, label)
		}
		builder.WriteString(`</div>`)
	}

	if state, ok := data.Mutations[match.ID]; ok && state.Phase == sessions.MutationFailed {
		fmt.Fprintf(&builder, `<div class="mt-1 text-xs text-red-600" role="alert">%s</div>`, html.EscapeString(state.Error))
	}
	builder.WriteString(`</div>`)
	return builder.String()
}

func buildPlayerTableHTML(players []engine.PlayerStats) string {
	var builder strings.Builder
	builder.WriteString(`<table class="w-full text-sm"><thead><tr class="text-left text-gray-500">`)
	builder.WriteString(`<th>#</th><th>Player</th><th>Side</th><th>W</th><th>L</th></tr></thead><tbody>`)
	for i, p := range players {
		fmt.Fprintf(&builder, `<tr data-player="%s"><td>%d</td><td>%s</td><td>%s</td><td>%d</td><td>%d</td></tr>`,
			html.EscapeString(p.Player.ID), i+1, html.EscapeString(p.DisplayName), teamLabel(p.Side), p.Wins, p.Losses)
	}
	builder.WriteString(`</tbody></table>`)
	return builder.String()
}

func teamNames(players []engine.Player) string {
	if len(players) == 0 {
		return "-"
	}
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.ShortName())
	}
	return strings.Join(names, " & ")
}

func teamLabel(team engine.Team) string {
	switch team {
	case engine.Team1:
		return "Team 1"
	case engine.Team2:
		return "Team 2"
	default:
		return ""
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
