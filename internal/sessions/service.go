package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/courtside/internal/events"
	"github.com/codr1/courtside/internal/standings"
)

type Options struct {
	Clock        clockwork.Clock
	Publisher    events.Publisher
	QueryTimeout time.Duration
}

// Service loads session views and drives result changes on top of a Store.
type Service struct {
	store        Store
	clock        clockwork.Clock
	tracker      *MutationTracker
	publisher    events.Publisher
	queryTimeout time.Duration
}

func NewService(store Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("session service requires a store")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NoopPublisher{}
	}
	return &Service{
		store:        store,
		clock:        opts.Clock,
		tracker:      NewMutationTracker(opts.Clock),
		publisher:    opts.Publisher,
		queryTimeout: opts.QueryTimeout,
	}, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// Load reads one session and derives its view. The session row and match
// rows are fetched concurrently; players are fetched once for every id the
// matches reference.
func (s *Service) Load(ctx context.Context, sessionID string) (standings.View, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		session standings.Session
		rows    []standings.RawMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		session, err = s.store.GetSession(gctx, sessionID)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.store.ListMatches(gctx, sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return standings.View{}, err
	}

	players, err := s.store.ListPlayers(ctx, standings.ReferencedPlayerIDs(rows))
	if err != nil {
		return standings.View{}, err
	}

	view := standings.BuildView(session, rows, players)
	logDiagnostics(ctx, sessionID, view.Diagnostics)
	return view, nil
}

func logDiagnostics(ctx context.Context, sessionID string, diagnostics []standings.Diagnostic) {
	if len(diagnostics) == 0 {
		return
	}
	logger := log.Ctx(ctx).With().
		Str("component", "sessions").
		Str("session_id", sessionID).
		Logger()
	for _, d := range diagnostics {
		logger.Warn().
			Str("kind", string(d.Kind)).
			Str("match_id", d.MatchID).
			Str("player_id", d.PlayerID).
			Msg(d.Detail)
	}
}

// ToggleWinner applies the result toggle for team on one match, on behalf of
// actorID. On success it returns the view with the change folded in. When
// the write fails it returns the view as it was before the toggle together
// with a *MutationError.
func (s *Service) ToggleWinner(ctx context.Context, actorID, sessionID, matchID string, team standings.Team) (standings.View, error) {
	if !team.Valid() {
		return standings.View{}, fmt.Errorf("%w: got %d", standings.ErrInvalidTeam, int(team))
	}

	logger := log.Ctx(ctx).With().
		Str("component", "sessions").
		Str("session_id", sessionID).
		Str("match_id", matchID).
		Str("actor_id", actorID).
		Logger()

	previous, err := s.tracker.Begin(matchID)
	if err != nil {
		logger.Info().Msg("Result change rejected while another is pending")
		return standings.View{}, err
	}

	view, match, err := s.loadEditable(ctx, actorID, sessionID, matchID)
	if err != nil {
		s.tracker.restore(previous)
		return standings.View{}, err
	}

	change, err := standings.ToggleWinner(match.Winner, team, s.clock.Now())
	if err != nil {
		s.tracker.restore(previous)
		return standings.View{}, err
	}

	writeCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.ApplyResultChange(writeCtx, matchID, change); err != nil {
		mutationErr := &MutationError{SessionID: sessionID, MatchID: matchID, Err: err}
		s.tracker.Fail(matchID, mutationErr.UserMessage())
		logger.Error().Err(err).Msg("Failed to record match result")
		return view, mutationErr
	}
	s.tracker.Succeed(matchID)

	roster, err := view.Roster().Apply(matchID, change)
	if err != nil {
		return standings.View{}, err
	}
	updated := standings.ViewFromRoster(view.Session, roster)

	logger.Info().
		Str("action", string(change.Action)).
		Str("winner", change.Winner().String()).
		Msg("Recorded match result")

	s.publish(ctx, logger, events.ResultChanged{
		EventID:    uuid.NewString(),
		SessionID:  sessionID,
		MatchID:    matchID,
		Winner:     change.Winner(),
		Action:     change.Action,
		OccurredAt: s.clock.Now().UTC(),
	})

	return updated, nil
}

func (s *Service) loadEditable(ctx context.Context, actorID, sessionID, matchID string) (standings.View, standings.Match, error) {
	view, err := s.Load(ctx, sessionID)
	if err != nil {
		return standings.View{}, standings.Match{}, err
	}
	if actorID == "" || view.Session.CreatorID != actorID {
		return standings.View{}, standings.Match{}, ErrNotEditor
	}
	match, ok := view.Roster().Match(matchID)
	if !ok {
		return standings.View{}, standings.Match{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return view, match, nil
}

func (s *Service) publish(ctx context.Context, logger zerolog.Logger, event events.ResultChanged) {
	if err := s.publisher.PublishResultChanged(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event_id", event.EventID).Msg("Failed to publish result change")
	}
}

// MutationState reports the latest result change lifecycle for a match.
func (s *Service) MutationState(matchID string) MutationState {
	return s.tracker.State(matchID)
}

type AuditFinding struct {
	SessionID string `json:"sessionId"`
	standings.Diagnostic
}

type AuditReport struct {
	SessionsScanned int            `json:"sessionsScanned"`
	SessionsFailed  int            `json:"sessionsFailed"`
	Findings        []AuditFinding `json:"findings"`
}

// Audit rebuilds every session and collects its integrity diagnostics. A
// session that fails to load is counted and skipped.
func (s *Service) Audit(ctx context.Context) (AuditReport, error) {
	logger := log.Ctx(ctx).With().Str("component", "sessions_audit").Logger()

	listCtx, cancel := s.withTimeout(ctx)
	ids, err := s.store.ListSessionIDs(listCtx)
	cancel()
	if err != nil {
		return AuditReport{}, err
	}

	report := AuditReport{Findings: []AuditFinding{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		view, err := s.Load(ctx, id)
		if err != nil {
			report.SessionsFailed++
			logger.Error().Err(err).Str("session_id", id).Msg("Failed to load session for audit")
			continue
		}
		report.SessionsScanned++
		for _, d := range view.Diagnostics {
			report.Findings = append(report.Findings, AuditFinding{SessionID: id, Diagnostic: d})
		}
	}

	logger.Info().
		Int("sessions_scanned", report.SessionsScanned).
		Int("sessions_failed", report.SessionsFailed).
		Int("findings", len(report.Findings)).
		Msg("Completed session integrity audit")
	return report, nil
}
