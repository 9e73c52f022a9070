// internal/api/sessions/handlers.go
package sessions

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/api/apiutil"
	"github.com/codr1/courtside/internal/api/authz"
	"github.com/codr1/courtside/internal/ratelimit"
	appsessions "github.com/codr1/courtside/internal/sessions"
	"github.com/codr1/courtside/internal/standings"
	standingstempl "github.com/codr1/courtside/internal/templates/components/standings"
	"github.com/codr1/courtside/internal/templates/layouts"
)

const (
	sessionIDPathKey = "id"
	matchIDPathKey   = "matchID"
)

var (
	service *appsessions.Service
	limiter *ratelimit.Limiter
)

type toggleRequest struct {
	Team int `json:"team"`
}

type mutationFailureResponse struct {
	Error string         `json:"error"`
	View  standings.View `json:"view"`
}

type rateLimitResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

// InitHandlers must be called during server startup before handling requests.
// A nil limiter disables rate limiting of result changes.
func InitHandlers(svc *appsessions.Service, rl *ratelimit.Limiter) {
	service = svc
	limiter = rl
}

// GET /sessions/{id}
func HandleSessionPage(w http.ResponseWriter, r *http.Request) {
	if !requireService(w, r) {
		return
	}
	sessionID := strings.TrimSpace(r.PathValue(sessionIDPathKey))

	view, err := service.Load(r.Context(), sessionID)
	if err != nil {
		apiutil.WriteError(w, r, handlerErrorFor(err))
		return
	}

	data := viewData(r, view)
	page := layouts.Base(standingstempl.SessionTitle(view.Session), standingstempl.SessionView(data))
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render session page", "Failed to render page")
}

// GET /api/v1/sessions/{id}
func HandleSessionView(w http.ResponseWriter, r *http.Request) {
	if !requireService(w, r) {
		return
	}
	sessionID := strings.TrimSpace(r.PathValue(sessionIDPathKey))

	view, err := service.Load(r.Context(), sessionID)
	if err != nil {
		apiutil.WriteError(w, r, handlerErrorFor(err))
		return
	}

	writeView(w, r, http.StatusOK, view)
}

// POST /api/v1/sessions/{id}/matches/{matchID}/winner
func HandleToggleWinner(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !requireService(w, r) {
		return
	}
	sessionID := strings.TrimSpace(r.PathValue(sessionIDPathKey))
	matchID := strings.TrimSpace(r.PathValue(matchIDPathKey))

	user, err := authz.RequireUser(r.Context())
	if err != nil {
		apiutil.WriteError(w, r, handlerErrorFor(err))
		return
	}

	team, err := parseTeam(r)
	if err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "team must be 1 or 2", Err: err})
		return
	}

	if limiter != nil {
		result := limiter.Allow(user.ID)
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.Warn().
				Str("user_id", user.ID).
				Str("reason", result.Reason).
				Int("retry_after_seconds", retryAfter).
				Msg("Result change rate limited")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			if err := apiutil.WriteJSON(w, http.StatusTooManyRequests, rateLimitResponse{
				Error:             "Too many result changes. Please wait and try again.",
				RetryAfterSeconds: retryAfter,
			}); err != nil {
				logger.Error().Err(err).Msg("Failed to write rate limit response")
			}
			return
		}
	}

	view, err := service.ToggleWinner(r.Context(), user.ID, sessionID, matchID, team)
	if err != nil {
		var mutationErr *appsessions.MutationError
		if errors.As(err, &mutationErr) {
			writeMutationFailure(w, r, view, mutationErr)
			return
		}
		apiutil.WriteError(w, r, handlerErrorFor(err))
		return
	}

	writeView(w, r, http.StatusOK, view)
}

// GET /api/v1/sessions/{id}/matches/{matchID}/mutation
func HandleMutationState(w http.ResponseWriter, r *http.Request) {
	if !requireService(w, r) {
		return
	}
	matchID := strings.TrimSpace(r.PathValue(matchIDPathKey))
	if matchID == "" {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "match id is required"})
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, service.MutationState(matchID)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write mutation state response")
	}
}

func requireService(w http.ResponseWriter, r *http.Request) bool {
	if service != nil {
		return true
	}
	log.Ctx(r.Context()).Error().Msg("Session service not initialized")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	return false
}

// parseTeam accepts {"team": n} as JSON or team=n as a form field, which is
// what htmx sends for hx-vals.
func parseTeam(r *http.Request) (standings.Team, error) {
	var raw int
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req toggleRequest
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			return standings.TeamNone, err
		}
		raw = req.Team
	} else {
		if err := r.ParseForm(); err != nil {
			return standings.TeamNone, err
		}
		value, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("team")))
		if err != nil {
			return standings.TeamNone, err
		}
		raw = value
	}

	team := standings.Team(raw)
	if !team.Valid() {
		return standings.TeamNone, standings.ErrInvalidTeam
	}
	return team, nil
}

func handlerErrorFor(err error) apiutil.HandlerError {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		return apiutil.HandlerError{Status: http.StatusUnauthorized, Message: "Authentication required", Err: err}
	case errors.Is(err, appsessions.ErrNotEditor):
		return apiutil.HandlerError{Status: http.StatusForbidden, Message: "Only the session creator can record results", Err: err}
	case errors.Is(err, appsessions.ErrSessionNotFound):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Session not found", Err: err}
	case errors.Is(err, appsessions.ErrMatchNotFound), errors.Is(err, standings.ErrMatchNotFound):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Match not found", Err: err}
	case errors.Is(err, appsessions.ErrMutationInFlight):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "A result change for this match is already in progress", Err: err}
	case errors.Is(err, standings.ErrInvalidTeam):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "team must be 1 or 2", Err: err}
	default:
		return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
	}
}

// writeMutationFailure answers with the unchanged view. The fragment carries
// the failure message next to the match.
func writeMutationFailure(w http.ResponseWriter, r *http.Request, view standings.View, mutationErr *appsessions.MutationError) {
	logger := log.Ctx(r.Context())
	if apiutil.IsHTMXRequest(r) {
		component := standingstempl.SessionView(viewData(r, view))
		apiutil.RenderHTMLComponentStatus(r.Context(), w, http.StatusInternalServerError, component, nil,
			"Failed to render session view", "Failed to render session")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusInternalServerError, mutationFailureResponse{
		Error: mutationErr.UserMessage(),
		View:  view,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to write mutation failure response")
	}
}

func writeView(w http.ResponseWriter, r *http.Request, status int, view standings.View) {
	if apiutil.IsHTMXRequest(r) {
		component := standingstempl.SessionView(viewData(r, view))
		apiutil.RenderHTMLComponentStatus(r.Context(), w, status, component, nil,
			"Failed to render session view", "Failed to render session")
		return
	}
	if err := apiutil.WriteJSON(w, status, view); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write session view response")
	}
}

func viewData(r *http.Request, view standings.View) standingstempl.SessionViewData {
	user := authz.UserFromContext(r.Context())
	data := standingstempl.SessionViewData{
		View:      view,
		CanEdit:   user != nil && user.ID != "" && user.ID == view.Session.CreatorID,
		Mutations: map[string]appsessions.MutationState{},
	}
	for _, match := range view.Matches {
		state := service.MutationState(match.ID)
		if state.Phase != appsessions.MutationIdle {
			data.Mutations[match.ID] = state
		}
	}
	return data
}
