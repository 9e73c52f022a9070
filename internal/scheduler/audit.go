package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/sessions"
)

const auditJobName = "session_integrity_audit"

// Auditor is satisfied by *sessions.Service.
type Auditor interface {
	Audit(ctx context.Context) (sessions.AuditReport, error)
}

// RegisterAuditJob schedules the session integrity audit. An empty cron
// expression leaves the audit disabled and registers nothing.
func RegisterAuditJob(s *Service, auditor Auditor, cronExpr string) (gocron.Job, error) {
	if strings.TrimSpace(cronExpr) == "" {
		log.Info().Msg("Session integrity audit disabled")
		return nil, nil
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit job requires an auditor")
	}

	return s.AddJob(auditJobName, cronExpr, func(ctx context.Context) {
		logger := log.Ctx(ctx).With().Str("component", "session_audit_job").Logger()

		report, err := auditor.Audit(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Session integrity audit failed")
			return
		}
		for _, finding := range report.Findings {
			logger.Warn().
				Str("session_id", finding.SessionID).
				Str("match_id", finding.MatchID).
				Str("kind", string(finding.Kind)).
				Msg(finding.Detail)
		}
	})
}
