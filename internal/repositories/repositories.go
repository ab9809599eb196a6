// Package repositories persists funnel state behind small interfaces so
// services can run against postgres in production and fakes in tests.
package repositories

import (
	"context"
	"time"

	"github.com/burnoutcheck/backend/internal/apperr"
	"github.com/burnoutcheck/backend/internal/models"
	"gorm.io/gorm"
)

// SessionRepository stores sessions. Get never returns a session whose
// expiry window has passed.
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, token string) (*models.Session, error)
	Update(ctx context.Context, s *models.Session) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CodeRepository stores one-time codes. Create, IncrementAttempts and
// MarkVerified report whether a row was written.
type CodeRepository interface {
	Latest(ctx context.Context, token string, ch models.Channel) (*models.OneTimeCode, error)
	Get(ctx context.Context, id string) (*models.OneTimeCode, error)
	Create(ctx context.Context, c *models.OneTimeCode) (bool, error)
	IncrementAttempts(ctx context.Context, id string, maxAttempts int) (bool, error)
	MarkVerified(ctx context.Context, id string, maxAttempts int) (bool, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AssessmentRepository stores the single assessment of a session.
type AssessmentRepository interface {
	Create(ctx context.Context, a *models.Assessment) (bool, error)
	Get(ctx context.Context, token string) (*models.Assessment, error)
}

// ReportRepository stores the single report of a session.
type ReportRepository interface {
	Create(ctx context.Context, r *models.Report) (bool, error)
	Get(ctx context.Context, token string) (*models.Report, error)
	MarkEmailSent(ctx context.Context, token string, at time.Time) (bool, error)
}

// Repositories bundles every repository the services need.
type Repositories struct {
	Sessions    SessionRepository
	Codes       CodeRepository
	Assessments AssessmentRepository
	Reports     ReportRepository
}

// Errors returned by the repositories.
var (
	ErrSessionNotFound    = apperr.NotFound("Session not found")
	ErrCodeNotFound       = apperr.NotFound("Code not found")
	ErrAssessmentNotFound = apperr.NotFound("Assessment not found")
	ErrReportNotFound     = apperr.NotFound("Report not found")
	ErrSessionExists      = apperr.Conflict("Session already exists")
)

// New wires every gorm repository on db.
func New(db *gorm.DB, sessionExpiry time.Duration) *Repositories {
	return &Repositories{
		Sessions:    NewSessionRepository(db, sessionExpiry),
		Codes:       NewCodeRepository(db),
		Assessments: NewAssessmentRepository(db),
		Reports:     NewReportRepository(db),
	}
}
