package services

import (
	"context"
	"time"

	"github.com/burnoutcheck/backend/internal/apperr"
	"github.com/burnoutcheck/backend/internal/models"
	"github.com/burnoutcheck/backend/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ReportMailer delivers a finished report.
type ReportMailer interface {
	SendReport(ctx context.Context, to, name, report string, pdf []byte) error
}

// PDFRenderer turns report text into a PDF attachment.
type PDFRenderer interface {
	RenderReport(name, report string) ([]byte, error)
}

var (
	ErrPaymentRequired   = apperr.PreconditionFailed("Payment required to generate report")
	ErrReportNotReady    = apperr.PreconditionFailed("Report must be generated before it can be emailed")
	ErrGenerationFailed  = apperr.New(apperr.KindUpstreamFailure, "Failed to generate report. Please try again.")
	ErrReportIncomplete  = apperr.New(apperr.KindUpstreamFailure, "Generated report is incomplete. Please try again.")
	ErrReportEmailFailed = apperr.New(apperr.KindUpstreamFailure, "Failed to send report email. Please try again.")
)

// ReportService generates at most one report per paid session and emails it.
type ReportService struct {
	sessions    repositories.SessionRepository
	assessments repositories.AssessmentRepository
	reports     repositories.ReportRepository
	generator   TextGenerator
	mailer      ReportMailer
	pdf         PDFRenderer
	archive     ReportArchiver
	timeout     time.Duration
	logger      *zap.Logger
	now         func() time.Time

	inflight singleflight.Group
}

func NewReportService(repos *repositories.Repositories, generator TextGenerator, mailer ReportMailer, pdf PDFRenderer, timeout time.Duration, logger *zap.Logger) *ReportService {
	return &ReportService{
		sessions:    repos.Sessions,
		assessments: repos.Assessments,
		reports:     repos.Reports,
		generator:   generator,
		mailer:      mailer,
		pdf:         pdf,
		timeout:     timeout,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AttachArchive stores a copy of each delivered PDF in a.
func (s *ReportService) AttachArchive(a ReportArchiver) {
	s.archive = a
}

type generated struct {
	report  *models.Report
	existed bool
}

// Generate returns the report of s, creating it on first call. The bool is
// true when the report already existed.
func (s *ReportService) Generate(ctx context.Context, sess *models.Session) (*models.Report, bool, error) {
	if !sess.PaymentCompleted {
		return nil, false, ErrPaymentRequired
	}

	// Concurrent requests for one session share a single generator call.
	v, err, _ := s.inflight.Do(sess.Token, func() (interface{}, error) {
		return s.generate(ctx, sess)
	})
	if err != nil {
		return nil, false, err
	}
	g := v.(*generated)

	if !sess.ReportGenerated {
		sess.ReportGenerated = true
		if err := s.sessions.Update(ctx, sess); err != nil {
			return nil, false, err
		}
	}
	return g.report, g.existed, nil
}

func (s *ReportService) generate(ctx context.Context, sess *models.Session) (*generated, error) {
	existing, err := s.reports.Get(ctx, sess.Token)
	if err == nil {
		return &generated{report: existing, existed: true}, nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	a, err := s.assessments.Get(ctx, sess.Token)
	if err != nil {
		return nil, err
	}

	// The call outlives a disconnecting client so a retry finds the report.
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	content, err := s.generator.Generate(genCtx, ReportInput{
		FullName: sess.FullName,
		Score:    a.Score,
		Level:    a.Level,
		Answers:  a.Answers,
	})
	if err != nil {
		s.logger.Error("report generation failed", zap.String("session_id", sess.Token), zap.Error(err))
		return nil, apperr.WithCause(ErrGenerationFailed, err)
	}
	if !ValidateReportContent(content) {
		s.logger.Warn("generated report rejected", zap.String("session_id", sess.Token), zap.Int("length", len(content)))
		return nil, ErrReportIncomplete
	}

	report := &models.Report{
		SessionToken: sess.Token,
		Content:      content,
		FullName:     sess.FullName,
		Email:        sess.Email,
		Mobile:       sess.Mobile,
	}
	created, err := s.reports.Create(ctx, report)
	if err != nil {
		return nil, err
	}
	if !created {
		winner, err := s.reports.Get(ctx, sess.Token)
		if err != nil {
			return nil, err
		}
		return &generated{report: winner, existed: true}, nil
	}

	s.logger.Info("report generated", zap.String("session_id", sess.Token), zap.Int("length", len(content)))
	return &generated{report: report}, nil
}

// Deliver emails the report of sess once. It returns true when the report
// had already been sent.
func (s *ReportService) Deliver(ctx context.Context, sess *models.Session) (bool, error) {
	if !sess.PaymentCompleted {
		return false, ErrPaymentRequired
	}
	if !sess.ReportGenerated {
		return false, ErrReportNotReady
	}

	report, err := s.reports.Get(ctx, sess.Token)
	if err != nil {
		return false, err
	}

	alreadySent := report.EmailSent
	if !alreadySent {
		name := models.FirstName(report.FullName)
		pdf, err := s.pdf.RenderReport(name, report.Content)
		if err != nil {
			s.logger.Warn("report pdf failed, sending without attachment", zap.String("session_id", sess.Token), zap.Error(err))
			pdf = nil
		}

		if err := s.mailer.SendReport(ctx, report.Email, name, report.Content, pdf); err != nil {
			s.logger.Error("report email failed", zap.String("session_id", sess.Token), zap.Error(err))
			return false, apperr.WithCause(ErrReportEmailFailed, err)
		}

		if _, err := s.reports.MarkEmailSent(ctx, sess.Token, s.now()); err != nil {
			return false, err
		}
		s.logger.Info("report emailed", zap.String("session_id", sess.Token))

		if s.archive != nil && pdf != nil {
			if err := s.archive.Archive(ctx, sess.Token, pdf); err != nil {
				s.logger.Warn("report archive failed", zap.String("session_id", sess.Token), zap.Error(err))
			}
		}
	}

	if !sess.ReportDelivered {
		sess.ReportDelivered = true
		if err := s.sessions.Update(ctx, sess); err != nil {
			return false, err
		}
	}
	return alreadySent, nil
}
