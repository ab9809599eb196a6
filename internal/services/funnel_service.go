package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/burnoutcheck/backend/internal/apperr"
	"github.com/burnoutcheck/backend/internal/assessment"
	"github.com/burnoutcheck/backend/internal/models"
	"github.com/burnoutcheck/backend/internal/repositories"
	"github.com/burnoutcheck/backend/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CodeMailer delivers a verification code by email.
type CodeMailer interface {
	SendOTP(ctx context.Context, to, name, code string) error
}

var (
	ErrVerificationRequired = apperr.PreconditionFailed("Please verify both email and mobile before taking the assessment")
	ErrAssessmentRequired   = apperr.PreconditionFailed("Please complete the assessment first")
	ErrPaymentNotCompleted  = apperr.PreconditionFailed("Payment has not been completed")
	ErrCodeDelivery         = apperr.New(apperr.KindUpstreamFailure, "Failed to send OTP. Please try again.")
	ErrPaymentVerification  = apperr.New(apperr.KindUpstreamFailure, "Could not verify payment. Please try again.")
	ErrCheckoutFailed       = apperr.New(apperr.KindUpstreamFailure, "Could not create payment link. Please try again.")
)

// FunnelDeps are the collaborators of the funnel.
type FunnelDeps struct {
	Repos    *repositories.Repositories
	OTP      *OTPService
	Reports  *ReportService
	Email    CodeMailer
	SMS      SMSSender
	Payments PaymentProvider
	QR       *QRService
	Logger   *zap.Logger
}

// FunnelService moves a session through the fixed sequence of steps.
// Every operation reloads the session and re-checks its preconditions.
type FunnelService struct {
	sessions    repositories.SessionRepository
	assessments repositories.AssessmentRepository
	otp         *OTPService
	reports     *ReportService
	email       CodeMailer
	sms         SMSSender
	payments    PaymentProvider
	qr          *QRService
	logger      *zap.Logger
}

func NewFunnelService(d FunnelDeps) *FunnelService {
	return &FunnelService{
		sessions:    d.Repos.Sessions,
		assessments: d.Repos.Assessments,
		otp:         d.OTP,
		reports:     d.Reports,
		email:       d.Email,
		sms:         d.SMS,
		payments:    d.Payments,
		qr:          d.QR,
		logger:      d.Logger,
	}
}

// RegisterInput is the contact data a session starts with.
type RegisterInput struct {
	FullName string
	Email    string
	Mobile   string
}

// Register validates the contact data and opens a new session.
func (s *FunnelService) Register(ctx context.Context, in RegisterInput) (*models.Session, error) {
	name := validation.SanitizeString(in.FullName)
	email := strings.ToLower(validation.SanitizeString(in.Email))
	mobile := validation.NormalizeMobile(in.Mobile)

	switch {
	case !validation.ValidateFullName(name):
		return nil, apperr.ValidationFailed("Full name must be between 2 and 100 characters")
	case !validation.ValidateEmail(email):
		return nil, apperr.ValidationFailed("Invalid email address")
	case !validation.ValidateMobile(mobile):
		return nil, apperr.ValidationFailed("Invalid mobile number")
	}

	for i := 0; i < 2; i++ {
		sess := &models.Session{
			Token:    uuid.NewString(),
			FullName: name,
			Email:    email,
			Mobile:   mobile,
		}
		err := s.sessions.Create(ctx, sess)
		if err == nil {
			s.logger.Info("session registered", zap.String("session_id", sess.Token))
			return sess, nil
		}
		if !apperr.IsKind(err, apperr.KindConflict) {
			return nil, err
		}
	}
	return nil, apperr.Conflict("Could not create session. Please try again.")
}

// SendCode issues a code for ch and delivers it to the session's address.
func (s *FunnelService) SendCode(ctx context.Context, token string, ch models.Channel) error {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return err
	}
	if sess.Verified(ch) {
		return apperr.PreconditionFailed(fmt.Sprintf("%s already verified", channelTitle(ch)))
	}

	code, err := s.otp.Issue(ctx, sess.Token, ch, sess.Target(ch))
	if err != nil {
		return err
	}

	switch ch {
	case models.ChannelEmail:
		err = s.email.SendOTP(ctx, sess.Email, sess.FirstName(), code)
	case models.ChannelMobile:
		body := fmt.Sprintf("Your Burnout Score Checker verification code is %s. It expires in %d minutes.", code, int(s.otp.Expiry().Minutes()))
		err = s.sms.Send(ctx, sess.Mobile, body)
	}
	if err != nil {
		s.logger.Error("otp delivery failed", zap.String("session_id", token), zap.String("channel", string(ch)), zap.Error(err))
		return apperr.WithCause(ErrCodeDelivery, err)
	}
	return nil
}

// VerifyCode checks code and marks ch verified.
func (s *FunnelService) VerifyCode(ctx context.Context, token string, ch models.Channel, code string) (*models.Session, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	err = s.otp.Check(ctx, sess.Token, ch, strings.TrimSpace(code))
	if err != nil {
		// A verified code with an unset flag means an earlier request
		// stopped between the two writes.
		if !errors.Is(err, ErrCodeAlreadyUsed) || sess.Verified(ch) {
			return nil, err
		}
		s.logger.Warn("repairing verification flag", zap.String("session_id", token), zap.String("channel", string(ch)))
	}

	switch ch {
	case models.ChannelEmail:
		sess.EmailVerified = true
	case models.ChannelMobile:
		sess.MobileVerified = true
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// AssessmentResult is the scored questionnaire returned to the client.
type AssessmentResult struct {
	Score    int
	Level    string
	Preview  string
	NextStep string
}

// SubmitAssessment scores answers once per session. A repeated submission
// returns the stored result.
func (s *FunnelService) SubmitAssessment(ctx context.Context, token string, answers map[int]int) (*AssessmentResult, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !sess.EmailVerified || !sess.MobileVerified {
		return nil, ErrVerificationRequired
	}
	if sess.AssessmentCompleted {
		return s.storedResult(ctx, sess)
	}

	res, err := assessment.Score(answers)
	if err != nil {
		return nil, err
	}

	record := &models.Assessment{
		SessionToken: sess.Token,
		Answers:      models.AnswerLabels(res.Labels),
		Score:        res.Score,
		Level:        string(res.Level),
	}
	created, err := s.assessments.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	if !created {
		record, err = s.assessments.Get(ctx, sess.Token)
		if err != nil {
			return nil, err
		}
	}

	score := record.Score
	sess.AssessmentCompleted = true
	sess.Score = &score
	sess.Level = record.Level
	sess.Answers = record.Answers
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	return &AssessmentResult{
		Score:    record.Score,
		Level:    record.Level,
		Preview:  assessment.Preview(assessment.Level(record.Level)),
		NextStep: sess.NextStep(),
	}, nil
}

func (s *FunnelService) storedResult(ctx context.Context, sess *models.Session) (*AssessmentResult, error) {
	a, err := s.assessments.Get(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	return &AssessmentResult{
		Score:    a.Score,
		Level:    a.Level,
		Preview:  assessment.Preview(assessment.Level(a.Level)),
		NextStep: sess.NextStep(),
	}, nil
}

// PaymentLink returns the session's checkout for the report, creating it
// when none is open.
func (s *FunnelService) PaymentLink(ctx context.Context, token string) (string, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return "", err
	}
	if !sess.AssessmentCompleted {
		return "", ErrAssessmentRequired
	}
	if sess.PaymentCompleted {
		return "", apperr.PreconditionFailed("Payment already completed")
	}

	// One checkout per session: the one ConfirmPayment verifies.
	checkout, err := s.payments.ResumeCheckout(ctx, sess)
	if err != nil {
		s.logger.Error("checkout lookup failed", zap.String("session_id", token), zap.String("provider", s.payments.Name()), zap.Error(err))
		return "", apperr.WithCause(ErrCheckoutFailed, err)
	}
	if checkout != nil {
		return checkout.URL, nil
	}

	checkout, err = s.payments.CreateCheckout(ctx, sess)
	if err != nil {
		s.logger.Error("checkout failed", zap.String("session_id", token), zap.String("provider", s.payments.Name()), zap.Error(err))
		return "", apperr.WithCause(ErrCheckoutFailed, err)
	}
	if checkout.Reference != "" {
		sess.PaymentReference = checkout.Reference
		if err := s.sessions.Update(ctx, sess); err != nil {
			return "", err
		}
	}
	return checkout.URL, nil
}

// PaymentQR renders the payment link as a PNG QR code.
func (s *FunnelService) PaymentQR(ctx context.Context, token string) ([]byte, error) {
	link, err := s.PaymentLink(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.qr.PNG(link)
}

// ConfirmPayment is the client-driven confirmation after checkout. The bool
// is true when payment had already been recorded.
func (s *FunnelService) ConfirmPayment(ctx context.Context, token string) (*models.Session, bool, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, false, err
	}
	if sess.PaymentCompleted {
		return sess, true, nil
	}
	if !sess.AssessmentCompleted {
		return nil, false, ErrAssessmentRequired
	}

	paid, err := s.payments.VerifyPayment(ctx, sess)
	if err != nil {
		s.logger.Error("payment verification failed", zap.String("session_id", token), zap.Error(err))
		return nil, false, apperr.WithCause(ErrPaymentVerification, err)
	}
	if !paid {
		return nil, false, ErrPaymentNotCompleted
	}

	sess.PaymentCompleted = true
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, false, err
	}
	s.logger.Info("payment confirmed", zap.String("session_id", token), zap.String("provider", s.payments.Name()))
	return sess, false, nil
}

// ConfirmPaymentFromProvider records a payment the provider reported
// server-to-server, e.g. through a signed webhook.
func (s *FunnelService) ConfirmPaymentFromProvider(ctx context.Context, token, reference string) (bool, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return false, err
	}
	if sess.PaymentCompleted {
		return true, nil
	}
	if !sess.AssessmentCompleted {
		return false, ErrAssessmentRequired
	}

	if reference != "" {
		sess.PaymentReference = reference
	}
	sess.PaymentCompleted = true
	if err := s.sessions.Update(ctx, sess); err != nil {
		return false, err
	}
	s.logger.Info("payment confirmed by provider", zap.String("session_id", token), zap.String("reference", reference))
	return false, nil
}

// GenerateReport returns the session's report, generating it on first call.
func (s *FunnelService) GenerateReport(ctx context.Context, token string) (*models.Report, bool, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, false, err
	}
	return s.reports.Generate(ctx, sess)
}

// EmailReport sends the report once; the bool reports an earlier delivery.
func (s *FunnelService) EmailReport(ctx context.Context, token string) (bool, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return false, err
	}
	return s.reports.Deliver(ctx, sess)
}

// Status returns the current session.
func (s *FunnelService) Status(ctx context.Context, token string) (*models.Session, error) {
	return s.sessions.Get(ctx, token)
}

func channelTitle(ch models.Channel) string {
	if ch == models.ChannelEmail {
		return "Email"
	}
	return "Mobile"
}
