package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/burnoutcheck/backend/internal/apperr"
	"github.com/burnoutcheck/backend/internal/models"
	"github.com/burnoutcheck/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reportFixture struct {
	repos  *repositories.Repositories
	gen    *fakeGenerator
	mailer *fakeMailer
	pdf    *fakePDF
	svc    *ReportService
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	text, err := TemplateGenerator{}.Generate(context.Background(), sampleInput())
	require.NoError(t, err)

	f := &reportFixture{
		repos:  newTestStore().Repositories(),
		gen:    &fakeGenerator{text: text},
		mailer: &fakeMailer{},
		pdf:    &fakePDF{},
	}
	f.svc = NewReportService(f.repos, f.gen, f.mailer, f.pdf, time.Second, zap.NewNop())
	return f
}

// paidSession stores a session that has reached the payment stage.
func (f *reportFixture) paidSession(t *testing.T) *models.Session {
	t.Helper()
	ctx := context.Background()
	score := 62
	s := &models.Session{
		Token:               "tok",
		FullName:            "Ada Lovelace",
		Email:               "ada@example.com",
		Mobile:              "+4915112345678",
		EmailVerified:       true,
		MobileVerified:      true,
		AssessmentCompleted: true,
		PaymentCompleted:    true,
		Score:               &score,
		Level:               "Moderate",
	}
	require.NoError(t, f.repos.Sessions.Create(ctx, s))
	_, err := f.repos.Assessments.Create(ctx, &models.Assessment{SessionToken: "tok", Answers: models.AnswerLabels{1: "Often"}, Score: 62, Level: "Moderate"})
	require.NoError(t, err)

	got, err := f.repos.Sessions.Get(ctx, "tok")
	require.NoError(t, err)
	return got
}

func TestGenerateRequiresPayment(t *testing.T) {
	f := newReportFixture(t)
	_, _, err := f.svc.Generate(context.Background(), &models.Session{Token: "tok", AssessmentCompleted: true})
	assert.ErrorIs(t, err, ErrPaymentRequired)
	assert.Zero(t, f.gen.callCount())
}

func TestGenerateTwiceCallsGeneratorOnce(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture(t)
	sess := f.paidSession(t)

	first, existed, err := f.svc.Generate(ctx, sess)
	require.NoError(t, err)
	assert.False(t, existed)

	again, err := f.repos.Sessions.Get(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, again.ReportGenerated)

	second, existed, err := f.svc.Generate(ctx, again)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, f.gen.callCount())

	assert.Equal(t, 62, f.gen.last.Score)
	assert.Equal(t, "Often", f.gen.last.Answers[1])
}

func TestGenerateConcurrentRequestsShareOneCall(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture(t)
	f.gen.delay = 50 * time.Millisecond
	sess := f.paidSession(t)

	const n = 5
	contents := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := *sess
			rep, _, err := f.svc.Generate(ctx, &s)
			errs[i] = err
			if rep != nil {
				contents[i] = rep.Content
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, contents[0], contents[i])
	}
	assert.Equal(t, 1, f.gen.callCount())
}

func TestGenerateRejectsInvalidContent(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture(t)
	f.gen.text = "too short"
	sess := f.paidSession(t)

	_, _, err := f.svc.Generate(ctx, sess)
	assert.ErrorIs(t, err, ErrReportIncomplete)

	_, err = f.repos.Reports.Get(ctx, "tok")
	assert.ErrorIs(t, err, repositories.ErrReportNotFound)

	stored, err := f.repos.Sessions.Get(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, stored.ReportGenerated)
}

func TestGenerateUpstreamFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture(t)
	text := f.gen.text
	f.gen.text, f.gen.err = "", errors.New("api key sk-123 rejected")
	sess := f.paidSession(t)

	_, _, err := f.svc.Generate(ctx, sess)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamFailure, apperr.KindOf(err))
	assert.NotContains(t, apperr.PublicMessage(err), "sk-123")

	f.gen.text, f.gen.err = text, nil
	_, existed, err := f.svc.Generate(ctx, sess)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, 2, f.gen.callCount())
}

func TestGenerateWithoutAssessment(t *testing.T) {
	f := newReportFixture(t)
	_, _, err := f.svc.Generate(context.Background(), &models.Session{Token: "none", PaymentCompleted: true})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeliverSendsOnce(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture(t)
	sess := f.paidSession(t)
	_, _, err := f.svc.Generate(ctx, sess)
	require.NoError(t, err)

	alreadySent, err := f.svc.Deliver(ctx, sess)
	require.NoError(t, err)
	assert.False(t, alreadySent)
	require.Equal(t, 1, f.mailer.reportCount())
	assert.Equal(t, "ada@example.com", f.mailer.reports[0].To)
	assert.Equal(t, "Ada", f.mailer.reports[0].Name)
	assert.NotEmpty(t, f.mailer.reports[0].PDF)

	alreadySent, err = f.svc.Deliver(ctx, sess)
	require.NoError(t, err)
	assert.True(t, alreadySent)
	assert.Equal(t, 1, f.mailer.reportCount())

	stored, err := f.repos.Sessions.Get(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, stored.ReportDelivered)
	assert.Equal(t, models.StageReportDelivered, stored.Step)

	rep, err := f.repos.Reports.Get(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, rep.EmailSent)
}

func TestDeliverWithoutPDF(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture(t)
	f.pdf.err = errors.New("font missing")
	sess := f.paidSession(t)
	_, _, err := f.svc.Generate(ctx, sess)
	require.NoError(t, err)

	_, err = f.svc.Deliver(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, 1, f.mailer.reportCount())
	assert.Nil(t, f.mailer.reports[0].PDF)
}

func TestDeliverFailureLeavesReportUnsent(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture(t)
	sess := f.paidSession(t)
	_, _, err := f.svc.Generate(ctx, sess)
	require.NoError(t, err)

	f.mailer.err = errors.New("smtp down")
	_, err = f.svc.Deliver(ctx, sess)
	assert.ErrorIs(t, err, ErrReportEmailFailed)

	rep, err := f.repos.Reports.Get(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, rep.EmailSent)
}

func TestDeliverRequiresGeneratedReport(t *testing.T) {
	f := newReportFixture(t)
	sess := f.paidSession(t)

	_, err := f.svc.Deliver(context.Background(), sess)
	assert.ErrorIs(t, err, ErrReportNotReady)

	_, err = f.svc.Deliver(context.Background(), &models.Session{Token: "tok", ReportGenerated: true})
	assert.ErrorIs(t, err, ErrPaymentRequired)
}

type fakeArchive struct {
	tokens []string
	err    error
}

func (a *fakeArchive) Archive(_ context.Context, token string, pdf []byte) error {
	a.tokens = append(a.tokens, token)
	return a.err
}

func TestDeliverArchivesPDFOnce(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture(t)
	archive := &fakeArchive{}
	f.svc.AttachArchive(archive)
	sess := f.paidSession(t)
	_, _, err := f.svc.Generate(ctx, sess)
	require.NoError(t, err)

	_, err = f.svc.Deliver(ctx, sess)
	require.NoError(t, err)
	_, err = f.svc.Deliver(ctx, sess)
	require.NoError(t, err)

	assert.Equal(t, []string{"tok"}, archive.tokens)
}

func TestDeliverIgnoresArchiveFailure(t *testing.T) {
	ctx := context.Background()
	f := newReportFixture(t)
	f.svc.AttachArchive(&fakeArchive{err: errors.New("bucket gone")})
	sess := f.paidSession(t)
	_, _, err := f.svc.Generate(ctx, sess)
	require.NoError(t, err)

	alreadySent, err := f.svc.Deliver(ctx, sess)
	require.NoError(t, err)
	assert.False(t, alreadySent)
	assert.Equal(t, 1, f.mailer.reportCount())
}
