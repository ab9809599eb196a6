package services

import (
	"context"
	"sync"
	"time"

	"github.com/burnoutcheck/backend/internal/config"
	"github.com/burnoutcheck/backend/internal/models"
	"github.com/burnoutcheck/backend/internal/repositories/repofake"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		AppBaseURL:           "http://localhost:3000",
		SessionExpiry:        24 * time.Hour,
		OTPExpiry:            10 * time.Minute,
		OTPMaxResendAttempts: 3,
		OTPMaxAttempts:       5,
		OTPBcryptCost:        bcrypt.MinCost,
		ReportTimeout:        5 * time.Second,
		PaymentProvider:      "link",
		PaymentProductURL:    "https://shop.example/l/report",
	}
}

func newTestStore() *repofake.Store {
	return repofake.NewStore(24 * time.Hour)
}

type sentOTP struct {
	To, Name, Code string
}

type sentReport struct {
	To, Name, Report string
	PDF              []byte
}

// fakeMailer records everything EmailService would send.
type fakeMailer struct {
	mu      sync.Mutex
	otps    []sentOTP
	reports []sentReport
	err     error
}

func (m *fakeMailer) SendOTP(_ context.Context, to, name, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.otps = append(m.otps, sentOTP{To: to, Name: name, Code: code})
	return nil
}

func (m *fakeMailer) SendReport(_ context.Context, to, name, report string, pdf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, sentReport{To: to, Name: name, Report: report, PDF: pdf})
	return nil
}

func (m *fakeMailer) lastOTP() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.otps) == 0 {
		return ""
	}
	return m.otps[len(m.otps)-1].Code
}

func (m *fakeMailer) reportCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

type sentSMS struct {
	To, Body string
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (f *fakeSMS) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentSMS{To: to, Body: body})
	return nil
}

// fakeGenerator returns a fixed text and counts calls.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
	delay time.Duration
	last  ReportInput
}

func (g *fakeGenerator) Generate(ctx context.Context, in ReportInput) (string, error) {
	g.mu.Lock()
	g.calls++
	g.last = in
	delay, text, err := g.delay, g.text, g.err
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakePDF struct {
	err error
}

func (f *fakePDF) RenderReport(name, report string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

// fakePayments is a PaymentProvider with a switchable verdict.
type fakePayments struct {
	mu        sync.Mutex
	paid      bool
	verifyErr error
	expired   bool
	checkouts int
}

func (p *fakePayments) Name() string { return "fake" }

func (p *fakePayments) CreateCheckout(_ context.Context, s *models.Session) (*Checkout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkouts++
	return &Checkout{URL: "https://pay.example/checkout?session_id=" + s.Token, Reference: "chk_" + s.Token}, nil
}

// ResumeCheckout hands back the stored checkout unless expired is set.
func (p *fakePayments) ResumeCheckout(_ context.Context, s *models.Session) (*Checkout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.PaymentReference == "" || p.expired {
		return nil, nil
	}
	return &Checkout{URL: "https://pay.example/checkout?session_id=" + s.Token, Reference: s.PaymentReference}, nil
}

func (p *fakePayments) VerifyPayment(context.Context, *models.Session) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paid, p.verifyErr
}

func (p *fakePayments) setPaid(paid bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid = paid
}
