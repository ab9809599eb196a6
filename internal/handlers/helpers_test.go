package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/burnoutcheck/backend/internal/config"
	"github.com/burnoutcheck/backend/internal/models"
	"github.com/burnoutcheck/backend/internal/repositories/repofake"
	"github.com/burnoutcheck/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const webhookSecret = "whsec_test"

type capturedMail struct {
	mu      sync.Mutex
	codes   map[string]string
	reports int
}

func (m *capturedMail) SendOTP(_ context.Context, to, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *capturedMail) SendReport(context.Context, string, string, string, []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports++
	return nil
}

type capturedSMS struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *capturedSMS) Send(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The code is the first six-digit run of the message.
	for i := 0; i+6 <= len(body); i++ {
		if isDigits(body[i : i+6]) {
			s.codes[to] = body[i : i+6]
			break
		}
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type testServer struct {
	router *gin.Engine
	store  *repofake.Store
	mail   *capturedMail
	sms    *capturedSMS
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AppBaseURL:           "http://localhost:3000",
		SessionExpiry:        24 * time.Hour,
		OTPExpiry:            10 * time.Minute,
		OTPMaxResendAttempts: 3,
		OTPMaxAttempts:       5,
		OTPBcryptCost:        bcrypt.MinCost,
		PaymentProductURL:    "https://shop.example/l/report",
	}
	logger := zap.NewNop()
	store := repofake.NewStore(cfg.SessionExpiry)
	repos := store.Repositories()
	mail := &capturedMail{codes: map[string]string{}}
	sms := &capturedSMS{codes: map[string]string{}}

	otp := services.NewOTPService(repos.Codes, cfg, logger)
	reports := services.NewReportService(repos, services.TemplateGenerator{}, mail, services.NewPDFService(), 5*time.Second, logger)
	funnel := services.NewFunnelService(services.FunnelDeps{
		Repos:    repos,
		OTP:      otp,
		Reports:  reports,
		Email:    mail,
		SMS:      sms,
		Payments: services.NewLinkProvider(cfg.PaymentProductURL, cfg.AppBaseURL),
		QR:       services.NewQRService(),
		Logger:   logger,
	})

	router := gin.New()
	api := router.Group("/api")
	NewFunnelHandler(funnel, cfg.OTPExpiry, logger).Register(api)
	api.POST("/payment/webhook/stripe", NewStripeHandler(funnel, webhookSecret, logger).HandleWebhook)

	return &testServer{router: router, store: store, mail: mail, sms: sms}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const (
	testEmail  = "jane@example.com"
	testMobile = "+14155550123"
)

// register creates a session and returns its token.
func (s *testServer) register(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/register", gin.H{
		"full_name": "Jane Doe",
		"email":     testEmail,
		"mobile":    testMobile,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["session_id"].(string)
}

// verified registers a session and verifies both channels.
func (s *testServer) verified(t *testing.T) string {
	t.Helper()
	token := s.register(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/otp/send", gin.H{"session_id": token, "otp_type": "email"}).Code)
	w := s.do(t, http.MethodPost, "/api/otp/verify", gin.H{"session_id": token, "otp_type": "email", "otp_code": s.mail.codes[testEmail]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/otp/send", gin.H{"session_id": token, "otp_type": "mobile"}).Code)
	w = s.do(t, http.MethodPost, "/api/otp/verify", gin.H{"session_id": token, "otp_type": "mobile", "otp_code": s.sms.codes[testMobile]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return token
}

var moderateAnswers = gin.H{"1": 2, "2": 2, "3": 2, "4": 2, "5": 2, "6": 2, "7": 1}

// assessed returns a verified session with a submitted assessment.
func (s *testServer) assessed(t *testing.T) string {
	t.Helper()
	token := s.verified(t)
	w := s.do(t, http.MethodPost, "/api/assessment/submit", gin.H{"session_id": token, "answers": moderateAnswers})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return token
}

func (s *testServer) session(t *testing.T, token string) *models.Session {
	t.Helper()
	sess, ok := s.store.RawSession(token)
	require.True(t, ok)
	return &sess
}
