package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/burnoutcheck/backend/internal/config"
	"go.uber.org/zap"
)

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

const (
	sevenBaseURL     = "https://gateway.seven.io"
	clickSendBaseURL = "https://rest.clicksend.com"
)

// NewSMSSender picks the sender named by SMS_PROVIDER.
func NewSMSSender(cfg *config.Config, logger *zap.Logger) (SMSSender, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	switch strings.ToLower(cfg.SMSProvider) {
	case "seven":
		if cfg.SevenAPIKey == "" {
			return nil, fmt.Errorf("seven api key missing")
		}
		return &SevenSender{APIKey: cfg.SevenAPIKey, From: cfg.SMSFrom, BaseURL: sevenBaseURL, Client: client}, nil
	case "clicksend":
		if cfg.ClickSendUsername == "" || cfg.ClickSendAPIKey == "" {
			return nil, fmt.Errorf("clicksend credentials missing")
		}
		return &ClickSendSender{
			Username: cfg.ClickSendUsername,
			APIKey:   cfg.ClickSendAPIKey,
			From:     cfg.SMSFrom,
			BaseURL:  clickSendBaseURL,
			Client:   client,
		}, nil
	case "log", "":
		return &LogSMSSender{logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.SMSProvider)
	}
}

// SevenSender talks to the seven.io SMS API.
//
//	POST {BaseURL}/api/sms
//	Header: X-Api-Key: <key>
//	Form: to=<E164>&text=<msg>&from=<id>
type SevenSender struct {
	APIKey  string
	From    string
	BaseURL string
	Client  *http.Client
}

func (s *SevenSender) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("to", to)
	form.Set("text", body)
	if s.From != "" {
		form.Set("from", s.From)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/api/sms", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Api-Key", s.APIKey)
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("seven send failed: %d", resp.StatusCode)
	}
	return nil
}

type clickSendMessage struct {
	Source string `json:"source"`
	Body   string `json:"body"`
	To     string `json:"to"`
	From   string `json:"from,omitempty"`
}

type clickSendPayload struct {
	Messages []clickSendMessage `json:"messages"`
}

// ClickSendSender talks to the ClickSend v3 REST API.
type ClickSendSender struct {
	Username string
	APIKey   string
	From     string
	BaseURL  string
	Client   *http.Client
}

func (s *ClickSendSender) Send(ctx context.Context, to, body string) error {
	payload := clickSendPayload{Messages: []clickSendMessage{{Source: "api", Body: body, To: to, From: s.From}}}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/v3/sms/send", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.Username, s.APIKey)
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms send failed with status %d", resp.StatusCode)
	}
	return nil
}

// LogSMSSender logs messages instead of sending them.
type LogSMSSender struct {
	logger *zap.Logger
}

func NewLogSMSSender(logger *zap.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) Send(_ context.Context, to, body string) error {
	s.logger.Info("sms suppressed", zap.String("to", to), zap.Int("length", len(body)))
	return nil
}
