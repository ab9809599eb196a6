package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/burnoutcheck/backend/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Attachment is a file sent along with an email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// EmailMessage is one outgoing HTML email.
type EmailMessage struct {
	To          string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer delivers rendered emails.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPMailer sends mail through an SMTP server.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.from, m.fromName)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)

	for _, a := range msg.Attachments {
		data := a.Data
		gm.Attach(a.Filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		)
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer only logs outgoing mail. Used in development.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg EmailMessage) error {
	m.logger.Info("email suppressed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

// NewMailer picks the mailer named by EMAIL_PROVIDER.
func NewMailer(cfg *config.Config, logger *zap.Logger) (Mailer, error) {
	switch cfg.EmailProvider {
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "log":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}

const (
	otpTemplate    = "otp_email.html"
	reportTemplate = "report_email.html"
)

// EmailService renders and sends the funnel's transactional emails.
type EmailService struct {
	mailer    Mailer
	templates *template.Template
	otpExpiry time.Duration
}

func NewEmailService(mailer Mailer, otpExpiry time.Duration) (*EmailService, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	return &EmailService{mailer: mailer, templates: tmpl, otpExpiry: otpExpiry}, nil
}

// SendOTP sends a verification code.
func (s *EmailService) SendOTP(ctx context.Context, to, name, code string) error {
	data := map[string]interface{}{
		"Name":          name,
		"Code":          code,
		"ExpiryMinutes": int(s.otpExpiry.Minutes()),
	}
	return s.send(ctx, to, "Your Burnout Score Checker Verification Code", otpTemplate, data, nil)
}

// SendReport sends the full report. pdf may be nil.
func (s *EmailService) SendReport(ctx context.Context, to, name, report string, pdf []byte) error {
	data := map[string]interface{}{
		"Name":          name,
		"Report":        report,
		"HasAttachment": len(pdf) > 0,
	}
	var attachments []Attachment
	if len(pdf) > 0 {
		attachments = append(attachments, Attachment{
			Filename:    "burnout-recovery-report.pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		})
	}
	return s.send(ctx, to, "Your Personalized Burnout Recovery Report", reportTemplate, data, attachments)
}

func (s *EmailService) send(ctx context.Context, to, subject, name string, data interface{}, attachments []Attachment) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return s.mailer.Send(ctx, EmailMessage{
		To:          to,
		Subject:     subject,
		HTMLBody:    body.String(),
		Attachments: attachments,
	})
}
