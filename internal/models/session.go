package models

import (
	"strings"
	"time"
)

// Stage is the furthest funnel stage a session has completed.
type Stage string

const (
	StageRegistered          Stage = "registered"
	StageEmailVerified       Stage = "email_verified"
	StageMobileVerified      Stage = "mobile_verified"
	StageAssessmentSubmitted Stage = "assessment_submitted"
	StagePaymentConfirmed    Stage = "payment_confirmed"
	StageReportGenerated     Stage = "report_generated"
	StageReportDelivered     Stage = "report_delivered"
)

// Next-step hints returned to the client.
const (
	NextEmailVerification  = "email_verification"
	NextMobileVerification = "mobile_verification"
	NextAssessment         = "assessment"
	NextPayment            = "payment"
	NextReportGeneration   = "report_generation"
	NextEmailDelivery      = "email_delivery"
	NextCompleted          = "completed"
)

// AnswerLabels maps question id to the label of the chosen answer.
type AnswerLabels map[int]string

// Session is one user's progress through the funnel. Flags only ever go
// from false to true; the repository never writes a false flag over a true one.
type Session struct {
	Token    string `gorm:"primaryKey;size:64" json:"session_id"`
	FullName string `gorm:"size:100;not null" json:"full_name"`
	Email    string `gorm:"size:255;not null" json:"email"`
	Mobile   string `gorm:"size:20;not null" json:"mobile"`

	EmailVerified       bool `gorm:"not null" json:"email_verified"`
	MobileVerified      bool `gorm:"not null" json:"mobile_verified"`
	AssessmentCompleted bool `gorm:"not null" json:"assessment_completed"`
	PaymentCompleted    bool `gorm:"not null" json:"payment_completed"`
	ReportGenerated     bool `gorm:"not null" json:"report_generated"`
	ReportDelivered     bool `gorm:"not null" json:"report_delivered"`

	Step Stage `gorm:"size:32;not null" json:"step"`

	// Assessment results, written once at submission.
	Score   *int         `json:"score,omitempty"`
	Level   string       `gorm:"size:16" json:"level,omitempty"`
	Answers AnswerLabels `gorm:"serializer:json;type:text" json:"answers,omitempty"`

	PaymentReference string `gorm:"size:255" json:"-"`

	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CurrentStage derives the stage from the flags. A stage counts only when
// every stage before it is also complete.
func (s *Session) CurrentStage() Stage {
	steps := []struct {
		done  bool
		stage Stage
	}{
		{s.EmailVerified, StageEmailVerified},
		{s.EmailVerified && s.MobileVerified, StageMobileVerified},
		{s.AssessmentCompleted, StageAssessmentSubmitted},
		{s.PaymentCompleted, StagePaymentConfirmed},
		{s.ReportGenerated, StageReportGenerated},
		{s.ReportDelivered, StageReportDelivered},
	}
	stage := StageRegistered
	for _, st := range steps {
		if !st.done {
			break
		}
		stage = st.stage
	}
	return stage
}

// NextStep returns the first requirement the session has not met yet.
func (s *Session) NextStep() string {
	switch {
	case !s.EmailVerified:
		return NextEmailVerification
	case !s.MobileVerified:
		return NextMobileVerification
	case !s.AssessmentCompleted:
		return NextAssessment
	case !s.PaymentCompleted:
		return NextPayment
	case !s.ReportGenerated:
		return NextReportGeneration
	case !s.ReportDelivered:
		return NextEmailDelivery
	default:
		return NextCompleted
	}
}

// Verified reports whether the given channel has been verified.
func (s *Session) Verified(ch Channel) bool {
	if ch == ChannelEmail {
		return s.EmailVerified
	}
	return s.MobileVerified
}

// Target returns the address a code for ch is delivered to.
func (s *Session) Target(ch Channel) string {
	if ch == ChannelEmail {
		return s.Email
	}
	return s.Mobile
}

// FirstName returns the first word of the full name.
func (s *Session) FirstName() string {
	return FirstName(s.FullName)
}

// FirstName returns the first word of a full name, or "User" when empty.
func FirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "User"
	}
	return fields[0]
}
