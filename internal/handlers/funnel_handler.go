package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/burnoutcheck/backend/internal/models"
	"github.com/burnoutcheck/backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FunnelHandler struct {
	funnel    *services.FunnelService
	otpExpiry time.Duration
	logger    *zap.Logger
}

func NewFunnelHandler(funnel *services.FunnelService, otpExpiry time.Duration, logger *zap.Logger) *FunnelHandler {
	return &FunnelHandler{
		funnel:    funnel,
		otpExpiry: otpExpiry,
		logger:    logger,
	}
}

// Register mounts the funnel routes on rg.
func (h *FunnelHandler) Register(rg *gin.RouterGroup) {
	registerValidators()

	rg.GET("/health", h.Health)
	rg.POST("/register", h.RegisterSession)
	rg.POST("/otp/send", h.SendOTP)
	rg.POST("/otp/verify", h.VerifyOTP)
	rg.POST("/assessment/submit", h.SubmitAssessment)
	rg.GET("/payment/redirect", h.PaymentRedirect)
	rg.GET("/payment/qr", h.PaymentQR)
	rg.POST("/payment/confirm", h.ConfirmPayment)
	rg.POST("/report/generate", h.GenerateReport)
	rg.POST("/report/email", h.EmailReport)
	rg.GET("/session/:session_id", h.SessionStatus)
}

func (h *FunnelHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RegisterSession opens a session for the given contact data.
func (h *FunnelHandler) RegisterSession(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Mobile   string `json:"mobile" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "full_name, email and mobile are required")
		return
	}

	sess, err := h.funnel.Register(c.Request.Context(), services.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Mobile:   req.Mobile,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sess.Token,
		"message":    "Registration successful. Please verify your email.",
		"next_step":  sess.NextStep(),
	})
}

type otpRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	OTPType   string `json:"otp_type" binding:"required"`
}

// SendOTP issues and delivers a verification code.
func (h *FunnelHandler) SendOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "session_id and otp_type are required")
		return
	}
	ch, ok := models.ParseChannel(req.OTPType)
	if !ok {
		respondBadRequest(c, "Invalid OTP type")
		return
	}

	if err := h.funnel.SendCode(c.Request.Context(), req.SessionID, ch); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"message":            fmt.Sprintf("OTP sent to your %s", ch),
		"expires_in_minutes": int(h.otpExpiry.Minutes()),
	})
}

// VerifyOTP checks a submitted code.
func (h *FunnelHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		otpRequest
		OTPCode string `json:"otp_code" binding:"required,otpcode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "session_id, otp_type and a 6-digit otp_code are required")
		return
	}
	ch, ok := models.ParseChannel(req.OTPType)
	if !ok {
		respondBadRequest(c, "Invalid OTP type")
		return
	}

	sess, err := h.funnel.VerifyCode(c.Request.Context(), req.SessionID, ch, req.OTPCode)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Verification successful",
		"next_step": sess.NextStep(),
	})
}

// SubmitAssessment scores the questionnaire. Answer keys are question ids.
func (h *FunnelHandler) SubmitAssessment(c *gin.Context) {
	var req struct {
		SessionID string         `json:"session_id" binding:"required"`
		Answers   map[string]int `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "session_id and answers are required")
		return
	}

	answers := make(map[int]int, len(req.Answers))
	for k, v := range req.Answers {
		id, err := strconv.Atoi(k)
		if err != nil {
			respondBadRequest(c, fmt.Sprintf("Invalid question id %q", k))
			return
		}
		answers[id] = v
	}

	res, err := h.funnel.SubmitAssessment(c.Request.Context(), req.SessionID, answers)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"score":           res.Score,
		"level":           res.Level,
		"preview_insight": res.Preview,
		"next_step":       res.NextStep,
		"message":         "Assessment complete. Unlock your full report to continue.",
	})
}

// PaymentRedirect returns the checkout URL for the report.
func (h *FunnelHandler) PaymentRedirect(c *gin.Context) {
	token := c.Query("session_id")
	if token == "" {
		respondBadRequest(c, "session_id is required")
		return
	}

	link, err := h.funnel.PaymentLink(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"payment_url": link,
		"message":     "Redirect to payment",
	})
}

// PaymentQR renders the checkout URL as a QR code.
func (h *FunnelHandler) PaymentQR(c *gin.Context) {
	token := c.Query("session_id")
	if token == "" {
		respondBadRequest(c, "session_id is required")
		return
	}

	png, err := h.funnel.PaymentQR(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

type sessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// ConfirmPayment records the payment after the client returns from checkout.
func (h *FunnelHandler) ConfirmPayment(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "session_id is required")
		return
	}

	sess, already, err := h.funnel.ConfirmPayment(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Payment confirmed. Generating your report..."
	if already {
		message = "Payment already processed"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   message,
		"next_step": sess.NextStep(),
	})
}

// GenerateReport returns the report, generating it on the first call.
func (h *FunnelHandler) GenerateReport(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "session_id is required")
		return
	}

	report, existed, err := h.funnel.GenerateReport(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Report generated successfully"
	if existed {
		message = "Report already generated"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         message,
		"report_content":  report.Content,
		"already_existed": existed,
		"next_step":       models.NextEmailDelivery,
	})
}

// EmailReport sends the report to the session's email once.
func (h *FunnelHandler) EmailReport(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "session_id is required")
		return
	}

	alreadySent, err := h.funnel.EmailReport(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Report sent to your email successfully"
	if alreadySent {
		message = "Report already sent to your email"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      message,
		"already_sent": alreadySent,
	})
}

// SessionStatus reports the progress of a session.
func (h *FunnelHandler) SessionStatus(c *gin.Context) {
	sess, err := h.funnel.Status(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := gin.H{
		"success":              true,
		"session_id":           sess.Token,
		"current_step":         sess.CurrentStage(),
		"next_step":            sess.NextStep(),
		"email_verified":       sess.EmailVerified,
		"mobile_verified":      sess.MobileVerified,
		"assessment_completed": sess.AssessmentCompleted,
		"payment_completed":    sess.PaymentCompleted,
		"report_generated":     sess.ReportGenerated,
		"report_delivered":     sess.ReportDelivered,
	}
	if sess.Score != nil {
		resp["score"] = *sess.Score
		resp["level"] = sess.Level
	}
	c.JSON(http.StatusOK, resp)
}
