package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/burnoutcheck/backend/internal/apperr"
	"github.com/burnoutcheck/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

type StripeHandler struct {
	funnel        *services.FunnelService
	webhookSecret string
	logger        *zap.Logger
}

func NewStripeHandler(funnel *services.FunnelService, webhookSecret string, logger *zap.Logger) *StripeHandler {
	return &StripeHandler{
		funnel:        funnel,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// HandleWebhook handles Stripe webhook events
func (h *StripeHandler) HandleWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read stripe webhook body", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.logger.Warn("stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	h.logger.Info("stripe event received", zap.String("type", string(event.Type)), zap.String("event_id", event.ID))

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.logger.Error("failed to parse checkout session", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing webhook JSON"})
			return
		}

		token := session.Metadata["session_id"]
		if token == "" {
			token = session.ClientReferenceID
		}
		if token == "" {
			h.logger.Warn("checkout session without funnel session", zap.String("checkout_id", session.ID))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID not found in metadata"})
			return
		}

		// Delayed payment methods complete the checkout before the money arrives.
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			h.logger.Info("checkout completed without payment", zap.String("session_id", token), zap.String("payment_status", string(session.PaymentStatus)))
			c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Awaiting payment"})
			return
		}

		already, err := h.funnel.ConfirmPaymentFromProvider(c.Request.Context(), token, session.ID)
		if err != nil {
			// Unknown or expired sessions are not retried by Stripe.
			if apperr.IsKind(err, apperr.KindNotFound) || apperr.IsKind(err, apperr.KindPreconditionFailed) {
				h.logger.Warn("stripe payment for unusable session", zap.String("session_id", token), zap.Error(err))
				c.JSON(http.StatusOK, gin.H{"status": "ignored", "message": apperr.PublicMessage(err)})
				return
			}
			h.logger.Error("failed to confirm payment", zap.String("session_id", token), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm payment"})
			return
		}

		message := "Payment confirmed"
		if already {
			message = "Payment already processed"
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": message})

	case "checkout.session.async_payment_failed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing webhook JSON"})
			return
		}
		h.logger.Warn("async payment failed", zap.String("checkout_id", session.ID), zap.String("session_id", session.Metadata["session_id"]))
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Payment failed"})

	default:
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Unhandled event type"})
	}
}
