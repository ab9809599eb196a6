package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/burnoutcheck/backend/internal/config"
	"github.com/burnoutcheck/backend/internal/models"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// checkoutSessions is the part of the Stripe client the provider uses.
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeProvider implements PaymentProvider with Stripe Checkout
type StripeProvider struct {
	sessions   checkoutSessions
	appBaseURL string
	priceCents int64
	currency   string
}

// NewStripeProvider creates a Stripe payment provider with its own API client
func NewStripeProvider(cfg *config.Config) *StripeProvider {
	sc := &client.API{}
	sc.Init(cfg.StripeSecretKey, nil)
	return newStripeProvider(sc.CheckoutSessions, cfg)
}

func newStripeProvider(sessions checkoutSessions, cfg *config.Config) *StripeProvider {
	return &StripeProvider{
		sessions:   sessions,
		appBaseURL: strings.TrimRight(cfg.AppBaseURL, "/"),
		priceCents: cfg.ReportPriceCents,
		currency:   cfg.ReportCurrency,
	}
}

func (p *StripeProvider) Name() string { return "stripe" }

// CreateCheckout creates a Stripe checkout session for the report
func (p *StripeProvider) CreateCheckout(ctx context.Context, s *models.Session) (*Checkout, error) {
	successURL := p.returnURL(s, "{CHECKOUT_SESSION_ID}")
	cancelURL := fmt.Sprintf("%s/payment?session_id=%s", p.appBaseURL, s.Token)

	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Burnout Recovery Report"),
						Description: stripe.String("Personalized 14-day burnout recovery plan"),
					},
					UnitAmount: stripe.Int64(p.priceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		CustomerEmail:     stripe.String(s.Email),
		ClientReferenceID: stripe.String(s.Token),
		Metadata: map[string]string{
			"session_id": s.Token,
		},
	}
	params.Context = ctx

	sess, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create Stripe session: %w", err)
	}
	return &Checkout{URL: sess.URL, Reference: sess.ID}, nil
}

func (p *StripeProvider) returnURL(s *models.Session, checkoutID string) string {
	return fmt.Sprintf("%s/payment-return?session_id=%s&checkout_id=%s", p.appBaseURL, s.Token, checkoutID)
}

// storedCheckout fetches the checkout session referenced by s. It returns
// nil when s has no reference or the checkout belongs to another session.
func (p *StripeProvider) storedCheckout(ctx context.Context, s *models.Session) (*stripe.CheckoutSession, error) {
	if s.PaymentReference == "" {
		return nil, nil
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := p.sessions.Get(s.PaymentReference, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get Stripe session: %w", err)
	}
	if cs.Metadata["session_id"] != s.Token && cs.ClientReferenceID != s.Token {
		return nil, nil
	}
	return cs, nil
}

// ResumeCheckout reuses an open checkout. A paid one sends the user straight
// back to the return page.
func (p *StripeProvider) ResumeCheckout(ctx context.Context, s *models.Session) (*Checkout, error) {
	cs, err := p.storedCheckout(ctx, s)
	if err != nil || cs == nil {
		return nil, err
	}
	switch {
	case cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid || cs.Status == stripe.CheckoutSessionStatusComplete:
		return &Checkout{URL: p.returnURL(s, cs.ID), Reference: cs.ID}, nil
	case cs.Status == stripe.CheckoutSessionStatusOpen && cs.URL != "":
		return &Checkout{URL: cs.URL, Reference: cs.ID}, nil
	default:
		return nil, nil
	}
}

// VerifyPayment checks that the session's checkout was paid
func (p *StripeProvider) VerifyPayment(ctx context.Context, s *models.Session) (bool, error) {
	cs, err := p.storedCheckout(ctx, s)
	if err != nil || cs == nil {
		return false, err
	}
	return cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

// NewPaymentProvider picks the provider named by PAYMENT_PROVIDER.
func NewPaymentProvider(cfg *config.Config) (PaymentProvider, error) {
	switch cfg.PaymentProvider {
	case "link":
		return NewLinkProvider(cfg.PaymentProductURL, cfg.AppBaseURL), nil
	case "stripe":
		return NewStripeProvider(cfg), nil
	case "paypal":
		return NewPayPalProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}
