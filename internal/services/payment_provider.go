package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/burnoutcheck/backend/internal/models"
)

// Checkout is a hosted checkout the user is sent to.
type Checkout struct {
	URL string
	// Reference identifies the checkout at the provider, if it has one.
	Reference string
}

// PaymentProvider defines the interface for payment providers (Stripe, hosted product links)
type PaymentProvider interface {
	// CreateCheckout returns where the user pays for the report of s
	CreateCheckout(ctx context.Context, s *models.Session) (*Checkout, error)

	// ResumeCheckout returns the checkout already stored on s while it can
	// still be paid or has been paid, or nil when a new one is needed
	ResumeCheckout(ctx context.Context, s *models.Session) (*Checkout, error)

	// VerifyPayment reports whether the provider considers s paid
	VerifyPayment(ctx context.Context, s *models.Session) (bool, error)

	// Name returns the name of the provider ("link", "stripe" or "paypal")
	Name() string
}

// LinkProvider sends users to a hosted product page that redirects back to
// the app with the session id. The provider offers no server-side
// confirmation, so VerifyPayment trusts the client.
type LinkProvider struct {
	productURL string
	appBaseURL string
}

func NewLinkProvider(productURL, appBaseURL string) *LinkProvider {
	return &LinkProvider{productURL: productURL, appBaseURL: strings.TrimRight(appBaseURL, "/")}
}

func (p *LinkProvider) Name() string { return "link" }

func (p *LinkProvider) CreateCheckout(_ context.Context, s *models.Session) (*Checkout, error) {
	returnURL := p.appBaseURL + "/payment-return?session_id=" + s.Token
	sep := "?"
	if strings.Contains(p.productURL, "?") {
		sep = "&"
	}
	return &Checkout{URL: p.productURL + sep + "wanted=true&return_url=" + url.QueryEscape(returnURL)}, nil
}

// ResumeCheckout always returns nil: product links carry no reference.
func (p *LinkProvider) ResumeCheckout(context.Context, *models.Session) (*Checkout, error) {
	return nil, nil
}

func (p *LinkProvider) VerifyPayment(context.Context, *models.Session) (bool, error) {
	return true, nil
}
