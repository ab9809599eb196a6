package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/burnoutcheck/backend/internal/config"
	"github.com/burnoutcheck/backend/internal/models"
	paypal "github.com/logpacker/PayPal-Go-SDK"
	"github.com/shopspring/decimal"
)

// paypalOrders is the part of the PayPal client the provider uses.
type paypalOrders interface {
	CreateOrder(intent string, purchaseUnits []paypal.PurchaseUnitRequest, payer *paypal.CreateOrderPayer, appContext *paypal.ApplicationContext) (*paypal.Order, error)
	GetOrder(orderID string) (*paypal.Order, error)
	CaptureOrder(orderID string, captureOrderRequest paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error)
}

// PayPalProvider implements PaymentProvider with PayPal orders
type PayPalProvider struct {
	orders     paypalOrders
	appBaseURL string
	priceCents int64
	currency   string
}

// NewPayPalProvider creates a PayPal provider and fetches an access token
func NewPayPalProvider(cfg *config.Config) (*PayPalProvider, error) {
	base := paypal.APIBaseSandBox
	if cfg.PayPalMode == "live" {
		base = paypal.APIBaseLive
	}

	client, err := paypal.NewClient(cfg.PayPalClientID, cfg.PayPalSecret, base)
	if err != nil {
		return nil, fmt.Errorf("failed to create PayPal client: %w", err)
	}
	if _, err := client.GetAccessToken(); err != nil {
		return nil, fmt.Errorf("failed to get PayPal access token: %w", err)
	}
	return newPayPalProvider(client, cfg), nil
}

func newPayPalProvider(orders paypalOrders, cfg *config.Config) *PayPalProvider {
	return &PayPalProvider{
		orders:     orders,
		appBaseURL: strings.TrimRight(cfg.AppBaseURL, "/"),
		priceCents: cfg.ReportPriceCents,
		currency:   strings.ToUpper(cfg.ReportCurrency),
	}
}

func (p *PayPalProvider) Name() string { return "paypal" }

// CreateCheckout creates a PayPal order and returns its approval URL
func (p *PayPalProvider) CreateCheckout(_ context.Context, s *models.Session) (*Checkout, error) {
	units := []paypal.PurchaseUnitRequest{
		{
			ReferenceID: s.Token,
			Description: "Personalized Burnout Recovery Report",
			CustomID:    s.Token,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: p.currency,
				Value:    decimal.New(p.priceCents, -2).StringFixed(2),
			},
		},
	}
	appContext := &paypal.ApplicationContext{
		BrandName:          "Burnout Score Checker",
		LandingPage:        "NO_PREFERENCE",
		ShippingPreference: "NO_SHIPPING",
		UserAction:         "PAY_NOW",
		ReturnURL:          fmt.Sprintf("%s/payment-return?session_id=%s", p.appBaseURL, s.Token),
		CancelURL:          fmt.Sprintf("%s/payment-cancelled?session_id=%s", p.appBaseURL, s.Token),
	}

	order, err := p.orders.CreateOrder(paypal.OrderIntentCapture, units, &paypal.CreateOrderPayer{}, appContext)
	if err != nil {
		return nil, fmt.Errorf("failed to create PayPal order: %w", err)
	}

	if href := approveLink(order); href != "" {
		return &Checkout{URL: href, Reference: order.ID}, nil
	}
	return nil, fmt.Errorf("no approval URL in PayPal order %s", order.ID)
}

func (p *PayPalProvider) returnURL(s *models.Session) string {
	return fmt.Sprintf("%s/payment-return?session_id=%s", p.appBaseURL, s.Token)
}

func approveLink(order *paypal.Order) string {
	for _, link := range order.Links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}

// ResumeCheckout reuses the stored order until it is voided or expires.
func (p *PayPalProvider) ResumeCheckout(_ context.Context, s *models.Session) (*Checkout, error) {
	if s.PaymentReference == "" {
		return nil, nil
	}

	order, err := p.orders.GetOrder(s.PaymentReference)
	if err != nil {
		return nil, fmt.Errorf("failed to get PayPal order: %w", err)
	}

	switch order.Status {
	case "APPROVED", "COMPLETED":
		return &Checkout{URL: p.returnURL(s), Reference: order.ID}, nil
	case "CREATED", "SAVED", "PAYER_ACTION_REQUIRED":
		if href := approveLink(order); href != "" {
			return &Checkout{URL: href, Reference: order.ID}, nil
		}
	}
	return nil, nil
}

// VerifyPayment captures an approved order. A completed order counts as paid.
func (p *PayPalProvider) VerifyPayment(_ context.Context, s *models.Session) (bool, error) {
	if s.PaymentReference == "" {
		return false, nil
	}

	order, err := p.orders.GetOrder(s.PaymentReference)
	if err != nil {
		return false, fmt.Errorf("failed to get PayPal order: %w", err)
	}

	switch order.Status {
	case "COMPLETED":
		return true, nil
	case "APPROVED":
		if _, err := p.orders.CaptureOrder(s.PaymentReference, paypal.CaptureOrderRequest{}); err != nil {
			return false, fmt.Errorf("failed to capture PayPal order: %w", err)
		}
		return true, nil
	default:
		return false, nil
	}
}
