package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/burnoutcheck/backend/internal/config"
	"github.com/burnoutcheck/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func TestLinkProviderCheckoutURL(t *testing.T) {
	p := NewLinkProvider("https://shop.example/l/report", "http://localhost:3000/")

	co, err := p.CreateCheckout(context.Background(), &models.Session{Token: "abc"})
	require.NoError(t, err)

	u, err := url.Parse(co.URL)
	require.NoError(t, err)
	assert.Equal(t, "shop.example", u.Host)
	assert.Equal(t, "true", u.Query().Get("wanted"))
	assert.Equal(t, "http://localhost:3000/payment-return?session_id=abc", u.Query().Get("return_url"))
	assert.Empty(t, co.Reference)

	paid, err := p.VerifyPayment(context.Background(), &models.Session{Token: "abc"})
	require.NoError(t, err)
	assert.True(t, paid)

	resumed, err := p.ResumeCheckout(context.Background(), &models.Session{Token: "abc"})
	require.NoError(t, err)
	assert.Nil(t, resumed)
}

type fakeCheckoutSessions struct {
	created *stripe.CheckoutSessionParams
	session *stripe.CheckoutSession
	err     error
}

func (f *fakeCheckoutSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.created = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (f *fakeCheckoutSessions) Get(id string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func stripeTestConfig() *config.Config {
	return &config.Config{AppBaseURL: "http://localhost:3000", ReportPriceCents: 900, ReportCurrency: "usd"}
}

func TestStripeProviderCreateCheckout(t *testing.T) {
	fake := &fakeCheckoutSessions{}
	p := newStripeProvider(fake, stripeTestConfig())

	co, err := p.CreateCheckout(context.Background(), &models.Session{Token: "abc", Email: "ada@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", co.Reference)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", co.URL)
	require.NotNil(t, fake.created)
	assert.Equal(t, "abc", fake.created.Metadata["session_id"])
	assert.Equal(t, "abc", *fake.created.ClientReferenceID)
	assert.Equal(t, int64(900), *fake.created.LineItems[0].PriceData.UnitAmount)
}

func TestStripeProviderVerifyPayment(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		session *stripe.CheckoutSession
		want    bool
	}{
		{"no checkout yet", "", nil, false},
		{"paid", "cs_1", &stripe.CheckoutSession{Metadata: map[string]string{"session_id": "abc"}, PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid}, true},
		{"unpaid", "cs_1", &stripe.CheckoutSession{Metadata: map[string]string{"session_id": "abc"}, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid}, false},
		{"other session", "cs_1", &stripe.CheckoutSession{Metadata: map[string]string{"session_id": "xyz"}, PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newStripeProvider(&fakeCheckoutSessions{session: tt.session}, stripeTestConfig())
			paid, err := p.VerifyPayment(context.Background(), &models.Session{Token: "abc", PaymentReference: tt.ref})
			require.NoError(t, err)
			assert.Equal(t, tt.want, paid)
		})
	}
}

func TestStripeProviderVerifyPaymentError(t *testing.T) {
	p := newStripeProvider(&fakeCheckoutSessions{err: errors.New("stripe down")}, stripeTestConfig())
	_, err := p.VerifyPayment(context.Background(), &models.Session{Token: "abc", PaymentReference: "cs_1"})
	assert.Error(t, err)
}

func TestStripeProviderResumeCheckout(t *testing.T) {
	owned := map[string]string{"session_id": "abc"}
	tests := []struct {
		name    string
		ref     string
		session *stripe.CheckoutSession
		wantURL string
	}{
		{"no checkout yet", "", nil, ""},
		{"open", "cs_1", &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1", Metadata: owned, Status: stripe.CheckoutSessionStatusOpen}, "https://checkout.stripe.test/cs_1"},
		{"paid", "cs_1", &stripe.CheckoutSession{ID: "cs_1", Metadata: owned, Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid}, "http://localhost:3000/payment-return?session_id=abc&checkout_id=cs_1"},
		{"expired", "cs_1", &stripe.CheckoutSession{ID: "cs_1", Metadata: owned, Status: stripe.CheckoutSessionStatusExpired}, ""},
		{"other session", "cs_1", &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1", Metadata: map[string]string{"session_id": "xyz"}, Status: stripe.CheckoutSessionStatusOpen}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newStripeProvider(&fakeCheckoutSessions{session: tt.session}, stripeTestConfig())

			co, err := p.ResumeCheckout(context.Background(), &models.Session{Token: "abc", PaymentReference: tt.ref})

			require.NoError(t, err)
			if tt.wantURL == "" {
				assert.Nil(t, co)
				return
			}
			require.NotNil(t, co)
			assert.Equal(t, tt.wantURL, co.URL)
			assert.Equal(t, "cs_1", co.Reference)
		})
	}
}

// stripeCheckouts keeps every checkout session it creates, addressable by id.
type stripeCheckouts struct {
	mu       sync.Mutex
	sessions map[string]*stripe.CheckoutSession
}

func newStripeCheckouts() *stripeCheckouts {
	return &stripeCheckouts{sessions: map[string]*stripe.CheckoutSession{}}
}

func (f *stripeCheckouts) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("cs_%d", len(f.sessions)+1)
	f.sessions[id] = &stripe.CheckoutSession{
		ID:                id,
		URL:               "https://checkout.stripe.test/" + id,
		ClientReferenceID: *params.ClientReferenceID,
		Metadata:          params.Metadata,
		Status:            stripe.CheckoutSessionStatusOpen,
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusUnpaid,
	}
	return f.sessions[id], nil
}

func (f *stripeCheckouts) Get(id string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such checkout.session: %s", id)
	}
	out := *cs
	return &out, nil
}

func (f *stripeCheckouts) pay(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].Status = stripe.CheckoutSessionStatusComplete
	f.sessions[id].PaymentStatus = stripe.CheckoutSessionPaymentStatusPaid
}

func (f *stripeCheckouts) expire(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].Status = stripe.CheckoutSessionStatusExpired
}

func (f *stripeCheckouts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}
