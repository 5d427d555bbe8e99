package stripepay

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rookgm/creditmart/internal/models"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// Client creates stripe checkout sessions
type Client struct {
	api        *client.API
	configured bool
	successURL string
	cancelURL  string
}

// NewClient creates new Client instance. backends may be nil to use stripe defaults.
func NewClient(secretKey, successURL, cancelURL string, backends *stripe.Backends) *Client {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Client{
		api:        api,
		configured: secretKey != "",
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// SessionRequest describes a one-off purchase of a credit pack
type SessionRequest struct {
	OrderID  string
	ClientID string
	PackID   string
	Name     string
	Credits  int64
	Amount   int64
	Currency string
	Email    string
}

// Session is created checkout session
type Session struct {
	ID  string
	URL string
	Raw json.RawMessage
}

// CreateCheckoutSession creates hosted checkout page for the order
func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if !c.configured {
		return nil, models.ErrMissingSecret
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(c.successURL),
		CancelURL:          stripe.String(c.cancelURL),
		ClientReferenceID:  stripe.String(req.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.AddMetadata("clientId", req.ClientID)
	params.AddMetadata("packId", req.PackID)
	params.AddMetadata("orderId", req.OrderID)
	params.AddMetadata("credits", strconv.FormatInt(req.Credits, 10))

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:  s.ID,
		URL: s.URL,
		Raw: raw,
	}, nil
}
