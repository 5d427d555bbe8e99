package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rookgm/creditmart/internal/models"
)

// default time of retry after
const delaySeconds = 60

// Client is a paystack REST API client
type Client struct {
	client    *http.Client
	baseURL   string
	secretKey string
	timeout   time.Duration
}

// NewClient creates new Client instance. Every request is bounded by timeout.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		secretKey: secretKey,
		timeout:   timeout,
	}
}

// HTTPClient returns underlying http client
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Verify fetches transaction by reference
// 200 - transaction found, its status tells whether it was paid;
// 400, 404 - transaction reference not found;
// 429 - too many requests;
// 5xx - paystack internal error.
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	if reference == "" {
		return nil, models.ErrMissingReference
	}
	if c.secretKey == "" {
		return nil, models.ErrMissingSecret
	}

	// GET /transaction/verify/{reference}
	u, err := url.JoinPath(c.baseURL, "transaction", "verify", reference)
	if err != nil {
		return nil, err
	}

	env, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	if len(env.Data) == 0 || env.Data[0] != '{' {
		return nil, fmt.Errorf("%w: verify response without data", models.ErrProcessorUnavailable)
	}

	return parseTransaction(env.Data)
}

// InitializeRequest is body of transaction initialization
type InitializeRequest struct {
	Amount      int64          `json:"amount"`
	Email       string         `json:"email"`
	Currency    string         `json:"currency,omitempty"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// InitializeResponse contains checkout url of initialized transaction
type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`

	Raw json.RawMessage `json:"-"`
}

// Initialize creates transaction and returns checkout url
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	if c.secretKey == "" {
		return nil, models.ErrMissingSecret
	}

	// POST /transaction/initialize
	u, err := url.JoinPath(c.baseURL, "transaction", "initialize")
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	env, err := c.do(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}

	resp := InitializeResponse{}
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProcessorUnavailable, err)
	}
	resp.Raw = env.Data

	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, u string, body []byte) (*envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", models.ErrProcessorTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrProcessorUnavailable, err)
	}

	env := envelope{}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			if isTimeout(err) {
				return nil, fmt.Errorf("%w: %v", models.ErrProcessorTimeout, err)
			}
			return nil, fmt.Errorf("%w: %v", models.ErrProcessorUnavailable, err)
		}
		if !env.Status {
			return nil, fmt.Errorf("%w: %s", models.ErrProcessorRejected, env.Message)
		}
		return &env, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		t, err := strconv.Atoi(resp.Header.Get("Retry-After"))
		if err != nil {
			t = delaySeconds
		}
		return nil, models.NewTooManyRequestsError(time.Duration(t) * time.Second)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", models.ErrProcessorUnavailable, resp.StatusCode)
	default:
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return nil, fmt.Errorf("%w: %w", models.ErrProcessorRejected, models.ProcessorStatusError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
		})
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
