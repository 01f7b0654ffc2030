// Package cartapi is the HTTP client for the server-side cart API.
package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "cartsync/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	addPath     = "/cart/add"
	serviceName = "cart-api"
	maxErrBody  = 512
)

// Config holds client settings
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Circuit breaker
	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerMinRequests      uint32
	BreakerFailureThreshold float64
}

// DefaultConfig returns client defaults for baseURL
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:                 baseURL,
		Timeout:                 15 * time.Second,
		BreakerMaxRequests:      5,
		BreakerInterval:         30 * time.Second,
		BreakerTimeout:          60 * time.Second,
		BreakerMinRequests:      5,
		BreakerFailureThreshold: 0.8,
	}
}

// addRequest is the wire body of POST /cart/add
type addRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// StatusError is returned when the API answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("cart api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("cart api returned status %d: %s", e.StatusCode, e.Body)
}

// Client implements ports.RemoteCart over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a cart API client. httpClient may be nil, in which case
// a client with cfg.Timeout is used.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("cart api base url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		baseURL:    base,
		httpClient: httpClient,
		logger:     logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        serviceName,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// 4xx means the API is up; only outages should trip the breaker
			var se *StatusError
			return errors.As(err, &se) && se.StatusCode < http.StatusInternalServerError
		},
	})

	return c, nil
}

// AddLineItem posts one line to the server-side cart under the caller's credential
func (c *Client) AddLineItem(ctx context.Context, credential string, productID string, quantity int) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.post(ctx, credential, addRequest{ProductID: productID, Quantity: quantity})
	})
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return pkgerrors.NewUnavailableError(serviceName).WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.NewTimeoutError("cart add").WithCause(err)
	}

	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden {
			return pkgerrors.NewUnauthorizedError("cart api rejected credential").WithCause(err)
		}
		return pkgerrors.NewExternalError(serviceName, err)
	}
	return pkgerrors.NewNetworkError("cart api request failed", err)
}

// State returns the circuit breaker state
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) post(ctx context.Context, credential string, body addRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+addPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("Cart API accepted line",
		zap.String("productID", body.ProductID),
		zap.Int("quantity", body.Quantity),
	)
	return nil
}
