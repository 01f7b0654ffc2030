package cartapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "cartsync/pkg/errors"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := DefaultConfig(url)
	cfg.Timeout = 2 * time.Second
	client, err := NewClient(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestClient_AddLineItemSendsBearerAndBody(t *testing.T) {
	var gotAuth, gotContentType, gotPath, gotMethod string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/")
	err := client.AddLineItem(context.Background(), "tok-123", "sku-9", 3)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/cart/add", gotPath)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "sku-9", gotBody["product_id"])
	assert.Equal(t, float64(3), gotBody["quantity"])
}

func TestClient_Non2xxIsFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal))
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.True(t, pkgerrors.IsUnauthorized(err))
			},
		},
		{
			name:   "redirect status",
			status: http.StatusNotModified,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusNotModified, se.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := newTestClient(t, server.URL).AddLineItem(context.Background(), "tok", "p1", 1)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := newTestClient(t, url).AddLineItem(context.Background(), "tok", "p1", 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeNetwork))
}

func TestClient_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := newTestClient(t, server.URL).AddLineItem(ctx, "tok", "p1", 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeTimeout))
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureThreshold = 0.5
	client, err := NewClient(cfg, nil, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_ = client.AddLineItem(context.Background(), "tok", "p1", 1)
	}
	assert.Equal(t, gobreaker.StateOpen, client.State())

	err = client.AddLineItem(context.Background(), "tok", "p1", 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.BreakerMinRequests = 1
	client, err := NewClient(cfg, nil, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.Error(t, client.AddLineItem(context.Background(), "tok", "p1", 1))
	}
	assert.Equal(t, gobreaker.StateClosed, client.State())
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(DefaultConfig("  "), nil, zap.NewNop())
	assert.Error(t, err)
}
