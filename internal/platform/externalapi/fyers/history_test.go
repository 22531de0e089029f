package fyers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	tokenentity "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain/entity"
)

var testCreds = tokenentity.CredentialSet{ClientID: "APP-100", AppSecret: "secret", AccessToken: "tok"}

func TestHistoryClient_GetHistory(t *testing.T) {
	t.Parallel()
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.FixedZone("IST", 19800))

	tests := []struct {
		name       string
		status     int
		body       string
		wantCount  int
		wantErr    error
		wantAnyErr bool
	}{
		{
			name:      "success: candles are decoded",
			status:    http.StatusOK,
			body:      `{"s":"ok","candles":[[1736912700,2500.5,2510,2495.25,2505,1200],[1736913000,2505,2512,2501,2511.75,800]]}`,
			wantCount: 2,
		},
		{
			name:      "success: no_data yields empty slice",
			status:    http.StatusOK,
			body:      `{"s":"no_data","candles":[]}`,
			wantCount: 0,
		},
		{
			name:    "error: 401 is auth expired",
			status:  http.StatusUnauthorized,
			body:    `{"s":"error","code":-16,"message":"unauthorized"}`,
			wantErr: domain.ErrAuthExpired,
		},
		{
			name:    "error: token error code in body is auth expired",
			status:  http.StatusOK,
			body:    `{"s":"error","code":-8,"message":"Your token has expired"}`,
			wantErr: domain.ErrAuthExpired,
		},
		{
			name:    "error: gateway timeout is upstream timeout",
			status:  http.StatusGatewayTimeout,
			body:    ``,
			wantErr: domain.ErrUpstreamTimeout,
		},
		{
			name:       "error: other api error",
			status:     http.StatusOK,
			body:       `{"s":"error","code":-300,"message":"invalid symbol"}`,
			wantAnyErr: true,
		},
		{
			name:       "error: short candle row",
			status:     http.StatusOK,
			body:       `{"s":"ok","candles":[[1736912700,1,2,3]]}`,
			wantAnyErr: true,
		},
		{
			name:      "success: float volume with zero fraction",
			status:    http.StatusOK,
			body:      `{"s":"ok","candles":[[1736912700,1,2,0.5,1.5,1200.0]]}`,
			wantCount: 1,
		},
		{
			name:       "error: fractional volume",
			status:     http.StatusOK,
			body:       `{"s":"ok","candles":[[1736912700,1,2,0.5,1.5,1200.7]]}`,
			wantAnyErr: true,
		},
		{
			name:       "error: negative volume",
			status:     http.StatusOK,
			body:       `{"s":"ok","candles":[[1736912700,1,2,0.5,1.5,-5]]}`,
			wantAnyErr: true,
		},
		{
			name:       "error: server error",
			status:     http.StatusInternalServerError,
			body:       `oops`,
			wantAnyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/data/history", r.URL.Path)
				assert.Equal(t, "NSE:RELIANCE-EQ", r.URL.Query().Get("symbol"))
				assert.Equal(t, "5", r.URL.Query().Get("resolution"))
				assert.Equal(t, "2025-01-15", r.URL.Query().Get("range_from"))
				assert.Equal(t, "2025-01-15", r.URL.Query().Get("range_to"))
				assert.Equal(t, "APP-100:tok", r.Header.Get("Authorization"))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewHistoryClient(Config{BaseURL: server.URL, Resolution: "5"}, server.Client())
			got, err := client.GetHistory(context.Background(), testCreds, "NSE:RELIANCE-EQ", day)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAnyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				require.Len(t, got, tt.wantCount)
			}
		})
	}
}

func TestHistoryClient_GetHistory_Values(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"ok","candles":[[1736912700,2500.5,2510,2495.25,2505,1200]]}`))
	}))
	defer server.Close()

	client := NewHistoryClient(Config{BaseURL: server.URL, Resolution: "5"}, server.Client())
	got, err := client.GetHistory(context.Background(), testCreds, "NSE:RELIANCE-EQ", time.Now())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1736912700), got[0].Time)
	assert.True(t, decimal.RequireFromString("2500.5").Equal(got[0].Open))
	assert.True(t, decimal.RequireFromString("2495.25").Equal(got[0].Low))
	assert.Equal(t, int64(1200), got[0].Volume)
}

func TestHistoryClient_GetHistory_Timeout(t *testing.T) {
	t.Parallel()
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(block)

	httpClient := server.Client()
	httpClient.Timeout = 50 * time.Millisecond
	client := NewHistoryClient(Config{BaseURL: server.URL, Resolution: "5"}, httpClient)

	_, err := client.GetHistory(context.Background(), testCreds, "NSE:RELIANCE-EQ", time.Now())

	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}
