package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_LoginAndDailyBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/session":
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})

		case r.Method == http.MethodGet && r.URL.Path == "/bars/daily":
			if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
				t.Errorf("expected bearer token, got %q", got)
			}
			if got := r.URL.Query().Get("symbol"); got != "sh.600519" {
				t.Errorf("expected symbol sh.600519, got %q", got)
			}
			if got := r.URL.Query().Get("start"); got != "2023-07-03" {
				t.Errorf("expected start 2023-07-03, got %q", got)
			}

			resp := map[string]interface{}{
				"bars": []map[string]interface{}{
					{
						"date": "2023-07-03", "open": 1700.0, "high": 1720.0,
						"low": 1690.0, "close": 1710.0, "volume": 25000.0,
						"turn": 0.2, "peTTM": 32.5, "pbMRQ": 9.1, "psTTM": 16.4,
					},
					{
						"date": "2023-07-04", "open": 1710.0, "high": 1730.0,
						"low": 1700.0, "close": 1725.0, "volume": 21000.0,
						"turn": 0.18,
					},
				},
			}
			json.NewEncoder(w).Encode(resp)

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	if err := client.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	start := time.Date(2023, 7, 3, 0, 0, 0, 0, time.UTC)
	bars, err := client.DailyBars(ctx, "sh.600519", start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}

	if bars[0].Symbol != "sh.600519" {
		t.Errorf("expected symbol sh.600519, got %s", bars[0].Symbol)
	}
	if !bars[0].Date.Equal(start) {
		t.Errorf("expected date %v, got %v", start, bars[0].Date)
	}
	if bars[0].Close != 1710 {
		t.Errorf("expected close 1710, got %v", bars[0].Close)
	}
	if bars[0].PETTM != 32.5 {
		t.Errorf("expected peTTM 32.5, got %v", bars[0].PETTM)
	}

	// Missing valuation fields arrive as zero; panel building turns them
	// into missing values later.
	if bars[1].PETTM != 0 {
		t.Errorf("expected zero peTTM for sparse bar, got %v", bars[1].PETTM)
	}
}

func TestClient_Universe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/universe" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("exchange"); got != "sh" {
			t.Errorf("expected exchange sh, got %q", got)
		}

		resp := map[string]interface{}{
			"securities": []map[string]interface{}{
				{"symbol": "sh.600519", "name": "Kweichow Moutai", "exchange": "sh", "listed_at": "2001-08-27"},
				{"symbol": "sh.600000", "name": "SPD Bank", "exchange": "sh"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	secs, err := client.Universe(context.Background(), "sh")
	if err != nil {
		t.Fatalf("Universe: %v", err)
	}

	if len(secs) != 2 {
		t.Fatalf("expected 2 securities, got %d", len(secs))
	}
	if secs[0].Name != "Kweichow Moutai" {
		t.Errorf("expected name, got %s", secs[0].Name)
	}
	want := time.Date(2001, 8, 27, 0, 0, 0, 0, time.UTC)
	if !secs[0].ListedAt.Equal(want) {
		t.Errorf("expected listed_at %v, got %v", want, secs[0].ListedAt)
	}
	if !secs[1].ListedAt.IsZero() {
		t.Errorf("expected zero listed_at, got %v", secs[1].ListedAt)
	}
}

func TestClient_RetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	}))
	defer server.Close()

	client := NewClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
	)

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestClient_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL,
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
	)

	err := client.Login(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestClient_APIErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "BAD_SYMBOL", "message": "unknown symbol"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))

	_, err := client.DailyBars(context.Background(), "bogus", time.Now(), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected apiError, got %v", err)
	}
	if apiErr.Code != "BAD_SYMBOL" {
		t.Errorf("expected code BAD_SYMBOL, got %s", apiErr.Code)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("client errors must not retry, got %d attempts", got)
	}
}

func TestClient_LogoutWithoutLogin(t *testing.T) {
	client := NewClient("http://unused")
	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout without session: %v", err)
	}
}
