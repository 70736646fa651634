package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"equity-factor-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

const dateLayout = "2006-01-02"

// Client fetches daily bars and universe membership over HTTP. Sessions
// are token based: Login must succeed before data calls, Logout releases
// the session.
type Client struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	token       string
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new market data client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is a structured error returned by the data service.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
}

type errorResponse struct {
	Error *apiError `json:"error"`
}

// Login opens a session and stores the returned token for later calls.
func (c *Client) Login(ctx context.Context) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/session", nil, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("login: empty session token")
	}
	c.token = resp.Token
	return nil
}

// Logout releases the session. Safe to call without a prior Login.
func (c *Client) Logout(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	err := c.do(ctx, http.MethodDelete, "/session", nil, nil)
	c.token = ""
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Universe lists securities for an exchange. Empty exchange lists all.
func (c *Client) Universe(ctx context.Context, exchange string) ([]domain.Security, error) {
	path := "/universe"
	if exchange != "" {
		path += "?exchange=" + url.QueryEscape(exchange)
	}

	var resp struct {
		Securities []struct {
			Symbol   string `json:"symbol"`
			Name     string `json:"name"`
			Exchange string `json:"exchange"`
			ListedAt string `json:"listed_at"`
		} `json:"securities"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch universe: %w", err)
	}

	secs := make([]domain.Security, 0, len(resp.Securities))
	for _, s := range resp.Securities {
		sec := domain.Security{
			Symbol:   s.Symbol,
			Name:     s.Name,
			Exchange: s.Exchange,
		}
		if s.ListedAt != "" {
			listed, err := time.Parse(dateLayout, s.ListedAt)
			if err != nil {
				return nil, fmt.Errorf("parse listed_at for %s: %w", s.Symbol, err)
			}
			sec.ListedAt = listed
		}
		secs = append(secs, sec)
	}
	return secs, nil
}

// barRow is one bar as delivered by the service. Valuation fields are
// optional and arrive as 0 when the service has no value for the day.
type barRow struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
	Turnover float64 `json:"turn"`
	PETTM    float64 `json:"peTTM"`
	PBMRQ    float64 `json:"pbMRQ"`
	PSTTM    float64 `json:"psTTM"`
}

// DailyBars fetches daily bars for one symbol over [start, end] inclusive.
func (c *Client) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("start", start.Format(dateLayout))
	q.Set("end", end.Format(dateLayout))

	var resp struct {
		Bars []barRow `json:"bars"`
	}
	if err := c.do(ctx, http.MethodGet, "/bars/daily?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch daily bars for %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(resp.Bars))
	for _, r := range resp.Bars {
		date, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("parse bar date for %s: %w", symbol, err)
		}
		bars = append(bars, domain.Bar{
			Symbol:   symbol,
			Date:     date,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Volume:   r.Volume,
			Turnover: r.Turnover,
			PETTM:    r.PETTM,
			PBMRQ:    r.PBMRQ,
			PSTTM:    r.PSTTM,
		})
	}
	return bars, nil
}

// do performs one API call with retries and exponential backoff. Transport
// failures and 429/5xx responses are retried; 4xx API errors are not. The
// body is re-wrapped per attempt so retries never send a drained reader.
func (c *Client) do(ctx context.Context, method, path string, body []byte, result interface{}) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var errResp errorResponse
			if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != nil {
				return errResp.Error
			}
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
