package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"nasdaq-heatmap/internal/config"
	"nasdaq-heatmap/internal/scheduler"
)

// Client handles HTTP requests to the Yahoo Finance API
type Client struct {
	baseURL    string
	cookieURL  string
	userAgent  string
	chartRange string
	maxRetries int
	httpClient *http.Client
	limiter    *scheduler.RateLimitTracker
	debugPrint func(string, string)

	mu         sync.Mutex
	crumb      string
	crumbTried bool
}

// NewClient creates a new API client with connection pooling and a cookie jar
func NewClient(settings *config.Settings, limiter *scheduler.RateLimitTracker, debugPrint func(string, string)) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.HTTPPoolConnections,
		MaxIdleConnsPerHost: config.HTTPPoolMaxSize,
		IdleConnTimeout:     config.HTTPIdleConnTimeout,
	}

	// cookiejar.New only fails on a bad PublicSuffixList, none is passed
	jar, _ := cookiejar.New(nil)

	timeout := time.Duration(settings.RequestTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultRequestTimeoutMs) * time.Millisecond
	}

	if limiter == nil {
		limiter = scheduler.NewRateLimitTracker(settings.RequestsPerSecond)
	}
	if debugPrint == nil {
		debugPrint = func(string, string) {}
	}

	return &Client{
		baseURL:    strings.TrimRight(settings.APIBaseURL, "/"),
		cookieURL:  settings.CookieURL,
		userAgent:  settings.UserAgent,
		chartRange: settings.ChartRange,
		maxRetries: settings.MaxRetries,
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   timeout,
		},
		limiter:    limiter,
		debugPrint: debugPrint,
	}
}

// EnsureCrumb obtains the session cookie and crumb used by the quote
// endpoint. The result (or failure) is cached for the client's lifetime.
func (c *Client) EnsureCrumb(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.crumbTried {
		return c.crumb, nil
	}
	c.crumbTried = true

	if c.cookieURL != "" {
		// The cookie host answers 404 but still sets the session cookie
		if _, _, err := c.do(ctx, "cookie", "", c.cookieURL, true); err != nil {
			c.debugPrint(fmt.Sprintf("Cookie request failed: %v", err), "api")
		}
	}

	crumbURL, err := EndpointURL("crumb", c.baseURL, "")
	if err != nil {
		return "", err
	}
	body, _, err := c.do(ctx, "crumb", "", crumbURL, false)
	if err != nil {
		return "", fmt.Errorf("failed to fetch crumb: %w", err)
	}

	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "{<") {
		return "", fmt.Errorf("unexpected crumb response %q", truncate(crumb))
	}
	c.crumb = crumb
	c.debugPrint("API: Crumb acquired", "api")
	return c.crumb, nil
}

// FetchChart fetches daily closes for ticker. Missing closes are dropped.
func (c *Client) FetchChart(ctx context.Context, ticker string) (*Chart, error) {
	u, err := EndpointURL("chart", c.baseURL, ticker, c.chartRange)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, "chart", ticker, u)
	if err != nil {
		return nil, err
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &RequestError{
			Endpoint:      "chart",
			Ticker:        ticker,
			Message:       fmt.Sprintf("Invalid JSON response from chart for %s", ticker),
			OriginalError: err,
		}
	}
	if resp.Chart.Error != nil {
		return nil, &NotFoundError{Endpoint: "chart", Ticker: ticker, Detail: resp.Chart.Error.Description}
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, &NotFoundError{Endpoint: "chart", Ticker: ticker}
	}

	result := resp.Chart.Result[0]
	rawCloses := result.Indicators.Quote[0].Close
	chart := &Chart{
		Symbol:     result.Meta.Symbol,
		Name:       firstNonEmpty(result.Meta.LongName, result.Meta.ShortName),
		Timestamps: make([]int64, 0, len(rawCloses)),
		Closes:     make([]float64, 0, len(rawCloses)),
	}
	aligned := len(result.Timestamps) == len(rawCloses)
	for i, px := range rawCloses {
		if px == nil {
			continue
		}
		chart.Closes = append(chart.Closes, *px)
		if aligned {
			chart.Timestamps = append(chart.Timestamps, result.Timestamps[i])
		}
	}
	return chart, nil
}

// FetchQuote fetches the quote snapshot for ticker
func (c *Client) FetchQuote(ctx context.Context, ticker string) (*Quote, error) {
	crumb, err := c.EnsureCrumb(ctx)
	if err != nil {
		// Some regions still serve quotes without a crumb
		c.debugPrint(fmt.Sprintf("Continuing without crumb: %v", err), "api")
	}

	u, err := EndpointURL("quote", c.baseURL, ticker, crumb)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, "quote", ticker, u)
	if err != nil {
		return nil, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &RequestError{
			Endpoint:      "quote",
			Ticker:        ticker,
			Message:       fmt.Sprintf("Invalid JSON response from quote for %s", ticker),
			OriginalError: err,
		}
	}
	if resp.QuoteResponse.Error != nil {
		return nil, &NotFoundError{Endpoint: "quote", Ticker: ticker, Detail: resp.QuoteResponse.Error.Description}
	}

	for _, r := range resp.QuoteResponse.Result {
		if !strings.EqualFold(r.Symbol, ticker) {
			continue
		}
		q := &Quote{
			Symbol:        r.Symbol,
			LongName:      r.LongName,
			ShortName:     r.ShortName,
			ChangePercent: r.RegularMarketChangePercent,
			Currency:      r.Currency,
		}
		if r.MarketCap != nil {
			q.MarketCap = *r.MarketCap
		}
		return q, nil
	}
	return nil, &NotFoundError{Endpoint: "quote", Ticker: ticker}
}

// get performs a GET with the configured retry budget
func (c *Client) get(ctx context.Context, endpoint, ticker, u string) ([]byte, error) {
	var lastErr error
	attempts := c.maxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt - 1)
			c.debugPrint(fmt.Sprintf("Retrying %s for %s in %v (attempt %d/%d): %v", endpoint, ticker, delay, attempt+1, attempts, lastErr), "api")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, status, err := c.do(ctx, endpoint, ticker, u, false)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable(err, status) || ctx.Err() != nil {
			return nil, err
		}
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// do sends one request. allowAnyStatus skips status handling, used for the cookie visit.
func (c *Client) do(ctx context.Context, endpoint, ticker, u string, allowAnyStatus bool) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	requestStartTime := time.Now()
	c.debugPrint(fmt.Sprintf("API: Fetching %s for %s", endpoint, ticker), "api")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &RequestError{
			Endpoint:      endpoint,
			Ticker:        ticker,
			Message:       fmt.Sprintf("request error fetching %s for %s", endpoint, ticker),
			OriginalError: err,
		}
	}
	defer resp.Body.Close()

	headers := make(map[string]string)
	for _, headerName := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"} {
		if val := resp.Header.Get(headerName); val != "" {
			headers[headerName] = val
		}
	}
	c.limiter.RecordHeaders(headers)

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseBytes))

	if allowAnyStatus {
		return body, resp.StatusCode, nil
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resp.StatusCode, &AccessError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d fetching %s for %s: access denied (crumb or cookie rejected)", resp.StatusCode, endpoint, ticker),
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		wait := c.limiter.HandleRateLimitError(retryAfter)
		return nil, resp.StatusCode, &RateLimitError{
			Endpoint:   endpoint,
			Message:    fmt.Sprintf("Rate limit exceeded for %s on %s, cooling down %v", endpoint, ticker, wait),
			RetryAfter: retryAfter,
		}
	case resp.StatusCode == http.StatusNotFound:
		return nil, resp.StatusCode, &NotFoundError{Endpoint: endpoint, Ticker: ticker, Detail: providerDetail(body)}
	case resp.StatusCode != http.StatusOK:
		return nil, resp.StatusCode, &RequestError{
			Endpoint:   endpoint,
			Ticker:     ticker,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d error fetching %s for %s: %s", resp.StatusCode, endpoint, ticker, truncate(string(body))),
		}
	}

	if readErr != nil {
		return nil, resp.StatusCode, &RequestError{
			Endpoint:      endpoint,
			Ticker:        ticker,
			StatusCode:    resp.StatusCode,
			Message:       fmt.Sprintf("failed to read %s response for %s", endpoint, ticker),
			OriginalError: readErr,
		}
	}

	c.debugPrint(fmt.Sprintf("API: Successfully fetched %s for %s (response time: %.3fs, size: %s)",
		endpoint, ticker, time.Since(requestStartTime).Seconds(), humanize.Bytes(uint64(len(body)))), "api")

	return body, resp.StatusCode, nil
}

// retryable reports whether another attempt could succeed
func retryable(err error, status int) bool {
	switch err.(type) {
	case *AccessError, *NotFoundError:
		return false
	case *RateLimitError:
		return true
	case *RequestError:
		return status == 0 || status >= 500
	}
	return false
}

func retryDelay(i int) time.Duration {
	if i >= len(config.RetryDelays) {
		return config.RetryDelays[len(config.RetryDelays)-1]
	}
	return config.RetryDelays[i]
}

// providerDetail pulls the description out of a Yahoo error body, if any
func providerDetail(body []byte) string {
	var wrapped map[string]struct {
		Error *providerError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return ""
	}
	for _, v := range wrapped {
		if v.Error != nil {
			return v.Error.Description
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) > config.ErrorBodyPreviewBytes {
		return s[:config.ErrorBodyPreviewBytes]
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
