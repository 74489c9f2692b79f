package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasdaq-heatmap/internal/config"
)

const aaplChart = `{"chart":{"result":[{"meta":{"symbol":"AAPL","currency":"USD","longName":"Apple Inc.","shortName":"Apple"},
"timestamp":[1741564800,1741651200,1741737600],
"indicators":{"quote":[{"close":[227.48,null,220.84]}]}}],"error":null}}`

const aaplQuote = `{"quoteResponse":{"result":[{"symbol":"AAPL","longName":"Apple Inc.","shortName":"Apple","marketCap":3317000000000,"regularMarketChangePercent":-2.9199,"currency":"USD"}],"error":null}}`

func newTestClient(t *testing.T, handler http.Handler, mutate ...func(*config.Settings)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := config.GetDefaultSettings()
	s.APIBaseURL = srv.URL
	s.CookieURL = srv.URL + "/cookie"
	for _, m := range mutate {
		m(s)
	}
	return NewClient(s, nil, nil)
}

func yahooMux(t *testing.T) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("A3"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, "abc123")
	})
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5d", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		fmt.Fprint(w, aaplChart)
	})
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("crumb") != "abc123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("symbols") {
		case "AAPL":
			fmt.Fprint(w, aaplQuote)
		default:
			fmt.Fprint(w, `{"quoteResponse":{"result":[],"error":null}}`)
		}
	})
	return mux
}

func TestFetchChart_DropsMissingCloses(t *testing.T) {
	c := newTestClient(t, yahooMux(t))

	chart, err := c.FetchChart(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc.", chart.Name)
	assert.Equal(t, []float64{227.48, 220.84}, chart.Closes)
	assert.Equal(t, []int64{1741564800, 1741737600}, chart.Timestamps)
}

func TestFetchChart_UnalignedTimestampsDropped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"AAPL"},"timestamp":[1741564800],
"indicators":{"quote":[{"close":[227.48,220.84]}]}}],"error":null}}`)
	})
	c := newTestClient(t, mux)

	chart, err := c.FetchChart(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []float64{227.48, 220.84}, chart.Closes)
	assert.Empty(t, chart.Timestamps)
}

func TestFetchQuote_UsesCrumbAndCookie(t *testing.T) {
	c := newTestClient(t, yahooMux(t))

	q, err := c.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 3.317e12, q.MarketCap)
	assert.Equal(t, "Apple Inc.", q.LongName)
	assert.Equal(t, -2.9199, q.ChangePercent)
	assert.Equal(t, "USD", q.Currency)
}

func TestFetchQuote_CrumbRejected(t *testing.T) {
	var crumbCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		crumbCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("crumb"))
		w.WriteHeader(http.StatusUnauthorized)
	})
	c := newTestClient(t, mux, func(s *config.Settings) { s.CookieURL = "" })

	_, err := c.FetchQuote(context.Background(), "AAPL")
	var ae *AccessError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "quote", ae.Endpoint)
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)

	// the failed handshake is not repeated
	_, err = c.FetchQuote(context.Background(), "AAPL")
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, int32(1), crumbCalls.Load())
}

func TestFetchQuote_FallsBackWithoutCrumb(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("crumb"))
		fmt.Fprint(w, aaplQuote)
	})
	c := newTestClient(t, mux, func(s *config.Settings) { s.CookieURL = "" })

	_, err := c.EnsureCrumb(context.Background())
	require.Error(t, err)

	q, err := c.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 3.317e12, q.MarketCap)
}

func TestFetchQuote_EmptyResultIsNotFound(t *testing.T) {
	c := newTestClient(t, yahooMux(t))

	_, err := c.FetchQuote(context.Background(), "ZZZZ")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ZZZZ", nf.Ticker)
}

func TestFetchChart_ProviderErrorOn404(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/GONE", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	})
	c := newTestClient(t, mux)

	_, err := c.FetchChart(context.Background(), "GONE")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Error(), "delisted")
}

func TestGet_RateLimitedFailsFastByDefault(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c := newTestClient(t, mux)

	_, err := c.FetchChart(context.Background(), "AAPL")
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "1", rl.RetryAfter)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, c.limiter.IsRateLimited())
}

func TestGet_RetriesServerErrorsWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, aaplChart)
	})
	c := newTestClient(t, mux, func(s *config.Settings) { s.MaxRetries = 1 })

	chart, err := c.FetchChart(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, chart.Closes, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_ServerErrorIsRequestError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	})
	c := newTestClient(t, mux)

	_, err := c.FetchChart(context.Background(), "AAPL")
	var re *RequestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
	assert.Contains(t, re.Error(), "boom")
}

func TestEndpointURL(t *testing.T) {
	u, err := EndpointURL("chart", "https://example.test", "BRK.B", "2d")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/v8/finance/chart/BRK.B?range=2d&interval=1d&includePrePost=false", u)

	u, err = EndpointURL("quote", "https://example.test", "AAPL", "a/b")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/v7/finance/quote?symbols=AAPL&crumb=a%2Fb", u)

	_, err = EndpointURL("options", "https://example.test", "AAPL")
	assert.Error(t, err)
}
