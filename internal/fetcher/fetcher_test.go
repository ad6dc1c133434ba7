package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/model"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestCoinGeckoFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ids") != "bitcoin,ethereum" {
			t.Fatalf("unexpected ids %q", q.Get("ids"))
		}
		if q.Get("vs_currencies") != "usd" || q.Get("include_24hr_change") != "true" {
			t.Fatalf("unexpected query %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"bitcoin": {"usd": 45000.5, "usd_24h_change": 2.34},
			"ethereum": {"usd": 3200.0, "usd_24h_change": -1.1}
		}`))
	}))
	defer srv.Close()

	source := NewCoinGecko(CoinGeckoOptions{
		BaseURL: srv.URL,
		Assets:  []string{"bitcoin", "ethereum"},
		Timeout: time.Second,
	}, testLogger())

	if source.Kind() != model.KindCrypto {
		t.Fatalf("unexpected kind %s", source.Kind())
	}

	out, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(out))
	}
	if out[0].Symbol != "bitcoin" || out[0].Price != 45000.5 || out[0].ChangePct != 2.34 {
		t.Fatalf("unexpected bitcoin observation: %+v", out[0])
	}
	if out[1].Kind != model.KindCrypto {
		t.Fatalf("observation kind should be crypto, got %s", out[1].Kind)
	}
	if out[0].ObservedAt.IsZero() {
		t.Fatal("observation timestamp should be set")
	}
}

func TestCoinGeckoSkipsMissingCoins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin": {"usd": 45000.5, "usd_24h_change": 2.34}}`))
	}))
	defer srv.Close()

	source := NewCoinGecko(CoinGeckoOptions{
		BaseURL: srv.URL,
		Assets:  []string{"bitcoin", "notacoin"},
		Timeout: time.Second,
	}, testLogger())

	out, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(out) != 1 || out[0].Symbol != "bitcoin" {
		t.Fatalf("missing coin should be skipped, got %+v", out)
	}
}

func TestCoinGeckoSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":{"error_code":429}}`))
	}))
	defer srv.Close()

	source := NewCoinGecko(CoinGeckoOptions{
		BaseURL: srv.URL,
		Assets:  []string{"bitcoin"},
		Timeout: time.Second,
	}, testLogger())

	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestCoinGeckoRejectsEmptyAssetList(t *testing.T) {
	source := NewCoinGecko(CoinGeckoOptions{BaseURL: "http://localhost"}, testLogger())
	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatal("expected error with no configured assets")
	}
}

func TestYahooFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v7/finance/quote" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbols"); got != "AAPL,GOOGL" {
			t.Fatalf("unexpected symbols %q", got)
		}
		_, _ = w.Write([]byte(`{
			"quoteResponse": {
				"result": [
					{"symbol": "AAPL", "regularMarketPrice": 175.25, "regularMarketChangePercent": 1.2},
					{"symbol": "GOOGL", "regularMarketPrice": 140.0, "regularMarketChangePercent": -0.5}
				],
				"error": null
			}
		}`))
	}))
	defer srv.Close()

	source := NewYahoo(YahooOptions{
		BaseURL: srv.URL,
		Symbols: []string{"AAPL", "GOOGL"},
		Timeout: time.Second,
	}, testLogger())

	if source.Kind() != model.KindEquity {
		t.Fatalf("unexpected kind %s", source.Kind())
	}

	out, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(out))
	}
	if out[0].Symbol != "AAPL" || out[0].Price != 175.25 || out[0].ChangePct != 1.2 {
		t.Fatalf("unexpected AAPL observation: %+v", out[0])
	}
	if out[1].Kind != model.KindEquity {
		t.Fatalf("observation kind should be equity, got %s", out[1].Kind)
	}
}

func TestYahooSkipsSymbolsWithoutPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"quoteResponse": {
				"result": [
					{"symbol": "AAPL", "regularMarketPrice": 175.25, "regularMarketChangePercent": 1.2},
					{"symbol": "HALTED"}
				],
				"error": null
			}
		}`))
	}))
	defer srv.Close()

	source := NewYahoo(YahooOptions{
		BaseURL: srv.URL,
		Symbols: []string{"AAPL", "HALTED"},
		Timeout: time.Second,
	}, testLogger())

	out, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(out) != 1 || out[0].Symbol != "AAPL" {
		t.Fatalf("symbol without price should be skipped, got %+v", out)
	}
}

func TestYahooSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"quoteResponse": {
				"result": [],
				"error": {"code": "Unauthorized", "description": "invalid crumb"}
			}
		}`))
	}))
	defer srv.Close()

	source := NewYahoo(YahooOptions{
		BaseURL: srv.URL,
		Symbols: []string{"AAPL"},
		Timeout: time.Second,
	}, testLogger())

	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for api-level error payload")
	}
}
