package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/model"
)

const quotePath = "/v7/finance/quote"

// YahooOptions parameterise the equity source.
type YahooOptions struct {
	BaseURL   string
	Symbols   []string
	Timeout   time.Duration
	UserAgent string
}

// Yahoo fetches equity quotes from the Yahoo Finance quote endpoint.
type Yahoo struct {
	opts    YahooOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewYahoo constructs the equity source.
func NewYahoo(opts YahooOptions, logger zerolog.Logger) *Yahoo {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}

	return &Yahoo{
		opts:    opts,
		logger:  logger.With().Str("component", "yahoo_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (y *Yahoo) Kind() model.AssetKind { return model.KindEquity }

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol        string   `json:"symbol"`
			MarketPrice   *float64 `json:"regularMarketPrice"`
			ChangePercent *float64 `json:"regularMarketChangePercent"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// Fetch retrieves quotes for the configured symbols. Symbols absent from the
// result set are logged and skipped.
func (y *Yahoo) Fetch(ctx context.Context) ([]model.Observation, error) {
	if len(y.opts.Symbols) == 0 {
		return nil, errors.New("no equity symbols configured")
	}

	query := url.Values{}
	query.Set("symbols", strings.Join(y.opts.Symbols, ","))

	endpoint := y.baseURL + quotePath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(y.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch equity quotes: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed yahooQuoteResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode yahoo response: %w", err)
	}
	if apiErr := parsed.QuoteResponse.Error; apiErr != nil {
		return nil, fmt.Errorf("yahoo api error: %s (%s)", apiErr.Description, apiErr.Code)
	}

	bySymbol := make(map[string]model.Observation, len(parsed.QuoteResponse.Result))
	observedAt := time.Now().UTC()
	for _, result := range parsed.QuoteResponse.Result {
		if result.MarketPrice == nil {
			continue
		}
		change := 0.0
		if result.ChangePercent != nil {
			change = *result.ChangePercent
		}
		bySymbol[result.Symbol] = model.Observation{
			Symbol:     result.Symbol,
			Price:      *result.MarketPrice,
			ChangePct:  change,
			Kind:       model.KindEquity,
			ObservedAt: observedAt,
		}
	}

	out := make([]model.Observation, 0, len(y.opts.Symbols))
	for _, symbol := range y.opts.Symbols {
		obs, ok := bySymbol[symbol]
		if !ok {
			y.logger.Warn().Str("symbol", symbol).Msg("symbol missing from response")
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}

var _ Source = (*Yahoo)(nil)
