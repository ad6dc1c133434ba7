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

const simplePricePath = "/simple/price"

// CoinGeckoOptions parameterise the crypto source.
type CoinGeckoOptions struct {
	BaseURL   string
	Assets    []string
	Timeout   time.Duration
	UserAgent string
}

// CoinGecko fetches spot prices and 24h changes for a fixed set of coins.
type CoinGecko struct {
	opts    CoinGeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinGecko constructs the crypto source.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	return &CoinGecko{
		opts:    opts,
		logger:  logger.With().Str("component", "coingecko_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *CoinGecko) Kind() model.AssetKind { return model.KindCrypto }

// Fetch retrieves USD prices for the configured coins. Coins missing from the
// response are logged and skipped, not errors.
func (c *CoinGecko) Fetch(ctx context.Context) ([]model.Observation, error) {
	if len(c.opts.Assets) == 0 {
		return nil, errors.New("no crypto assets configured")
	}

	query := url.Values{}
	query.Set("ids", strings.Join(c.opts.Assets, ","))
	query.Set("vs_currencies", "usd")
	query.Set("include_24hr_change", "true")

	endpoint := c.baseURL + simplePricePath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch crypto prices: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed map[string]struct {
		USD       *float64 `json:"usd"`
		USDChange *float64 `json:"usd_24h_change"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode coingecko response: %w", err)
	}

	observedAt := time.Now().UTC()
	out := make([]model.Observation, 0, len(c.opts.Assets))
	for _, asset := range c.opts.Assets {
		entry, ok := parsed[asset]
		if !ok || entry.USD == nil {
			c.logger.Warn().Str("symbol", asset).Msg("coin missing from response")
			continue
		}
		change := 0.0
		if entry.USDChange != nil {
			change = *entry.USDChange
		}
		out = append(out, model.Observation{
			Symbol:     asset,
			Price:      *entry.USD,
			ChangePct:  change,
			Kind:       model.KindCrypto,
			ObservedAt: observedAt,
		})
	}
	return out, nil
}

var _ Source = (*CoinGecko)(nil)
