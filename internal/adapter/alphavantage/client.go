// Package alphavantage fetches quotes and OHLCV history from the Alpha Vantage REST API
package alphavantage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/yanun0323/errors"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

const (
	// Name identifies the provider in cached prices and candles
	Name = "alpha_vantage"

	DefaultBaseURL = "https://www.alphavantage.co/query"
	quoteCurrency  = "USD"
)

// Client implements domain.MarketDataProvider
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Now     func() time.Time
}

var _ domain.MarketDataProvider = (*Client)(nil)

// NewClient creates an Alpha Vantage client.
// timeout bounds one HTTP round trip; callers may set a shorter deadline on the context.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
		Now:     time.Now,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return Name
}

// Quote returns the latest price of symbol
// Stocks use GLOBAL_QUOTE; crypto and forex use CURRENCY_EXCHANGE_RATE.
func (c *Client) Quote(ctx context.Context, symbol string, market domain.MarketType) (*domain.ProviderQuote, error) {
	params := url.Values{}
	var path string

	switch market {
	case domain.MarketStock:
		params.Set("function", "GLOBAL_QUOTE")
		params.Set("symbol", symbol)
		path = `$["Global Quote"]["05. price"]`
	case domain.MarketCrypto:
		params.Set("function", "CURRENCY_EXCHANGE_RATE")
		params.Set("from_currency", symbol)
		params.Set("to_currency", quoteCurrency)
		path = `$["Realtime Currency Exchange Rate"]["5. Exchange Rate"]`
	case domain.MarketForex:
		from, to := splitPair(symbol)
		params.Set("function", "CURRENCY_EXCHANGE_RATE")
		params.Set("from_currency", from)
		params.Set("to_currency", to)
		path = `$["Realtime Currency Exchange Rate"]["5. Exchange Rate"]`
	default:
		return nil, domain.NewError(domain.KindInvalidParameter, "unsupported market %q", market)
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	raw, err := jsonpath.Get(path, body)
	if err != nil {
		return nil, domain.NewError(domain.KindUnknownSymbol, "no data found for symbol %s", symbol)
	}

	price, err := toDecimal(raw)
	if err != nil || !price.IsPositive() {
		return nil, domain.NewError(domain.KindUnknownSymbol, "no price available for symbol %s", symbol)
	}

	return &domain.ProviderQuote{
		Symbol:     symbol,
		Market:     market,
		Price:      price,
		Source:     Name,
		ObservedAt: c.Now().UTC(),
	}, nil
}

// History returns bars of req.Symbol inside [req.Start, req.End) in chronological order,
// at most req.Limit of them (the newest)
func (c *Client) History(ctx context.Context, req domain.HistoryRequest) ([]domain.Candle, error) {
	fetchRes := req.Resolution
	if req.Resolution == domain.Resolution120Min || req.Resolution == domain.Resolution240Min {
		// No native 2h/4h series: fold hourly bars
		fetchRes = domain.Resolution60Min
	}

	params, err := historyParams(req.Symbol, req.Market, fetchRes)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	series, ok := timeSeries(body)
	if !ok {
		return nil, domain.NewError(domain.KindUnknownSymbol, "no historical data found for %s", req.Symbol)
	}

	candles, err := parseSeries(series, req.Symbol, req.Market, fetchRes)
	if err != nil {
		return nil, err
	}

	if fetchRes != req.Resolution {
		candles = domain.AggregateCandles(candles, req.Resolution)
	}

	candles = inRange(candles, req.Start, req.End)
	if req.Limit > 0 && len(candles) > req.Limit {
		candles = candles[len(candles)-req.Limit:]
	}
	return candles, nil
}

// inRange drops bars outside [start, end); a nil bound is open
func inRange(candles []domain.Candle, start, end *time.Time) []domain.Candle {
	if start == nil && end == nil {
		return candles
	}
	out := candles[:0]
	for _, c := range candles {
		if start != nil && c.Timestamp.Before(*start) {
			continue
		}
		if end != nil && !c.Timestamp.Before(*end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// historyParams picks the series function for a market and resolution
func historyParams(symbol string, market domain.MarketType, res domain.Resolution) (url.Values, error) {
	params := url.Values{}
	interval := string(res) + "min"

	switch market {
	case domain.MarketStock:
		params.Set("symbol", symbol)
		switch {
		case res.IsIntraday():
			params.Set("function", "TIME_SERIES_INTRADAY")
			params.Set("interval", interval)
			params.Set("outputsize", "full")
		case res == domain.ResolutionDay:
			params.Set("function", "TIME_SERIES_DAILY")
			params.Set("outputsize", "full")
		case res == domain.ResolutionWeek:
			params.Set("function", "TIME_SERIES_WEEKLY")
		case res == domain.ResolutionMonth:
			params.Set("function", "TIME_SERIES_MONTHLY")
		}

	case domain.MarketCrypto:
		params.Set("symbol", symbol)
		params.Set("market", quoteCurrency)
		switch {
		case res.IsIntraday():
			params.Set("function", "CRYPTO_INTRADAY")
			params.Set("interval", interval)
			params.Set("outputsize", "full")
		case res == domain.ResolutionDay:
			params.Set("function", "DIGITAL_CURRENCY_DAILY")
		case res == domain.ResolutionWeek:
			params.Set("function", "DIGITAL_CURRENCY_WEEKLY")
		case res == domain.ResolutionMonth:
			params.Set("function", "DIGITAL_CURRENCY_MONTHLY")
		}

	case domain.MarketForex:
		from, to := splitPair(symbol)
		params.Set("from_symbol", from)
		params.Set("to_symbol", to)
		switch {
		case res.IsIntraday():
			params.Set("function", "FX_INTRADAY")
			params.Set("interval", interval)
			params.Set("outputsize", "full")
		case res == domain.ResolutionDay:
			params.Set("function", "FX_DAILY")
			params.Set("outputsize", "full")
		case res == domain.ResolutionWeek:
			params.Set("function", "FX_WEEKLY")
		case res == domain.ResolutionMonth:
			params.Set("function", "FX_MONTHLY")
		}

	default:
		return nil, domain.NewError(domain.KindInvalidParameter, "unsupported market %q", market)
	}

	if params.Get("function") == "" {
		return nil, domain.NewError(domain.KindInvalidResolution, "unsupported resolution %q", res)
	}
	return params, nil
}

// get calls the API and decodes the JSON object it returns.
// Alpha Vantage reports most failures with HTTP 200 and an explanatory field.
func (c *Client) get(ctx context.Context, params url.Values) (map[string]any, error) {
	params.Set("apikey", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrapf(err, "call %s", params.Get("function"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s returned %s", params.Get("function"), resp.Status)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrapf(err, "decode %s response", params.Get("function"))
	}

	if msg, ok := body["Error Message"].(string); ok {
		return nil, domain.NewError(domain.KindUnknownSymbol, "%s", msg)
	}
	for _, field := range []string{"Note", "Information"} {
		if msg, ok := body[field].(string); ok {
			return nil, errors.Errorf("provider refused request: %s", msg)
		}
	}

	return body, nil
}

func splitPair(symbol string) (string, string) {
	if len(symbol) < 6 {
		return symbol, quoteCurrency
	}
	return symbol[:3], symbol[3:6]
}
