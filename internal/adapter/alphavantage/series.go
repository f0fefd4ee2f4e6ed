package alphavantage

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

const metaDataKey = "Meta Data"

var timestampLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

// Field names differ between endpoints; the first one present wins.
var (
	openFields   = []string{"1. open", "1a. open (USD)", "1b. open (USD)"}
	highFields   = []string{"2. high", "2a. high (USD)", "2b. high (USD)"}
	lowFields    = []string{"3. low", "3a. low (USD)", "3b. low (USD)"}
	closeFields  = []string{"4. close", "4a. close (USD)", "4b. close (USD)"}
	volumeFields = []string{"5. volume", "6. volume"}
)

// timeSeries returns the bar map of a series response.
// Every series function names its key differently ("Time Series (Daily)", "Weekly Time Series", ...),
// so the first object other than the metadata is taken.
func timeSeries(body map[string]any) (map[string]any, bool) {
	for key, v := range body {
		if key == metaDataKey {
			continue
		}
		if series, ok := v.(map[string]any); ok && len(series) > 0 {
			return series, true
		}
	}
	return nil, false
}

// parseSeries converts the bar map into chronologically ordered candles.
// Timestamps are read as UTC. Forex series have no volume.
func parseSeries(series map[string]any, symbol string, market domain.MarketType, res domain.Resolution) ([]domain.Candle, error) {
	candles := make([]domain.Candle, 0, len(series))

	for stamp, raw := range series {
		bar, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		ts, err := parseTimestamp(stamp)
		if err != nil {
			return nil, err
		}

		c := domain.Candle{
			Symbol:     symbol,
			Market:     market,
			Resolution: res,
			Timestamp:  ts,
			Volume:     decimal.Zero,
			Source:     Name,
		}

		if c.Open, err = field(bar, openFields); err != nil {
			return nil, errors.Wrapf(err, "bar %s", stamp)
		}
		if c.High, err = field(bar, highFields); err != nil {
			return nil, errors.Wrapf(err, "bar %s", stamp)
		}
		if c.Low, err = field(bar, lowFields); err != nil {
			return nil, errors.Wrapf(err, "bar %s", stamp)
		}
		if c.Close, err = field(bar, closeFields); err != nil {
			return nil, errors.Wrapf(err, "bar %s", stamp)
		}
		if market != domain.MarketForex {
			if v, err := field(bar, volumeFields); err == nil {
				c.Volume = v
			}
		}

		candles = append(candles, c)
	}

	return domain.SortCandles(candles), nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unexpected timestamp %q", s)
}

func field(bar map[string]any, names []string) (decimal.Decimal, error) {
	for _, name := range names {
		if raw, ok := bar[name]; ok {
			return toDecimal(raw)
		}
	}
	return decimal.Zero, errors.Errorf("missing field %s", names[0])
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case []any:
		// jsonpath wildcard results come back as a slice
		if len(v) == 0 {
			return decimal.Zero, errors.New("empty value")
		}
		return toDecimal(v[0])
	default:
		return decimal.Zero, errors.Errorf("unexpected value type %T", raw)
	}
}
