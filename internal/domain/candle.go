package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar, unique per (Symbol, Resolution, Timestamp).
// Once stored it is never updated.
type Candle struct {
	Symbol     string
	Market     MarketType
	Resolution Resolution
	Timestamp  time.Time // start of the bar, UTC
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
	Source     string
}

// SortCandles orders candles chronologically and drops repeated timestamps (first one wins)
func SortCandles(candles []Candle) []Candle {
	sorted := make([]Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:0]
	for i, c := range sorted {
		if i > 0 && c.Timestamp.Equal(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// AggregateCandles folds chronologically ordered bars into wider intraday bars.
// Timestamps are floored to the target width; open is the first open, close the last close,
// high/low the extremes and volume the sum.
func AggregateCandles(candles []Candle, target Resolution) []Candle {
	width := target.Duration()
	if width == 0 {
		return nil
	}

	var result []Candle
	var current *Candle

	for _, c := range candles {
		bucket := c.Timestamp.UTC().Truncate(width)

		if current == nil || !current.Timestamp.Equal(bucket) {
			if current != nil {
				result = append(result, *current)
			}
			next := c
			next.Timestamp = bucket
			next.Resolution = target
			current = &next
			continue
		}

		if c.High.GreaterThan(current.High) {
			current.High = c.High
		}
		if c.Low.LessThan(current.Low) {
			current.Low = c.Low
		}
		current.Close = c.Close
		current.Volume = current.Volume.Add(c.Volume)
	}

	if current != nil {
		result = append(result, *current)
	}

	return result
}
