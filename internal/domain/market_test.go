package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		symbol string
		want   MarketType
	}{
		{"AAPL", MarketStock},
		{"BTC", MarketCrypto},
		{"eth", MarketCrypto},
		{"DOGE", MarketCrypto},
		{"EURUSD", MarketForex},
		{"gbpjpy", MarketForex},
		{"USDEUR", MarketStock}, // USD is not in the base currency set
		{"EURUS", MarketStock},  // wrong length
		{"BTCUSD", MarketStock}, // not an exact crypto match
		{" MSFT ", MarketStock},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.symbol))
			// Classification must be stable across calls
			assert.Equal(t, Classify(tt.symbol), Classify(tt.symbol))
		})
	}
}

func TestParseMarketType(t *testing.T) {
	m, err := ParseMarketType("Crypto")
	require.NoError(t, err)
	assert.Equal(t, MarketCrypto, m)

	_, err = ParseMarketType("bonds")
	assert.Error(t, err)
	assert.Equal(t, KindInvalidParameter, KindOf(err))
}

func TestRequiresWholeQuantity(t *testing.T) {
	assert.True(t, RequiresWholeQuantity(MarketStock))
	assert.False(t, RequiresWholeQuantity(MarketCrypto))
	assert.False(t, RequiresWholeQuantity(MarketForex))
}

func TestIsMarketOpen(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-06 is a Wednesday, 2024-03-09 a Saturday
	wednesdayMorning := time.Date(2024, 3, 6, 10, 0, 0, 0, ny)
	wednesdayEarly := time.Date(2024, 3, 6, 9, 29, 0, 0, ny)
	wednesdayOpen := time.Date(2024, 3, 6, 9, 30, 0, 0, ny)
	wednesdayClose := time.Date(2024, 3, 6, 16, 0, 0, 0, ny)
	wednesdayEvening := time.Date(2024, 3, 6, 16, 1, 0, 0, ny)
	saturday := time.Date(2024, 3, 9, 12, 0, 0, 0, ny)

	tests := []struct {
		name   string
		market MarketType
		now    time.Time
		want   bool
	}{
		{"stock during session", MarketStock, wednesdayMorning, true},
		{"stock before open", MarketStock, wednesdayEarly, false},
		{"stock at open", MarketStock, wednesdayOpen, true},
		{"stock at close", MarketStock, wednesdayClose, true},
		{"stock after close", MarketStock, wednesdayEvening, false},
		{"stock on weekend", MarketStock, saturday, false},
		{"forex on weekday evening", MarketForex, wednesdayEvening, true},
		{"forex on weekend", MarketForex, saturday, false},
		{"crypto on weekend", MarketCrypto, saturday, true},
		{"stock session evaluated in new york time", MarketStock, wednesdayMorning.UTC(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMarketOpen(tt.market, tt.now))
		})
	}
}
