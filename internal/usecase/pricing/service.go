package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

const (
	// DefaultTTL is how long a cached price is reused
	DefaultTTL = 60 * time.Second
	// DefaultFetchTimeout bounds one provider call
	DefaultFetchTimeout = 30 * time.Second
)

// Quote is the price answer served to callers
type Quote struct {
	Symbol     string
	Market     domain.MarketType
	Price      decimal.Decimal
	Source     string
	ObservedAt time.Time
	CachedAt   time.Time
	FromCache  bool
}

// PriceService is a read-through TTL cache in front of the market data provider
type PriceService struct {
	Provider     domain.MarketDataProvider
	CacheRepo    domain.PriceCacheRepository
	TTL          time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
}

// NewPriceService creates a new PriceService instance
func NewPriceService(provider domain.MarketDataProvider, cacheRepo domain.PriceCacheRepository, ttl, fetchTimeout time.Duration) *PriceService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &PriceService{
		Provider:     provider,
		CacheRepo:    cacheRepo,
		TTL:          ttl,
		FetchTimeout: fetchTimeout,
		Now:          time.Now,
	}
}

// GetPrice returns the current price of symbol
// Logic:
//  1. Reuse the cached entry when now - cachedAt < TTL
//  2. Otherwise ask the provider (bounded by FetchTimeout), replace the cache entry and return it
//
// Provider failures surface as UPSTREAM_UNAVAILABLE (or UNKNOWN_SYMBOL); stale entries are never served.
func (s *PriceService) GetPrice(ctx context.Context, symbol string) (*Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.NewError(domain.KindMissingParameter, "symbol is required")
	}

	now := s.Now()

	cached, err := s.CacheRepo.Get(ctx, symbol)
	if err != nil {
		// A broken cache read degrades to a provider fetch
		logs.Errorf("price cache read failed for %s, err: %+v", symbol, err)
	} else if cached != nil && cached.IsFresh(now, s.TTL) {
		return &Quote{
			Symbol:     cached.Symbol,
			Market:     cached.Market,
			Price:      cached.Price,
			Source:     cached.Source,
			ObservedAt: cached.ObservedAt,
			CachedAt:   cached.CachedAt,
			FromCache:  true,
		}, nil
	}

	pq, err := s.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	entry := &domain.CachedPrice{
		Symbol:     symbol,
		Market:     pq.Market,
		Price:      pq.Price,
		Source:     pq.Source,
		ObservedAt: pq.ObservedAt,
		CachedAt:   now,
	}
	if err := s.CacheRepo.Put(ctx, entry); err != nil {
		logs.Errorf("price cache write failed for %s, err: %+v", symbol, err)
	}

	return &Quote{
		Symbol:     entry.Symbol,
		Market:     entry.Market,
		Price:      entry.Price,
		Source:     entry.Source,
		ObservedAt: entry.ObservedAt,
		CachedAt:   entry.CachedAt,
	}, nil
}

func (s *PriceService) fetch(ctx context.Context, symbol string) (*domain.ProviderQuote, error) {
	market := domain.Classify(symbol)

	fetchCtx, cancel := context.WithTimeout(ctx, s.FetchTimeout)
	defer cancel()

	pq, err := s.Provider.Quote(fetchCtx, symbol, market)
	if err != nil {
		return nil, domain.UpstreamError(err, "failed to fetch price for %s", symbol)
	}
	if pq == nil || !pq.Price.IsPositive() {
		return nil, domain.NewError(domain.KindUnknownSymbol, "no price available for %s", symbol)
	}

	if pq.Market == "" {
		pq.Market = market
	}
	if pq.Source == "" {
		pq.Source = s.Provider.Name()
	}
	if pq.ObservedAt.IsZero() {
		pq.ObservedAt = s.Now()
	}
	return pq, nil
}

// MarketStatus reports whether the market of symbol (or the named market) is open now
func (s *PriceService) MarketStatus(symbol, market string) (domain.MarketType, bool, error) {
	var mt domain.MarketType
	switch {
	case domain.NormalizeSymbol(symbol) != "":
		mt = domain.Classify(symbol)
	case market != "":
		parsed, err := domain.ParseMarketType(market)
		if err != nil {
			return "", false, err
		}
		mt = parsed
	default:
		return "", false, domain.NewError(domain.KindMissingParameter, "either 'symbol' or 'market' parameter is required")
	}

	return mt, domain.IsMarketOpen(mt, s.Now()), nil
}
