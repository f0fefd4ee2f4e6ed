package history

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

const (
	DefaultLimit        = 500
	MaxLimit            = 5000
	DefaultFetchTimeout = 30 * time.Second

	SourceCache    = "cache"
	SourceProvider = "provider"
)

// Query selects candles of one symbol. Start is inclusive, End exclusive.
type Query struct {
	Symbol     string
	Resolution string
	Limit      int
	Start      *time.Time
	End        *time.Time
}

// Result is a chronological candle series
type Result struct {
	Symbol              string
	Market              domain.MarketType
	Resolution          domain.Resolution
	RequestedResolution string
	Candles             []domain.Candle
	Source              string
	UpdatedAt           time.Time
}

// HistoryService serves candles from the store and backfills from the provider
type HistoryService struct {
	Provider     domain.MarketDataProvider
	CandleRepo   domain.CandleRepository
	FetchTimeout time.Duration
	Now          func() time.Time
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(provider domain.MarketDataProvider, candleRepo domain.CandleRepository, fetchTimeout time.Duration) *HistoryService {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &HistoryService{
		Provider:     provider,
		CandleRepo:   candleRepo,
		FetchTimeout: fetchTimeout,
		Now:          time.Now,
	}
}

// GetHistory returns up to Limit candles, oldest first
// Logic:
//  1. Read the store; if it already holds Limit candles in range, serve them
//  2. Otherwise fetch from the provider, keep the newest Limit candles in range,
//     store the ones not stored yet and serve the fetched batch
func (s *HistoryService) GetHistory(ctx context.Context, q Query) (*Result, error) {
	symbol := domain.NormalizeSymbol(q.Symbol)
	if symbol == "" {
		return nil, domain.NewError(domain.KindMissingParameter, "symbol is required")
	}

	resolution, err := domain.NormalizeResolution(q.Resolution)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, domain.NewError(domain.KindInvalidParameter, "limit must be between 1 and %d, got %d", MaxLimit, q.Limit)
	}

	if q.Start != nil && q.End != nil && !q.Start.Before(*q.End) {
		return nil, domain.NewError(domain.KindInvalidParameter, "start must be before end")
	}

	market := domain.Classify(symbol)
	result := &Result{
		Symbol:              symbol,
		Market:              market,
		Resolution:          resolution,
		RequestedResolution: q.Resolution,
	}

	stored, err := s.CandleRepo.Latest(ctx, domain.CandleQuery{
		Symbol:     symbol,
		Resolution: resolution,
		Start:      q.Start,
		End:        q.End,
		Limit:      limit,
	})
	if err != nil {
		logs.Errorf("candle store read failed for %s/%s, err: %+v", symbol, resolution, err)
	} else if len(stored) >= limit {
		result.Candles = chronological(stored[:limit])
		result.Source = SourceCache
		result.UpdatedAt = s.Now()
		return result, nil
	}

	fetched, err := s.fetch(ctx, domain.HistoryRequest{
		Symbol:     symbol,
		Market:     market,
		Resolution: resolution,
		Limit:      limit,
		Start:      q.Start,
		End:        q.End,
	})
	if err != nil {
		return nil, err
	}

	batch := selectBatch(fetched, q.Start, q.End, limit)
	for i := range batch {
		batch[i].Symbol = symbol
		batch[i].Market = market
		batch[i].Resolution = resolution
		if batch[i].Source == "" {
			batch[i].Source = s.Provider.Name()
		}
	}

	if len(batch) > 0 {
		inserted, err := s.CandleRepo.InsertIfAbsent(ctx, batch)
		if err != nil {
			logs.Errorf("candle backfill failed for %s/%s, err: %+v", symbol, resolution, err)
		} else {
			logs.Infof("backfilled %d/%d candles for %s/%s", inserted, len(batch), symbol, resolution)
		}
	}

	result.Candles = batch
	result.Source = SourceProvider
	result.UpdatedAt = s.Now()
	return result, nil
}

func (s *HistoryService) fetch(ctx context.Context, req domain.HistoryRequest) ([]domain.Candle, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.FetchTimeout)
	defer cancel()

	candles, err := s.Provider.History(fetchCtx, req)
	if err != nil {
		return nil, domain.UpstreamError(err, "failed to fetch %s history for %s", req.Resolution, req.Symbol)
	}
	return candles, nil
}

// selectBatch keeps candles inside [start, end), orders them and keeps the newest limit
func selectBatch(candles []domain.Candle, start, end *time.Time, limit int) []domain.Candle {
	inRange := make([]domain.Candle, 0, len(candles))
	for _, c := range candles {
		if start != nil && c.Timestamp.Before(*start) {
			continue
		}
		if end != nil && !c.Timestamp.Before(*end) {
			continue
		}
		inRange = append(inRange, c)
	}

	sorted := domain.SortCandles(inRange)
	if len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted
}

// chronological reverses a newest-first slice into a new oldest-first slice
func chronological(newestFirst []domain.Candle) []domain.Candle {
	out := make([]domain.Candle, len(newestFirst))
	for i, c := range newestFirst {
		out[len(newestFirst)-1-i] = c
	}
	return out
}
