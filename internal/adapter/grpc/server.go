package grpc

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/papertrade-backend/internal/adapter/response"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/account"
	"github.com/simaogato/papertrade-backend/internal/usecase/history"
	"github.com/simaogato/papertrade-backend/internal/usecase/portfolio"
	"github.com/simaogato/papertrade-backend/internal/usecase/pricing"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
)

// Server implements the TradingService gRPC server
type Server struct {
	PriceService     *pricing.PriceService
	TradeService     *trading.TradeService
	AccountService   *account.AccountService
	PortfolioService *portfolio.PortfolioService
	HistoryService   *history.HistoryService
}

var _ TradingServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	priceService *pricing.PriceService,
	tradeService *trading.TradeService,
	accountService *account.AccountService,
	portfolioService *portfolio.PortfolioService,
	historyService *history.HistoryService,
) *Server {
	return &Server{
		PriceService:     priceService,
		TradeService:     tradeService,
		AccountService:   accountService,
		PortfolioService: portfolioService,
		HistoryService:   historyService,
	}
}

// GetPrice handles the GetPrice RPC
func (s *Server) GetPrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	quote, err := s.PriceService.GetPrice(ctx, stringField(req, "symbol"))
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(response.Price(quote))
}

// ExecuteTrade handles the ExecuteTrade RPC
func (s *Server) ExecuteTrade(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	acct, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	// Quantity may arrive as a string (exact) or a number
	quantity, err := decimalField(req, "quantity")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid quantity format: %v", err)
	}

	result, err := s.TradeService.Execute(ctx, trading.ExecuteInput{
		AccountID: acct.ID,
		Symbol:    stringField(req, "symbol"),
		Side:      stringField(req, "side"),
		Quantity:  quantity,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(response.Trade(result))
}

// GetBalance handles the GetBalance RPC
func (s *Server) GetBalance(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	acct, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := s.AccountService.GetBalance(ctx, acct.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(response.Balance(balance))
}

// GetHoldings handles the GetHoldings RPC
func (s *Server) GetHoldings(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	acct, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	valuation, err := s.PortfolioService.Value(ctx, acct.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(response.Holdings(valuation))
}

// GetHistory handles the GetHistory RPC
func (s *Server) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit, err := intField(req, "limit")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid limit format: %v", err)
	}
	start, err := timeField(req, "start_ts")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid start_ts format: %v", err)
	}
	end, err := timeField(req, "end_ts")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid end_ts format: %v", err)
	}

	result, err := s.HistoryService.GetHistory(ctx, history.Query{
		Symbol:     stringField(req, "symbol"),
		Resolution: stringField(req, "resolution"),
		Limit:      limit,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(response.History(result))
}

// GetMarketStatus handles the GetMarketStatus RPC
func (s *Server) GetMarketStatus(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	market, open, err := s.PriceService.MarketStatus(stringField(req, "symbol"), stringField(req, "market"))
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(response.MarketStatus(market, open))
}

// ListTrades handles the ListTrades RPC
func (s *Server) ListTrades(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	acct, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	limit, err := intField(req, "limit")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid limit format: %v", err)
	}
	offset, err := intField(req, "offset")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid offset format: %v", err)
	}

	page, err := s.TradeService.ListTrades(ctx, acct.ID, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(response.Trades(page))
}

func requireAccount(ctx context.Context) (*domain.Account, error) {
	acct, ok := AccountFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing account")
	}
	return acct, nil
}

func toStruct(doc response.Doc) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(doc)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func stringField(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); isNum {
		return strconv.FormatFloat(v.GetNumberValue(), 'f', -1, 64)
	}
	return strings.TrimSpace(v.GetStringValue())
}

func decimalField(req *structpb.Struct, name string) (decimal.Decimal, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return decimal.Zero, nil
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); isNum {
		return decimal.NewFromFloat(v.GetNumberValue()), nil
	}
	return decimal.NewFromString(strings.TrimSpace(v.GetStringValue()))
}

// intField returns 0 when the field is absent
func intField(req *structpb.Struct, name string) (int, error) {
	raw := stringField(req, name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// timeField reads unix seconds; nil when absent
func timeField(req *structpb.Struct, name string) (*time.Time, error) {
	raw := stringField(req, name)
	if raw == "" {
		return nil, nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	t := time.Unix(sec, 0).UTC()
	return &t, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	kind := domain.KindOf(err)
	msg := err.Error()

	switch {
	case kind.IsValidation():
		return status.Errorf(codes.InvalidArgument, "%s: %s", kind, msg)
	case kind == domain.KindInsufficientFunds || kind == domain.KindInsufficientHoldings:
		return status.Errorf(codes.FailedPrecondition, "%s: %s", kind, msg)
	case kind == domain.KindUpstreamUnavailable:
		return status.Errorf(codes.Unavailable, "%s: %s", kind, msg)
	case kind == domain.KindUnknownSymbol || kind == domain.KindNotFound:
		return status.Errorf(codes.NotFound, "%s: %s", kind, msg)
	case kind == domain.KindUnauthenticated:
		return status.Errorf(codes.Unauthenticated, "%s: %s", kind, msg)
	default:
		return status.Errorf(codes.Internal, "%s: internal error", domain.KindInternal)
	}
}
