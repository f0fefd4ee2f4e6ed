package httpapi

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/simaogato/papertrade-backend/internal/adapter/response"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/history"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
)

type registerRequest struct {
	Balance *decimal.Decimal `json:"balance"`
}

// Quantity accepts a JSON number or a string
type tradeRequest struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
}

// HealthCheck handles GET /health requests
func (h *APIHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   ServiceVersion,
	})
}

// Register handles POST /register requests. The body is optional.
func (h *APIHandler) Register(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	var req registerRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			h.handleError(c, domain.WrapError(domain.KindInvalidParameter, err, "invalid request body"))
			return
		}
	}

	account, err := h.AccountService.Create(ctx, req.Balance)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Account(account))
}

// GetPrice handles GET /price requests
func (h *APIHandler) GetPrice(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	quote, err := h.PriceService.GetPrice(ctx, c.Query("symbol"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Price(quote))
}

// ExecuteTrade handles POST /trade requests
func (h *APIHandler) ExecuteTrade(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, domain.WrapError(domain.KindInvalidParameter, err, "invalid request body"))
		return
	}

	result, err := h.TradeService.Execute(ctx, trading.ExecuteInput{
		AccountID: currentAccount(c).ID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Trade(result))
}

// GetBalance handles GET /balance requests
func (h *APIHandler) GetBalance(c *gin.Context) {
	balance, err := h.AccountService.GetBalance(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Balance(balance))
}

// GetHoldings handles GET /holdings requests
func (h *APIHandler) GetHoldings(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	valuation, err := h.PortfolioService.Value(ctx, currentAccount(c).ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Holdings(valuation))
}

// GetHistory handles GET /history requests
func (h *APIHandler) GetHistory(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	limit, err := queryInt(c, "limit")
	if err != nil {
		h.handleError(c, err)
		return
	}
	start, err := queryTime(c, "start_ts")
	if err != nil {
		h.handleError(c, err)
		return
	}
	end, err := queryTime(c, "end_ts")
	if err != nil {
		h.handleError(c, err)
		return
	}

	result, err := h.HistoryService.GetHistory(ctx, history.Query{
		Symbol:     c.Query("symbol"),
		Resolution: c.Query("resolution"),
		Limit:      limit,
		Start:      start,
		End:        end,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.History(result))
}

// GetMarketStatus handles GET /market_status requests
func (h *APIHandler) GetMarketStatus(c *gin.Context) {
	market, open, err := h.PriceService.MarketStatus(c.Query("symbol"), c.Query("market"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.MarketStatus(market, open))
}

// ListTrades handles GET /trades requests
func (h *APIHandler) ListTrades(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.handleError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		h.handleError(c, err)
		return
	}

	page, err := h.TradeService.ListTrades(c.Request.Context(), currentAccount(c).ID, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Trades(page))
}

// handleError logs the error and sends the status matching its kind
func (h *APIHandler) handleError(c *gin.Context, err error) {
	statusCode := statusFor(domain.KindOf(err))
	requestID := c.GetString(RequestIDContextKey)

	if statusCode >= http.StatusInternalServerError {
		logs.Errorf("[%s] %s %s failed, err: %+v", requestID, c.Request.Method, c.Request.URL.Path, err)
	}

	body := response.Error(err)
	body["request_id"] = requestID
	c.JSON(statusCode, body)
}

func statusFor(kind domain.ErrorKind) int {
	switch {
	case kind.IsValidation():
		return http.StatusBadRequest
	case kind == domain.KindInsufficientFunds || kind == domain.KindInsufficientHoldings:
		return http.StatusBadRequest
	case kind == domain.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case kind == domain.KindUnknownSymbol || kind == domain.KindNotFound:
		return http.StatusNotFound
	case kind == domain.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// queryInt returns 0 when the parameter is absent
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewError(domain.KindInvalidParameter, "%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// queryTime reads unix seconds; nil when absent
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidParameter, "%s must be unix seconds, got %q", name, raw)
	}
	t := time.Unix(sec, 0).UTC()
	return &t, nil
}
