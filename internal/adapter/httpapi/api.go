// Package httpapi serves the trading API over HTTP with gin
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simaogato/papertrade-backend/internal/usecase/account"
	"github.com/simaogato/papertrade-backend/internal/usecase/history"
	"github.com/simaogato/papertrade-backend/internal/usecase/portfolio"
	"github.com/simaogato/papertrade-backend/internal/usecase/pricing"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
)

const (
	DefaultTimeout      = 60 * time.Second
	ServiceName         = "papertrade"
	ServiceVersion      = "1.0.0"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
	APIKeyHeaderKey     = "X-API-Key"
	accountContextKey   = "account"
)

// APIHandler handles HTTP requests
type APIHandler struct {
	PriceService     *pricing.PriceService
	TradeService     *trading.TradeService
	AccountService   *account.AccountService
	PortfolioService *portfolio.PortfolioService
	HistoryService   *history.HistoryService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(
	priceService *pricing.PriceService,
	tradeService *trading.TradeService,
	accountService *account.AccountService,
	portfolioService *portfolio.PortfolioService,
	historyService *history.HistoryService,
) *APIHandler {
	return &APIHandler{
		PriceService:     priceService,
		TradeService:     tradeService,
		AccountService:   accountService,
		PortfolioService: portfolioService,
		HistoryService:   historyService,
	}
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", h.HealthCheck)
	router.POST("/register", h.Register)

	authed := router.Group("/", h.authMiddleware())
	authed.GET("/price", h.GetPrice)
	authed.POST("/trade", h.ExecuteTrade)
	authed.GET("/balance", h.GetBalance)
	authed.GET("/holdings", h.GetHoldings)
	authed.GET("/history", h.GetHistory)
	authed.GET("/market_status", h.GetMarketStatus)
	authed.GET("/trades", h.ListTrades)

	return router
}
