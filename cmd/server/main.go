package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/papertrade-backend/internal/adapter/alphavantage"
	grpcadapter "github.com/simaogato/papertrade-backend/internal/adapter/grpc"
	"github.com/simaogato/papertrade-backend/internal/adapter/httpapi"
	"github.com/simaogato/papertrade-backend/internal/adapter/marketstore"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/memory"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/papertrade-backend/internal/config"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/account"
	"github.com/simaogato/papertrade-backend/internal/usecase/history"
	"github.com/simaogato/papertrade-backend/internal/usecase/portfolio"
	"github.com/simaogato/papertrade-backend/internal/usecase/pricing"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logs.Errorf("server exited, err: %+v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if cfg.Profiling.ServerAddress != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: cfg.Profiling.ApplicationName,
			ServerAddress:   cfg.Profiling.ServerAddress,
			Tags: map[string]string{
				"service": httpapi.ServiceName,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return errors.Wrap(err, "start profiler")
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	// 2. Ledger (accounts, holdings, trades)
	ledger, err := openLedger(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer ledger.close()

	// 3. Price cache and candle store
	market, err := marketstore.Open(cfg.MarketStore.Driver, cfg.MarketStore.DSN)
	if err != nil {
		return errors.Wrap(err, "open market store")
	}
	defer func() {
		_ = market.Close()
	}()

	// 4. Services
	provider := alphavantage.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout)
	if cfg.Provider.APIKey == "" {
		logs.Errorf("no provider api key configured, price and history requests will be rejected upstream")
	}

	priceService := pricing.NewPriceService(provider, market.Prices(), cfg.Trading.PriceTTL, cfg.Provider.Timeout)
	tradeService := trading.NewTradeService(priceService, ledger.ledger, ledger.trades, cfg.Trading.Fees)
	accountService := account.NewAccountService(ledger.accounts, ledger.ledger, cfg.Trading.DefaultBalance)
	portfolioService := portfolio.NewPortfolioService(priceService, ledger.accounts, ledger.holdings, ledger.trades, cfg.Trading.DefaultBalance)
	historyService := history.NewHistoryService(provider, market.Candles(), cfg.Provider.Timeout)

	if cfg.Seed.APIKey != "" {
		seeded, err := accountService.Seed(ctx, cfg.Seed.APIKey)
		if err != nil {
			return errors.Wrap(err, "seed account")
		}
		logs.Infof("seed account %s ready", seeded.ID)
	}

	// 5. gRPC server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(accountService)),
	)
	grpcadapter.RegisterTradingServiceServer(grpcServer,
		grpcadapter.NewServer(priceService, tradeService, accountService, portfolioService, historyService))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", cfg.Server.GRPCAddr)
	}

	// 6. HTTP server
	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewAPIHandler(priceService, tradeService, accountService, portfolioService, historyService)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 2)
	go func() {
		logs.Infof("gRPC server listening on %s", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			serveErr <- errors.Wrap(err, "serve gRPC")
		}
	}()
	go func() {
		logs.Infof("HTTP server listening on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- errors.Wrap(err, "serve HTTP")
		}
	}()

	// 7. Graceful shutdown
	select {
	case <-ctx.Done():
		logs.Infof("shutdown signal received, shutting down gracefully")
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logs.Errorf("HTTP shutdown failed, err: %+v", shutdownErr)
	}
	grpcServer.GracefulStop()
	logs.Infof("servers stopped")

	return err
}

type ledgerStores struct {
	accounts domain.AccountRepository
	holdings domain.HoldingRepository
	trades   domain.TradeRepository
	ledger   domain.Ledger
	close    func()
}

// openLedger connects the configured ledger backend
func openLedger(ctx context.Context, cfg config.DatabaseConfig) (*ledgerStores, error) {
	if cfg.Driver == "memory" {
		logs.Infof("using in-memory ledger, balances are lost on restart")
		store := memory.NewStore()
		return &ledgerStores{
			accounts: store,
			holdings: store,
			trades:   store.Trades(),
			ledger:   store,
			close:    func() {},
		}, nil
	}

	db, err := postgres.NewDB(cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate database")
	}

	return &ledgerStores{
		accounts: postgres.NewAccountRepository(db),
		holdings: postgres.NewHoldingRepository(db),
		trades:   postgres.NewTradeRepository(db),
		ledger:   postgres.NewLedger(db),
		close: func() {
			_ = db.Close()
		},
	}, nil
}
