package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

const (
	defaultDBDriver        = "postgres"
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBUser          = "postgres"
	defaultDBPassword      = "postgres"
	defaultDBName          = "papertrade"
	defaultDBSSLMode       = "disable"
	defaultMarketDriver    = "sqlite"
	defaultMarketDSN       = "papertrade-market.db"
	defaultProviderBaseURL = "https://www.alphavantage.co/query"
	defaultProviderTimeout = 30 * time.Second
	defaultPriceTTL        = 60 * time.Second
	defaultBalance         = "100000.00"
	defaultGRPCAddr        = ":8080"
	defaultHTTPAddr        = ":8000"
	defaultAppName         = "papertrade"
)

// FileConfig mirrors the YAML config layout.
// Amounts are strings so they are parsed as exact decimals.
type FileConfig struct {
	Database    DatabaseConfig    `yaml:"database"`
	MarketStore MarketStoreConfig `yaml:"market_store"`
	Provider    ProviderConfig    `yaml:"provider"`
	Trading     TradingFileConfig `yaml:"trading"`
	Server      ServerConfig      `yaml:"server"`
	Profiling   ProfilingConfig   `yaml:"profiling"`
	Seed        SeedConfig        `yaml:"seed"`
}

// DatabaseConfig locates the ledger database (PostgreSQL)
type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // postgres or memory
	ConnString string `yaml:"conn_string"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
}

// MarketStoreConfig locates the price cache and candle store
type MarketStoreConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite
	DSN    string `yaml:"dsn"`
}

// ProviderConfig configures the upstream market data provider
type ProviderConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// TradingFileConfig is the raw trading section
type TradingFileConfig struct {
	DefaultBalance string        `yaml:"default_balance"`
	PriceTTL       time.Duration `yaml:"price_ttl"`
	Fees           struct {
		Stock  string `yaml:"stock"`
		Crypto string `yaml:"crypto"`
		Forex  string `yaml:"forex"`
	} `yaml:"fees"`
}

// ServerConfig holds listen addresses
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
}

// ProfilingConfig enables continuous profiling when ServerAddress is set
type ProfilingConfig struct {
	ServerAddress   string `yaml:"server_address"`
	ApplicationName string `yaml:"application_name"`
}

// SeedConfig optionally provisions a demo account at startup
type SeedConfig struct {
	APIKey string `yaml:"api_key"`
}

// TradingConfig is the resolved trading section
type TradingConfig struct {
	DefaultBalance decimal.Decimal
	PriceTTL       time.Duration
	Fees           domain.FeeSchedule
}

// Config is the resolved configuration ready for use. It is not mutated after Load.
type Config struct {
	Database    DatabaseConfig
	MarketStore MarketStoreConfig
	Provider    ProviderConfig
	Trading     TradingConfig
	Server      ServerConfig
	Profiling   ProfilingConfig
	Seed        SeedConfig
}

// Load reads the optional YAML file at path, applies environment overrides and defaults
func Load(path string) (*Config, error) {
	var file FileConfig
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&file, os.Getenv)
	return Resolve(file)
}

// Resolve applies defaults to a raw config and parses its amounts
func Resolve(file FileConfig) (*Config, error) {
	db := file.Database
	db.Driver = orDefault(db.Driver, defaultDBDriver)
	if db.Driver != "postgres" && db.Driver != "memory" {
		return nil, fmt.Errorf("unsupported database driver %q", db.Driver)
	}
	db.Host = orDefault(db.Host, defaultDBHost)
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	db.User = orDefault(db.User, defaultDBUser)
	db.Password = orDefault(db.Password, defaultDBPassword)
	db.Name = orDefault(db.Name, defaultDBName)
	db.SSLMode = orDefault(db.SSLMode, defaultDBSSLMode)

	store := file.MarketStore
	store.Driver = orDefault(store.Driver, defaultMarketDriver)
	if store.Driver != "postgres" && store.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported market store driver %q", store.Driver)
	}
	if store.DSN == "" {
		if store.Driver == "postgres" {
			store.DSN = db.DSN()
		} else {
			store.DSN = defaultMarketDSN
		}
	}

	provider := file.Provider
	provider.BaseURL = orDefault(provider.BaseURL, defaultProviderBaseURL)
	if provider.Timeout <= 0 {
		provider.Timeout = defaultProviderTimeout
	}

	trading, err := resolveTrading(file.Trading)
	if err != nil {
		return nil, err
	}

	server := file.Server
	server.GRPCAddr = orDefault(server.GRPCAddr, defaultGRPCAddr)
	server.HTTPAddr = orDefault(server.HTTPAddr, defaultHTTPAddr)

	profiling := file.Profiling
	profiling.ApplicationName = orDefault(profiling.ApplicationName, defaultAppName)

	return &Config{
		Database:    db,
		MarketStore: store,
		Provider:    provider,
		Trading:     trading,
		Server:      server,
		Profiling:   profiling,
		Seed:        file.Seed,
	}, nil
}

func resolveTrading(raw TradingFileConfig) (TradingConfig, error) {
	balance, err := parseAmount("trading.default_balance", orDefault(raw.DefaultBalance, defaultBalance))
	if err != nil {
		return TradingConfig{}, err
	}
	stockFee, err := parseAmount("trading.fees.stock", orDefault(raw.Fees.Stock, "0"))
	if err != nil {
		return TradingConfig{}, err
	}
	cryptoFee, err := parseAmount("trading.fees.crypto", orDefault(raw.Fees.Crypto, "0"))
	if err != nil {
		return TradingConfig{}, err
	}
	forexFee, err := parseAmount("trading.fees.forex", orDefault(raw.Fees.Forex, "0"))
	if err != nil {
		return TradingConfig{}, err
	}

	ttl := raw.PriceTTL
	if ttl <= 0 {
		ttl = defaultPriceTTL
	}

	return TradingConfig{
		DefaultBalance: balance,
		PriceTTL:       ttl,
		Fees: domain.FeeSchedule{
			Stock:  stockFee,
			Crypto: cryptoFee,
			Forex:  forexFee,
		},
	}, nil
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s %q: must not be negative", field, value)
	}
	return amount, nil
}

// applyEnv overrides file values with environment variables when they are set
func applyEnv(file *FileConfig, getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&file.Database.Driver, "DB_DRIVER")
	setString(&file.Database.ConnString, "DB_CONN_STR")
	setString(&file.Database.Host, "DB_HOST")
	if v := getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			file.Database.Port = port
		}
	}
	setString(&file.Database.User, "DB_USER")
	setString(&file.Database.Password, "DB_PASSWORD")
	setString(&file.Database.Name, "DB_NAME")
	setString(&file.Database.SSLMode, "DB_SSLMODE")

	setString(&file.MarketStore.Driver, "MARKET_STORE_DRIVER")
	setString(&file.MarketStore.DSN, "MARKET_STORE_DSN")

	setString(&file.Provider.BaseURL, "ALPHA_VANTAGE_BASE_URL")
	setString(&file.Provider.APIKey, "ALPHA_VANTAGE_API_KEY")

	setString(&file.Trading.DefaultBalance, "DEFAULT_BALANCE")
	setString(&file.Trading.Fees.Stock, "STOCK_TRANSACTION_FEE")
	setString(&file.Trading.Fees.Crypto, "CRYPTO_TRANSACTION_FEE")
	setString(&file.Trading.Fees.Forex, "FOREX_TRANSACTION_FEE")

	setString(&file.Server.GRPCAddr, "GRPC_ADDR")
	setString(&file.Server.HTTPAddr, "HTTP_ADDR")
	setString(&file.Profiling.ServerAddress, "PYROSCOPE_ADDR")
	setString(&file.Seed.APIKey, "SEED_API_KEY")
}

// DSN builds the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	if c.ConnString != "" {
		return c.ConnString
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	u.RawQuery = query.Encode()

	return u.String()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
