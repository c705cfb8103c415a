// Package common provides shared utilities for Folio
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Store backend names.
const (
	BackendNotion    = "notion"
	BackendSurrealDB = "surrealdb"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Config holds all configuration for Folio
type Config struct {
	Environment  string          `toml:"environment"`
	BaseCurrency string          `toml:"base_currency"` // Currency all valuations and balances are expressed in (default "USD")
	Server       ServerConfig    `toml:"server"`
	Store        StoreConfig     `toml:"store"`
	Databases    DatabasesConfig `toml:"databases"`
	Fields       FieldsConfig    `toml:"fields"`
	Clients      ClientsConfig   `toml:"clients"`
	FX           FXConfig        `toml:"fx"`
	Valuation    ValuationConfig `toml:"valuation"`
	Snapshot     SnapshotConfig  `toml:"snapshot"`
	Ledger       LedgerConfig    `toml:"ledger"`
	Auth         AuthConfig      `toml:"auth"`
	Logging      LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	ReadTimeout  string `toml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout"` // covers a full asset log recompute over the Notion API
}

// GetReadTimeout parses and returns the request read timeout
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return parseDuration(c.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout parses and returns the response write timeout
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	return parseDuration(c.WriteTimeout, 5*time.Minute)
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend   string          `toml:"backend"` // "notion" (default), "surrealdb", "postgres" or "memory"
	Notion    NotionConfig    `toml:"notion"`
	SurrealDB SurrealDBConfig `toml:"surrealdb"`
	Postgres  PostgresConfig  `toml:"postgres"`
}

// PostgresConfig holds the PostgreSQL connection URL.
type PostgresConfig struct {
	URL string `toml:"url"`
}

// NotionConfig holds Notion API configuration
type NotionConfig struct {
	Token     string `toml:"token"`
	BaseURL   string `toml:"base_url"`
	Version   string `toml:"version"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *NotionConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// SurrealDBConfig holds SurrealDB connection configuration
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// DatabasesConfig holds the store identifiers of each logical database.
type DatabasesConfig struct {
	Holdings     string `toml:"holdings"`
	Snapshots    string `toml:"snapshots"`
	Transactions string `toml:"transactions"`
	AssetLog     string `toml:"asset_log"`
}

// FieldsConfig maps logical fields to store field names, per database.
type FieldsConfig struct {
	Holdings     HoldingFields     `toml:"holdings"`
	Snapshots    SnapshotFields    `toml:"snapshots"`
	Transactions TransactionFields `toml:"transactions"`
	AssetLog     AssetLogFields    `toml:"asset_log"`
}

// HoldingFields names the holdings database fields.
type HoldingFields struct {
	Name        string `toml:"name"`
	Category    string `toml:"category"`
	Symbol      string `toml:"symbol"`
	Quantity    string `toml:"quantity"`
	PriceSource string `toml:"price_source"`
	ManualPrice string `toml:"manual_price"`
	Currency    string `toml:"currency"`
	PriceID     string `toml:"price_id"`
}

// SnapshotFields names the snapshots database fields.
type SnapshotFields struct {
	Date           string `toml:"date"`
	Total          string `toml:"total"`
	ChangeAbsolute string `toml:"change_absolute"`
	ChangePercent  string `toml:"change_percent"`
}

// TransactionFields names the transactions database fields.
type TransactionFields struct {
	Title           string `toml:"title"`
	Date            string `toml:"date"`
	Amount          string `toml:"amount"`
	AmountConfirmed string `toml:"amount_confirmed"`
	Verified        string `toml:"verified"`
	DueDate         string `toml:"due_date"`
	TransactionType string `toml:"transaction_type"`
	PaymentMethod   string `toml:"payment_method"`
	AssetType       string `toml:"asset_type"`
	ExternalID      string `toml:"external_id"`
}

// AssetLogFields names the asset log (ledger) database fields.
type AssetLogFields struct {
	Date    string `toml:"date"`
	Group   string `toml:"group"`
	Delta   string `toml:"delta"`
	Balance string `toml:"balance"`
}

// ClientsConfig holds price and FX provider configurations
type ClientsConfig struct {
	Yahoo     ClientConfig `toml:"yahoo"`
	CoinGecko ClientConfig `toml:"coingecko"`
	FX        ClientConfig `toml:"fx"`
}

// ClientConfig holds common HTTP client settings for an external provider.
type ClientConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ClientConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// FXConfig holds currency conversion settings.
type FXConfig struct {
	CacheTTL string `toml:"cache_ttl"`
	RatePath string `toml:"rate_path"` // JSONPath to the rate in the provider response; {TO} is the target currency
}

// GetCacheTTL parses and returns the FX cache TTL
func (c *FXConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 30*time.Minute)
}

// FX error policies for the valuation engine.
const (
	FXErrorAbort = "abort"
	FXErrorSkip  = "skip"
)

// ValuationConfig holds valuation engine settings.
type ValuationConfig struct {
	OnFXError string `toml:"on_fx_error"` // "abort" (default) or "skip"
}

// SnapshotConfig holds snapshot recorder settings.
type SnapshotConfig struct {
	ReplaceSameDay bool   `toml:"replace_same_day"`
	Interval       string `toml:"interval"` // in-process recording interval, e.g. "24h"; empty disables
}

// GetInterval returns the scheduler interval, or zero when disabled.
func (c *SnapshotConfig) GetInterval() time.Duration {
	return parseDuration(c.Interval, 0)
}

// LedgerConfig holds asset log recompute settings.
type LedgerConfig struct {
	AggregateBy       string `toml:"aggregate_by"` // "asset_type" (default), "payment_method" or "total"
	FocusWindowDays   int    `toml:"focus_window_days"`
	DefaultWindowDays int    `toml:"default_window_days"`
	SyncWindowDays    int    `toml:"sync_window_days"`
}

// AuthConfig holds the shared secrets guarding write endpoints.
// An empty secret disables the corresponding check.
type AuthConfig struct {
	WriteSecret        string `toml:"write_secret"`
	CronSecret         string `toml:"cron_secret"`
	WebhookSecret      string `toml:"webhook_secret"`
	AcceptSignedTokens bool   `toml:"accept_signed_tokens"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "development",
		BaseCurrency: "USD",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Store: StoreConfig{
			Backend: BackendNotion,
			Notion: NotionConfig{
				BaseURL:   "https://api.notion.com/v1",
				Version:   "2022-06-28",
				RateLimit: 3,
				Timeout:   "30s",
			},
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Namespace: "folio",
				Database:  "folio",
				Username:  "root",
				Password:  "root",
			},
		},
		Fields: FieldsConfig{
			Holdings: HoldingFields{
				Name:        "Name",
				Category:    "Category",
				Symbol:      "Symbol",
				Quantity:    "Quantity",
				PriceSource: "Price Source",
				ManualPrice: "Manual Price",
				Currency:    "Currency",
				PriceID:     "Price ID",
			},
			Snapshots: SnapshotFields{
				Date:           "Date",
				Total:          "Total USD",
				ChangeAbsolute: "Change USD",
				ChangePercent:  "Change %",
			},
			Transactions: TransactionFields{
				Title:           "Name",
				Date:            "Date",
				Amount:          "Amount",
				AmountConfirmed: "Amount Confirmed",
				Verified:        "Verified",
				DueDate:         "Due Date",
				TransactionType: "Transaction Type",
				PaymentMethod:   "Payment Method",
				AssetType:       "Asset Type",
				ExternalID:      "External ID",
			},
			AssetLog: AssetLogFields{
				Date:    "Date",
				Group:   "Asset Type",
				Delta:   "Number",
				Balance: "Balance",
			},
		},
		Clients: ClientsConfig{
			Yahoo: ClientConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "10s",
			},
			CoinGecko: ClientConfig{
				BaseURL:   "https://api.coingecko.com",
				RateLimit: 5,
				Timeout:   "10s",
			},
			FX: ClientConfig{
				BaseURL:   "https://api.exchangerate.host",
				RateLimit: 5,
				Timeout:   "10s",
			},
		},
		FX: FXConfig{
			CacheTTL: "30m",
			RatePath: "$.rates.{TO}",
		},
		Valuation: ValuationConfig{
			OnFXError: FXErrorAbort,
		},
		Ledger: LedgerConfig{
			AggregateBy:       "asset_type",
			FocusWindowDays:   30,
			DefaultWindowDays: 180,
			SyncWindowDays:    90,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	config.BaseCurrency = NormalizeCurrency(config.BaseCurrency, "USD")

	return config, nil
}

// stringOverrides lists the environment variables that override string settings.
// Variable names follow the deployment conventions of the hosted functions.
func stringOverrides(config *Config) map[string]*string {
	return map[string]*string{
		"FOLIO_ENV":                 &config.Environment,
		"FOLIO_HOST":                &config.Server.Host,
		"FOLIO_LOG_LEVEL":           &config.Logging.Level,
		"FOLIO_LOG_FORMAT":          &config.Logging.Format,
		"FOLIO_STORE_BACKEND":       &config.Store.Backend,
		"BASE_CURRENCY":             &config.BaseCurrency,
		"NOTION_TOKEN":              &config.Store.Notion.Token,
		"NOTION_HOLDINGS_DB_ID":     &config.Databases.Holdings,
		"NOTION_SNAPSHOTS_DB_ID":    &config.Databases.Snapshots,
		"NOTION_TRANSACTIONS_DB_ID": &config.Databases.Transactions,
		"NOTION_ASSET_LOG_DB_ID":    &config.Databases.AssetLog,
		"SURREALDB_ADDRESS":         &config.Store.SurrealDB.Address,
		"SURREALDB_USERNAME":        &config.Store.SurrealDB.Username,
		"SURREALDB_PASSWORD":        &config.Store.SurrealDB.Password,
		"DATABASE_URL":              &config.Store.Postgres.URL,
		"FX_RATE_PATH":              &config.FX.RatePath,
		"SNAPSHOT_INTERVAL":         &config.Snapshot.Interval,
		"AGGREGATE_BY":              &config.Ledger.AggregateBy,
		"VALUATION_ON_FX_ERROR":     &config.Valuation.OnFXError,
		"WRITE_SECRET":              &config.Auth.WriteSecret,
		"CRON_SECRET":               &config.Auth.CronSecret,
		"WEBHOOK_SECRET":            &config.Auth.WebhookSecret,

		"PROP_NAME":         &config.Fields.Holdings.Name,
		"PROP_CATEGORY":     &config.Fields.Holdings.Category,
		"PROP_SYMBOL":       &config.Fields.Holdings.Symbol,
		"PROP_QUANTITY":     &config.Fields.Holdings.Quantity,
		"PROP_PRICE_SOURCE": &config.Fields.Holdings.PriceSource,
		"PROP_MANUAL_PRICE": &config.Fields.Holdings.ManualPrice,
		"PROP_CURRENCY":     &config.Fields.Holdings.Currency,
		"PROP_PRICE_ID":     &config.Fields.Holdings.PriceID,

		"SNAPSHOT_PROP_DATE":       &config.Fields.Snapshots.Date,
		"SNAPSHOT_PROP_TOTAL_USD":  &config.Fields.Snapshots.Total,
		"SNAPSHOT_PROP_CHANGE_USD": &config.Fields.Snapshots.ChangeAbsolute,
		"SNAPSHOT_PROP_CHANGE_PCT": &config.Fields.Snapshots.ChangePercent,

		"TR_PROP_TITLE":            &config.Fields.Transactions.Title,
		"TR_PROP_DATE":             &config.Fields.Transactions.Date,
		"TR_PROP_AMOUNT":           &config.Fields.Transactions.Amount,
		"TR_PROP_AMOUNT_CONFIRMED": &config.Fields.Transactions.AmountConfirmed,
		"TR_PROP_VERIFIED":         &config.Fields.Transactions.Verified,
		"TR_PROP_DUE_DATE":         &config.Fields.Transactions.DueDate,
		"TR_PROP_TRANSACTION_TYPE": &config.Fields.Transactions.TransactionType,
		"TR_PROP_PAYMENT_METHOD":   &config.Fields.Transactions.PaymentMethod,
		"TR_PROP_ASSET_TYPE":       &config.Fields.Transactions.AssetType,
		"TR_PROP_EXTERNAL_ID":      &config.Fields.Transactions.ExternalID,

		"ALOG_PROP_DATE":       &config.Fields.AssetLog.Date,
		"ALOG_PROP_ASSET_TYPE": &config.Fields.AssetLog.Group,
		"ALOG_PROP_NUMBER":     &config.Fields.AssetLog.Delta,
		"ALOG_PROP_BALANCE":    &config.Fields.AssetLog.Balance,
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	for name, target := range stringOverrides(config) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*target = v
		}
	}

	if port := os.Getenv("FOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	} else if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if v := os.Getenv("SNAPSHOT_REPLACE_SAME_DAY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Snapshot.ReplaceSameDay = b
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// requireStore returns the missing store credentials for the selected backend.
func (c *Config) requireStore() []string {
	var missing []string
	switch c.Store.Backend {
	case "", BackendNotion:
		if c.Store.Notion.Token == "" {
			missing = append(missing, "NOTION_TOKEN")
		}
	case BackendPostgres:
		if c.Store.Postgres.URL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	}
	return missing
}

func (c *Config) missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing required settings: %s", ErrConfiguration, strings.Join(missing, ", "))
}

// ValidateValuation checks the settings needed by the valuation path.
func (c *Config) ValidateValuation() error {
	missing := c.requireStore()
	if c.Databases.Holdings == "" {
		missing = append(missing, "NOTION_HOLDINGS_DB_ID")
	}
	if c.Databases.Snapshots == "" {
		missing = append(missing, "NOTION_SNAPSHOTS_DB_ID")
	}
	return c.missingError(missing)
}

// ValidateSnapshots checks the settings needed to read snapshots.
func (c *Config) ValidateSnapshots() error {
	missing := c.requireStore()
	if c.Databases.Snapshots == "" {
		missing = append(missing, "NOTION_SNAPSHOTS_DB_ID")
	}
	return c.missingError(missing)
}

// ValidateTransactions checks the settings needed to read and write transactions.
func (c *Config) ValidateTransactions() error {
	missing := c.requireStore()
	if c.Databases.Transactions == "" {
		missing = append(missing, "NOTION_TRANSACTIONS_DB_ID")
	}
	return c.missingError(missing)
}

// ValidateLedger checks the settings needed by the asset log recompute.
func (c *Config) ValidateLedger() error {
	missing := c.requireStore()
	if c.Databases.Transactions == "" {
		missing = append(missing, "NOTION_TRANSACTIONS_DB_ID")
	}
	if c.Databases.AssetLog == "" {
		missing = append(missing, "NOTION_ASSET_LOG_DB_ID")
	}
	return c.missingError(missing)
}

// ValidateAssetLog checks the settings needed to read the asset log.
func (c *Config) ValidateAssetLog() error {
	missing := c.requireStore()
	if c.Databases.AssetLog == "" {
		missing = append(missing, "NOTION_ASSET_LOG_DB_ID")
	}
	return c.missingError(missing)
}
