package config

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/server"
	"github.com/Veraticus/the-books-must-balance/internal/trialbalance"
	"github.com/spf13/viper"
)

// Defaults for keys that are not set anywhere.
const (
	DefaultDatabasePath     = "~/.local/share/books/books.db"
	DefaultServerAddr       = ":8080"
	DefaultMaxUploadMB      = 10
	DefaultRevenueHeaderRow = 4
	DefaultRateLimit        = 10
	DefaultRateBurst        = 20
)

// SetDefaults registers the default value of every key read by this package.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("reshape.boundary_account", model.DefaultBoundary)
	v.SetDefault("reshape.sentinel", model.DefaultSentinel)
	v.SetDefault("reshape.metadata_rows", 0)
	v.SetDefault("reshape.sheet", "")
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.max_upload_mb", DefaultMaxUploadMB)
	v.SetDefault("server.rate_limit", DefaultRateLimit)
	v.SetDefault("server.rate_burst", DefaultRateBurst)
	v.SetDefault("timecard.revenue_header_row", DefaultRevenueHeaderRow)
	v.SetDefault("tui.theme", "default")
}

// Reshape holds the settings of one reshape run.
type Reshape struct {
	BoundaryAccount string
	Sheet           string
	Options         trialbalance.Options
}

// LoadReshapeOptions reads the reshape.* keys.
func LoadReshapeOptions() (*Reshape, error) {
	cfg := &Reshape{
		BoundaryAccount: strings.TrimSpace(viper.GetString("reshape.boundary_account")),
		Sheet:           viper.GetString("reshape.sheet"),
		Options: trialbalance.Options{
			Sentinel:     viper.GetString("reshape.sentinel"),
			MetadataRows: viper.GetInt("reshape.metadata_rows"),
		},
	}

	if cfg.BoundaryAccount == "" {
		cfg.BoundaryAccount = model.DefaultBoundary
	}
	if cfg.Options.Sentinel == "" {
		cfg.Options.Sentinel = model.DefaultSentinel
	}
	if cfg.Options.MetadataRows < 0 {
		return nil, fmt.Errorf("reshape.metadata_rows cannot be negative: %d", cfg.Options.MetadataRows)
	}

	return cfg, nil
}

// LoadServerConfig reads the server.* keys along with the reshape defaults the
// server falls back to when a request omits them.
func LoadServerConfig() (*server.Config, error) {
	reshape, err := LoadReshapeOptions()
	if err != nil {
		return nil, err
	}

	addr := viper.GetString("server.addr")
	if addr == "" {
		addr = DefaultServerAddr
	}

	maxMB := viper.GetInt64("server.max_upload_mb")
	if !viper.IsSet("server.max_upload_mb") {
		maxMB = DefaultMaxUploadMB
	}
	if maxMB <= 0 {
		return nil, fmt.Errorf("server.max_upload_mb must be positive: %d", maxMB)
	}

	rateLimit := viper.GetFloat64("server.rate_limit")
	if rateLimit < 0 {
		return nil, fmt.Errorf("server.rate_limit cannot be negative: %v", rateLimit)
	}

	return &server.Config{
		Addr:            addr,
		MaxUploadBytes:  maxMB << 20,
		RateLimit:       rateLimit,
		RateBurst:       viper.GetInt("server.rate_burst"),
		BoundaryAccount: reshape.BoundaryAccount,
		Options:         reshape.Options,
	}, nil
}

// DatabasePath returns the expanded path of the run history database.
func DatabasePath() string {
	path := viper.GetString("database.path")
	if path == "" {
		path = DefaultDatabasePath
	}
	if path == ":memory:" {
		return path
	}
	return ExpandPath(path)
}

// RevenueHeaderRow returns the zero-based header row of a P&L by customer export.
func RevenueHeaderRow() int {
	if !viper.IsSet("timecard.revenue_header_row") {
		return DefaultRevenueHeaderRow
	}
	return viper.GetInt("timecard.revenue_header_row")
}
