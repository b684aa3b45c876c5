package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("BOOKS_TEST_DIR", "/srv/books")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/books.db", want: filepath.Join(home, "books.db")},
		{name: "env var", in: "$BOOKS_TEST_DIR/books.db", want: "/srv/books/books.db"},
		{name: "absolute", in: "/tmp/books.db", want: "/tmp/books.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestLoadReshapeOptions_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := LoadReshapeOptions()
	require.NoError(t, err)
	assert.Equal(t, "Retained Earnings", cfg.BoundaryAccount)
	assert.Equal(t, "TOTAL", cfg.Options.Sentinel)
	assert.Zero(t, cfg.Options.MetadataRows)
	assert.Empty(t, cfg.Sheet)
}

func TestLoadReshapeOptions_FromViper(t *testing.T) {
	resetViper(t)
	viper.Set("reshape.boundary_account", "  Opening Balance Equity ")
	viper.Set("reshape.sentinel", "Grand Total")
	viper.Set("reshape.metadata_rows", 3)
	viper.Set("reshape.sheet", "TB")

	cfg, err := LoadReshapeOptions()
	require.NoError(t, err)
	assert.Equal(t, "Opening Balance Equity", cfg.BoundaryAccount)
	assert.Equal(t, "Grand Total", cfg.Options.Sentinel)
	assert.Equal(t, 3, cfg.Options.MetadataRows)
	assert.Equal(t, "TB", cfg.Sheet)
}

func TestLoadReshapeOptions_NegativeMetadataRows(t *testing.T) {
	resetViper(t)
	viper.Set("reshape.metadata_rows", -1)

	_, err := LoadReshapeOptions()
	assert.Error(t, err)
}

func TestLoadServerConfig(t *testing.T) {
	resetViper(t)
	SetDefaults(viper.GetViper())

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "Retained Earnings", cfg.BoundaryAccount)
	assert.InDelta(t, 10.0, cfg.RateLimit, 0.0001)
	assert.Equal(t, 20, cfg.RateBurst)

	viper.Set("server.addr", "127.0.0.1:9000")
	viper.Set("server.max_upload_mb", 2)
	cfg, err = LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes)

	viper.Set("server.max_upload_mb", 0)
	_, err = LoadServerConfig()
	assert.Error(t, err)

	viper.Set("server.max_upload_mb", 1)
	viper.Set("server.rate_limit", -1)
	_, err = LoadServerConfig()
	assert.ErrorContains(t, err, "rate_limit")
}

func TestDatabasePath(t *testing.T) {
	resetViper(t)
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".local/share/books/books.db"), DatabasePath())

	viper.Set("database.path", ":memory:")
	assert.Equal(t, ":memory:", DatabasePath())

	viper.Set("database.path", "/var/lib/books.db")
	assert.Equal(t, "/var/lib/books.db", DatabasePath())
}

func TestRevenueHeaderRow(t *testing.T) {
	resetViper(t)
	assert.Equal(t, 4, RevenueHeaderRow())

	viper.Set("timecard.revenue_header_row", 6)
	assert.Equal(t, 6, RevenueHeaderRow())
}

func TestLoadSheetsConfig(t *testing.T) {
	resetViper(t)
	for _, key := range []string{
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN", "GOOGLE_SHEETS_SPREADSHEET_ID", "GOOGLE_SHEETS_SPREADSHEET_NAME",
	} {
		t.Setenv(key, "")
	}

	t.Run("no credentials", func(t *testing.T) {
		_, err := LoadSheetsConfig()
		assert.Error(t, err)
	})

	t.Run("viper service account", func(t *testing.T) {
		viper.Set("sheets.service_account_path", "/keys/sa.json")
		viper.Set("sheets.sheet_title", "TB Schedule")
		defer viper.Reset()

		cfg, err := LoadSheetsConfig()
		require.NoError(t, err)
		assert.Equal(t, "/keys/sa.json", cfg.ServiceAccountPath)
		assert.Equal(t, "TB Schedule", cfg.SheetTitle)
		assert.Equal(t, "Trial Balance Schedule", cfg.SpreadsheetName)
	})

	t.Run("environment oauth", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "id")
		t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "secret")
		t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "refresh")
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_NAME", "Close Books")

		cfg, err := LoadSheetsConfig()
		require.NoError(t, err)
		assert.Equal(t, "id", cfg.ClientID)
		assert.Equal(t, "Close Books", cfg.SpreadsheetName)
	})
}

func TestSheetsTokenFile(t *testing.T) {
	resetViper(t)
	viper.Set("sheets.token_file", "/tmp/token.json")
	assert.Equal(t, "/tmp/token.json", SheetsTokenFile())
}
