package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/sheets/v4"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		config  Config
		wantErr bool
	}{
		{
			name: "valid oauth config",
			config: Config{
				ClientID:      "test-client",
				ClientSecret:  "test-secret",
				RefreshToken:  "test-token",
				SheetTitle:    "Schedule",
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
		},
		{
			name: "valid service account config",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				SheetTitle:         "Schedule",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         time.Second,
			},
		},
		{
			name: "partial oauth credentials",
			config: Config{
				ClientID:     "test-client",
				RefreshToken: "test-token",
				SheetTitle:   "Schedule",
				BatchSize:    100,
			},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "multiple auth methods",
			config: Config{
				ClientID:           "test-client",
				ClientSecret:       "test-secret",
				RefreshToken:       "test-token",
				ServiceAccountPath: "/path/to/key.json",
				SheetTitle:         "Schedule",
				BatchSize:          100,
			},
			wantErr: true,
			errMsg:  "multiple authentication methods",
		},
		{
			name: "missing sheet title",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
			wantErr: true,
			errMsg:  "sheet title cannot be empty",
		},
		{
			name: "zero batch size",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				SheetTitle:         "Schedule",
			},
			wantErr: true,
			errMsg:  "batch size must be positive",
		},
		{
			name: "zero retry delay is valid",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				SheetTitle:         "Schedule",
				BatchSize:          100,
			},
		},
		{
			name: "negative retry delay",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				SheetTitle:         "Schedule",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         -1 * time.Second,
			},
			wantErr: true,
			errMsg:  "retry delay cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.EnableFormatting)
	assert.Equal(t, "Schedule", cfg.SheetTitle)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func testSchedule() *model.Schedule {
	return &model.Schedule{
		BoundaryAccount: "Retained Earnings",
		BoundaryIndex:   1,
		Periods:         []model.Period{{Label: "Jan 2024", Index: 0}, {Label: "Feb 2024", Index: 1}},
		Rows: []model.ScheduleRow{
			{Account: "Cash", Values: []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(150)}},
			{Account: "Retained Earnings", Values: []decimal.Decimal{decimal.NewFromInt(-500), decimal.NewFromInt(-500)}},
			{Account: "Revenue", Values: []decimal.Decimal{decimal.NewFromInt(-1000), decimal.RequireFromString("-200.5")}},
		},
	}
}

func TestPrepareScheduleValues(t *testing.T) {
	values := PrepareScheduleValues(testSchedule())

	require.Len(t, values, 4)
	assert.Equal(t, []any{"Account", "Jan 2024", "Feb 2024"}, values[0])
	assert.Equal(t, []any{"Cash", 100.0, 150.0}, values[1])
	assert.Equal(t, []any{"Revenue", -1000.0, -200.5}, values[3])
}

func TestPrepareScheduleValues_NoRows(t *testing.T) {
	schedule := testSchedule()
	schedule.Rows = nil

	values := PrepareScheduleValues(schedule)
	require.Len(t, values, 1)
	assert.Len(t, values[0], 3)
}

func TestFormattingRequests(t *testing.T) {
	requests := formattingRequests(42, 4, 3)
	require.Len(t, requests, 4)

	header := requests[0].RepeatCell
	require.NotNil(t, header)
	assert.Equal(t, int64(42), header.Range.SheetId)
	assert.Equal(t, int64(1), header.Range.EndRowIndex)
	assert.True(t, header.Cell.UserEnteredFormat.TextFormat.Bold)

	currency := requests[1].RepeatCell
	require.NotNil(t, currency)
	assert.Equal(t, int64(1), currency.Range.StartRowIndex)
	assert.Equal(t, int64(4), currency.Range.EndRowIndex)
	assert.Equal(t, int64(1), currency.Range.StartColumnIndex)
	assert.Equal(t, int64(3), currency.Range.EndColumnIndex)
	assert.Equal(t, "CURRENCY", currency.Cell.UserEnteredFormat.NumberFormat.Type)

	require.NotNil(t, requests[2].AutoResizeDimensions)
	assert.Equal(t, int64(3), requests[2].AutoResizeDimensions.Dimensions.EndIndex)

	frozen := requests[3].UpdateSheetProperties
	require.NotNil(t, frozen)
	assert.Equal(t, int64(1), frozen.Properties.GridProperties.FrozenRowCount)
}

func TestFindSheetID(t *testing.T) {
	spreadsheet := &sheets.Spreadsheet{
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: "Other", SheetId: 1}},
			{Properties: &sheets.SheetProperties{Title: "Schedule", SheetId: 7}},
		},
	}

	id, ok := findSheetID(spreadsheet, "Schedule")
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok = findSheetID(spreadsheet, "Missing")
	assert.False(t, ok)

	_, ok = findSheetID(nil, "Schedule")
	assert.False(t, ok)
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'Schedule'", quoteSheet("Schedule"))
	assert.Equal(t, "'Bob''s TB'", quoteSheet("Bob's TB"))
}

func TestWriter_RejectsEmptySchedule(t *testing.T) {
	w := &Writer{config: DefaultConfig()}
	assert.ErrorIs(t, w.Write(context.Background(), nil), ErrEmptySchedule)
	assert.ErrorIs(t, w.Write(context.Background(), &model.Schedule{}), ErrEmptySchedule)
}

func TestNewWriter_InvalidConfig(t *testing.T) {
	_, err := NewWriter(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestMockWriter(t *testing.T) {
	mock := NewMockWriter()
	var writer ScheduleWriter = mock

	schedule := testSchedule()
	require.NoError(t, writer.Write(context.Background(), schedule))
	assert.Equal(t, 1, mock.WriteCallCount)
	assert.Same(t, schedule, mock.LastSchedule)

	boom := errors.New("boom")
	mock.SetWriteError(boom)
	assert.ErrorIs(t, writer.Write(context.Background(), schedule), boom)

	calls := mock.GetWriteCalls()
	require.Len(t, calls, 2)
	assert.NoError(t, calls[0].Error)
	assert.ErrorIs(t, calls[1].Error, boom)
}

func TestCallbackHandler(t *testing.T) {
	codes := make(chan string, 1)
	errs := make(chan error, 1)
	handler := callbackHandler("expected", codes, errs)

	t.Run("state mismatch", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, codes)
	})

	t.Run("missing code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/callback?state=expected", nil))
		assert.Contains(t, rec.Body.String(), "Authentication Failed")
		require.Len(t, errs, 1)
		<-errs
	})

	t.Run("success", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/callback?state=expected&code=abc", nil))
		assert.Contains(t, rec.Body.String(), "Authentication Successful")
		assert.Equal(t, "abc", <-codes)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens", "sheets.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}

	require.NoError(t, saveToken(path, token))

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)

	// A valid token is returned untouched.
	refreshed, err := RefreshTokenIfNeeded(context.Background(), OAuth2Config{TokenFile: path}, loaded)
	require.NoError(t, err)
	assert.Equal(t, "access", refreshed.AccessToken)
}

func TestOAuth2Config_RedirectURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8085/callback", OAuth2Config{}.oauth().RedirectURL)
	assert.Equal(t, "http://localhost:9000/callback", OAuth2Config{RedirectPort: 9000}.oauth().RedirectURL)
}
