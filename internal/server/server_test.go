package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/testutil"
	"github.com/Veraticus/the-books-must-balance/internal/trialbalance"
	"github.com/Veraticus/the-books-must-balance/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func multipartRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReshape_JSON(t *testing.T) {
	h := newTestHandler(t, Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/api/reshape", "tb.csv", testutil.TrialBalanceCSV,
		map[string]string{"boundary_account": "Retained Earnings"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[struct {
		BoundaryAccount string   `json:"boundary_account"`
		Columns         []string `json:"columns"`
		Rows            []struct {
			Account string   `json:"account"`
			Values  []string `json:"values"`
		} `json:"rows"`
		BoundaryIndex int `json:"boundary_index"`
	}](t, rec)

	assert.Equal(t, "Retained Earnings", resp.BoundaryAccount)
	assert.Equal(t, 1, resp.BoundaryIndex)
	assert.Equal(t, []string{"Account", "Jan 2024", "Feb 2024"}, resp.Columns)
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, []string{"100", "150"}, resp.Rows[0].Values)
	assert.Equal(t, []string{"-500", "-500"}, resp.Rows[1].Values)
	assert.Equal(t, []string{"-1000", "-200"}, resp.Rows[2].Values)
}

func TestReshape_DefaultBoundaryFromConfig(t *testing.T) {
	h := newTestHandler(t, Config{BoundaryAccount: "Cash"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/api/reshape", "tb.csv", testutil.TrialBalanceCSV, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[struct {
		BoundaryIndex int `json:"boundary_index"`
	}](t, rec)
	assert.Equal(t, 0, resp.BoundaryIndex)
}

func TestReshape_CSVAndXLSX(t *testing.T) {
	h := newTestHandler(t, Config{})

	t.Run("csv", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, multipartRequest(t, "/api/reshape", "tb.csv", testutil.TrialBalanceCSV, map[string]string{"format": "csv"}))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "tb-schedule.csv")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "Account,Jan 2024,Feb 2024\n"))
		assert.Contains(t, rec.Body.String(), "Revenue,-1000,-200\n")
	})

	t.Run("xlsx", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, multipartRequest(t, "/api/reshape", "tb.csv", testutil.TrialBalanceCSV, map[string]string{"format": "XLSX"}))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

		raw, err := workbook.ReadXLSX(bytes.NewReader(rec.Body.Bytes()), "Schedule")
		require.NoError(t, err)
		require.Len(t, raw.Rows, 4)
		assert.Equal(t, "Revenue", raw.Cell(3, 0))
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, multipartRequest(t, "/api/reshape", "tb.csv", testutil.TrialBalanceCSV, map[string]string{"format": "pdf"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReshape_Errors(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		content   string
		fields    map[string]string
		wantStage string
		wantError string
		want      int
	}{
		{
			name:      "boundary not found",
			filename:  "tb.csv",
			content:   testutil.TrialBalanceCSV,
			fields:    map[string]string{"boundary_account": "Goodwill"},
			want:      http.StatusBadRequest,
			wantStage: trialbalance.StageReshape,
			wantError: "Goodwill",
		},
		{
			name:      "malformed header",
			filename:  "tb.csv",
			content:   "Trial Balance\nAccount,Amount\nCash,100\n",
			want:      http.StatusBadRequest,
			wantStage: trialbalance.StageNormalize,
			wantError: "malformed header",
		},
		{
			name:      "invalid amount",
			filename:  "tb.csv",
			content:   ",Jan 2024,\n,Debit,Credit\nCash,abc,\n",
			want:      http.StatusBadRequest,
			wantStage: trialbalance.StageNormalize,
			wantError: "invalid amount",
		},
		{
			name:      "missing file",
			want:      http.StatusBadRequest,
			wantError: "file",
		},
		{
			name:      "unsupported extension",
			filename:  "tb.pdf",
			content:   "whatever",
			want:      http.StatusBadRequest,
			wantError: "unsupported",
		},
		{
			name:      "bad metadata rows",
			filename:  "tb.csv",
			content:   testutil.TrialBalanceCSV,
			fields:    map[string]string{"metadata_rows": "-2"},
			want:      http.StatusBadRequest,
			wantError: "metadata_rows",
		},
	}

	h := newTestHandler(t, Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, multipartRequest(t, "/api/reshape", tt.filename, tt.content, tt.fields))

			assert.Equal(t, tt.want, rec.Code)
			resp := decodeBody[errorResponse](t, rec)
			assert.Equal(t, tt.wantStage, resp.Stage)
			assert.Contains(t, strings.ToLower(resp.Error), strings.ToLower(tt.wantError))
		})
	}
}

func TestReshape_TooLarge(t *testing.T) {
	h := newTestHandler(t, Config{MaxUploadBytes: 64})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/api/reshape", "tb.csv", testutil.TrialBalanceCSV+strings.Repeat("x", 1024), nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Error, "exceeds")
}

func TestReshape_MetadataRowsOverride(t *testing.T) {
	h := newTestHandler(t, Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/api/reshape", "tb.csv", testutil.TrialBalanceCSV, map[string]string{"metadata_rows": "1"}))

	// The field row is not where a one-line preamble puts it.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, trialbalance.StageNormalize, decodeBody[errorResponse](t, rec).Stage)
}

func TestNormalize(t *testing.T) {
	h := newTestHandler(t, Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/api/normalize", "tb.csv", testutil.TrialBalanceCSV, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[struct {
		Columns []string `json:"columns"`
		Periods []string `json:"periods"`
		Rows    []struct {
			Account string `json:"account"`
			Entries []struct {
				Debit  string `json:"debit"`
				Credit string `json:"credit"`
			} `json:"entries"`
		} `json:"rows"`
	}](t, rec)

	assert.Equal(t, []string{"Account", "Jan 2024 Debit", "Jan 2024 Credit", "Feb 2024 Debit", "Feb 2024 Credit"}, resp.Columns)
	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, resp.Periods)
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, "Revenue", resp.Rows[2].Account)
	assert.Equal(t, "1200", resp.Rows[2].Entries[1].Credit)
	assert.Equal(t, "0", resp.Rows[2].Entries[1].Debit)
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(t, Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reshape", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestHandler(t, Config{RateLimit: 0.001, RateBurst: 1})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/api/normalize", "tb.csv", testutil.TrialBalanceCSV, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "/api/normalize", "tb.csv", testutil.TrialBalanceCSV, nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decodeBody[errorResponse](t, rec).Error)

	// Health checks are not limited.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(&trialbalance.StageError{Stage: trialbalance.StageReshape, Err: trialbalance.ErrBoundaryAccountNotFound}))
	assert.Equal(t, http.StatusInternalServerError, statusOf(io.ErrUnexpectedEOF))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusOf(&httpError{status: http.StatusRequestEntityTooLarge, err: io.EOF}))
}
