package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/trialbalance"
	"github.com/Veraticus/the-books-must-balance/internal/workbook"
	"github.com/shopspring/decimal"
)

// Output formats for /api/reshape.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type warningResponse struct {
	Kind    string `json:"kind"`
	Account string `json:"account"`
	Message string `json:"message"`
	Rows    []int  `json:"rows"`
}

type rowResponse struct {
	Account string            `json:"account"`
	Values  []decimal.Decimal `json:"values"`
}

type scheduleResponse struct {
	BoundaryAccount string            `json:"boundary_account"`
	Columns         []string          `json:"columns"`
	Periods         []string          `json:"periods"`
	Rows            []rowResponse     `json:"rows"`
	Warnings        []warningResponse `json:"warnings"`
	BoundaryIndex   int               `json:"boundary_index"`
}

type entryResponse struct {
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

type ledgerRowResponse struct {
	Account string          `json:"account"`
	Entries []entryResponse `json:"entries"`
}

type ledgerResponse struct {
	Columns []string            `json:"columns"`
	Periods []string            `json:"periods"`
	Rows    []ledgerRowResponse `json:"rows"`
}

type upload struct {
	raw      *model.RawTable
	filename string
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReshape(w http.ResponseWriter, r *http.Request) {
	logger := loggerFrom(r.Context())

	in, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	boundary := strings.TrimSpace(r.FormValue("boundary_account"))
	if boundary == "" {
		boundary = s.config.BoundaryAccount
	}

	format := strings.ToLower(strings.TrimSpace(r.FormValue("format")))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatXLSX && format != FormatCSV {
		s.writeError(w, r, badRequest(fmt.Errorf("unknown format %q", format)))
		return
	}

	result, err := trialbalance.Process(in.raw, boundary, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	logger.Info("reshaped upload",
		"file", in.filename,
		"periods", len(result.Schedule.Periods),
		"rows", len(result.Schedule.Rows),
		"warnings", len(result.Schedule.Warnings))

	sheet := workbook.ScheduleSheet(result.Schedule)
	base := strings.TrimSuffix(filepath.Base(in.filename), filepath.Ext(in.filename))

	switch format {
	case FormatXLSX:
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"-schedule.xlsx"))
		if err := workbook.WriteXLSX(w, sheet); err != nil {
			logger.Error("failed to write xlsx response", "error", err)
		}
	case FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"-schedule.csv"))
		if err := workbook.WriteCSV(w, sheet); err != nil {
			logger.Error("failed to write csv response", "error", err)
		}
	default:
		writeJSON(w, http.StatusOK, newScheduleResponse(result.Schedule))
	}
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	in, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ledger, err := trialbalance.Normalize(in.raw, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newLedgerResponse(ledger))
}

// readUpload parses the multipart "file" field into a raw table.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, &httpError{status: http.StatusRequestEntityTooLarge,
				err: fmt.Errorf("upload exceeds %d bytes", s.config.MaxUploadBytes)}
		}
		return nil, badRequest(fmt.Errorf("invalid multipart form: %w", err))
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, badRequest(fmt.Errorf("missing form field \"file\": %w", err))
	}
	defer func() { _ = file.Close() }()

	format, err := workbook.FormatOf(header.Filename)
	if err != nil {
		return nil, badRequest(err)
	}

	raw, err := workbook.Read(file, format, r.FormValue("sheet"))
	if err != nil {
		return nil, badRequest(fmt.Errorf("failed to read %s: %w", header.Filename, err))
	}

	return &upload{raw: raw, filename: header.Filename}, nil
}

func (s *Server) options(r *http.Request) (trialbalance.Options, error) {
	opts := s.config.Options

	if v := strings.TrimSpace(r.FormValue("sentinel")); v != "" {
		opts.Sentinel = v
	}
	if v := strings.TrimSpace(r.FormValue("metadata_rows")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, badRequest(fmt.Errorf("metadata_rows must be a non-negative integer, got %q", v))
		}
		opts.MetadataRows = n
	}

	return opts, nil
}

type httpError struct {
	err    error
	status int
}

func (e *httpError) Error() string { return e.err.Error() }
func (e *httpError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &httpError{status: http.StatusBadRequest, err: err}
}

// statusOf maps pipeline and request errors to HTTP status codes.
func statusOf(err error) int {
	var he *httpError
	if errors.As(err, &he) {
		return he.status
	}
	switch {
	case errors.Is(err, trialbalance.ErrMalformedHeader),
		errors.Is(err, trialbalance.ErrInvalidAmount),
		errors.Is(err, trialbalance.ErrBoundaryAccountNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	logger := loggerFrom(r.Context())

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		message = "internal error"
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}

	writeJSON(w, status, errorResponse{Error: message, Stage: trialbalance.StageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newScheduleResponse(s *model.Schedule) scheduleResponse {
	resp := scheduleResponse{
		BoundaryAccount: s.BoundaryAccount,
		BoundaryIndex:   s.BoundaryIndex,
		Columns:         s.Columns(),
		Periods:         model.PeriodLabels(s.Periods),
		Rows:            make([]rowResponse, len(s.Rows)),
		Warnings:        make([]warningResponse, len(s.Warnings)),
	}
	for i, row := range s.Rows {
		resp.Rows[i] = rowResponse{Account: row.Account, Values: row.Values}
	}
	for i, warning := range s.Warnings {
		resp.Warnings[i] = warningResponse{
			Kind:    string(warning.Kind),
			Account: warning.Account,
			Message: warning.Message,
			Rows:    warning.Rows,
		}
	}
	return resp
}

func newLedgerResponse(l *model.LedgerTable) ledgerResponse {
	resp := ledgerResponse{
		Columns: l.Columns(),
		Periods: model.PeriodLabels(l.Periods),
		Rows:    make([]ledgerRowResponse, len(l.Rows)),
	}
	for i, row := range l.Rows {
		entries := make([]entryResponse, len(row.Entries))
		for j, e := range row.Entries {
			entries[j] = entryResponse{Debit: e.Debit, Credit: e.Credit}
		}
		resp.Rows[i] = ledgerRowResponse{Account: row.Account, Entries: entries}
	}
	return resp
}
