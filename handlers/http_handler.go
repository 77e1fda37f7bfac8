// Package handlers provides the HTTP endpoints of the validator: upload a
// client list and download the validated report, plus a health check.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/pharmacy-validator/config"
	"github.com/giygas/pharmacy-validator/interfaces"
	"github.com/giygas/pharmacy-validator/logging"
	"github.com/giygas/pharmacy-validator/report"
	"github.com/giygas/pharmacy-validator/validation"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// uploadField is the multipart form field carrying the client list
const uploadField = "file"

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	validator interfaces.Validator
	cfg       *config.Config
	startedAt time.Time
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(validator interfaces.Validator, cfg *config.Config) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		validator: validator,
		cfg:       cfg,
		startedAt: time.Now(),
	}
}

// ValidateUpload reads the uploaded table, validates every row against the
// register and answers with the report as an attachment. The input is either
// a multipart form with a "file" field or the raw table as the request body,
// with its format given by ?format=csv|xlsx. The report format is chosen with
// ?output=csv|xlsx and defaults to CSV.
func (h *HTTPHandlerImpl) ValidateUpload(w http.ResponseWriter, r *http.Request) {
	output, err := report.ParseFormat(r.URL.Query().Get("output"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	input, format, err := h.readUpload(r)
	if err != nil {
		h.respondWithUploadError(w, err)
		return
	}

	records, err := report.ReadRecords(input, format, h.cfg.NameColumn)
	if err != nil {
		h.respondWithUploadError(w, err)
		return
	}

	results := h.validator.Validate(r.Context(), validation.Names(records))

	var buf bytes.Buffer
	if err := report.Write(&buf, output, results); err != nil {
		logging.Error("Failed to write report", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	fileName := report.DefaultFileName + "." + string(output)
	w.Header().Set("Content-Type", output.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.Warn("Failed to send report", "error", err)
	}
}

// readUpload returns the uploaded table and its format
func (h *HTTPHandlerImpl) readUpload(r *http.Request) (io.Reader, report.Format, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType != "multipart/form-data" {
		format, err := report.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			return nil, "", err
		}
		return r.Body, format, nil
	}

	if err := r.ParseMultipartForm(h.cfg.MaxRequestBody); err != nil {
		return nil, "", fmt.Errorf("failed to parse upload: %w", err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, "", &report.SchemaError{Reason: fmt.Sprintf("missing %q file in upload", uploadField), Err: err}
	}

	format, err := report.FormatFromPath(header.Filename)
	if q := r.URL.Query().Get("format"); q != "" {
		format, err = report.ParseFormat(q)
	}
	if err != nil {
		_ = file.Close()
		return nil, "", err
	}

	// the whole table is read before the run starts, so the file can be
	// released right away
	data, err := io.ReadAll(file)
	_ = file.Close()
	if err != nil {
		return nil, "", &report.SchemaError{Reason: "failed to read uploaded file", Err: err}
	}

	return bytes.NewReader(data), format, nil
}

func (h *HTTPHandlerImpl) respondWithUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.RespondWithError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Upload too large. Maximum allowed size is %d bytes", tooLarge.Limit))
	case report.IsSchemaError(err):
		logging.Info("Rejected upload", "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Warn("Failed to read upload", "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
	}
}

// HealthCheck reports liveness and the register the service talks to
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)

	h.RespondWithJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Environment:   h.cfg.Env.String(),
		RegisterURL:   h.cfg.RegisterURL,
		NameColumn:    h.cfg.NameColumn,
		FetchDelayMS:  h.cfg.FetchDelay.Milliseconds(),
	})
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Environment   string  `json:"environment"`
	RegisterURL   string  `json:"register_url"`
	NameColumn    string  `json:"name_column"`
	FetchDelayMS  int64   `json:"fetch_delay_ms"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// formatUptimeHuman formats a duration as "1d 2h 3m 4s", dropping leading
// zero units
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
