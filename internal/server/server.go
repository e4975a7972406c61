package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/kiesman99/arcprint/internal/api"
	"github.com/kiesman99/arcprint/internal/loader"
	"github.com/kiesman99/arcprint/internal/logging"
	"github.com/kiesman99/arcprint/internal/printer"
	"github.com/kiesman99/arcprint/internal/reader"
)

// maxDPI bounds the page size a single request may ask for.
const maxDPI = 600

// Server implements the ServerInterface from the generated API
type Server struct {
	startTime time.Time
	version   string
	printer   *printer.Printer
}

// NewServer creates a new server instance
func NewServer(version string, p *printer.Printer) *Server {
	return &Server{
		startTime: time.Now(),
		version:   version,
		printer:   p,
	}
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	s.writeJSON(w, http.StatusOK, response)
}

// CreatePrint prints the requested page and returns it as PNG.
func (s *Server) CreatePrint(w http.ResponseWriter, r *http.Request, params api.CreatePrintParams) {
	requestID := xid.New().String()

	job, ok := s.decodeJob(w, r, requestID)
	if !ok {
		return
	}

	result, err := s.printer.Print(r.Context(), job)
	if err != nil {
		s.handlePrintError(w, err, requestID)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Map-Requests", strconv.Itoa(result.Requests))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Image)))
	if params.Download != nil && *params.Download {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="map-%s.png"`, requestID))
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Image); err != nil {
		logging.Error("writing response", "request_id", requestID, "err", err)
	}
}

// ListPrintUrls returns the map server requests a print would make.
func (s *Server) ListPrintUrls(w http.ResponseWriter, r *http.Request) {
	requestID := xid.New().String()

	job, ok := s.decodeJob(w, r, requestID)
	if !ok {
		return
	}

	urls, err := s.printer.URLs(job)
	if err != nil {
		s.writeValidationErrorResponse(w, err.Error(), requestID)
		return
	}

	w.Header().Set("X-Request-ID", requestID)
	s.writeJSON(w, http.StatusOK, api.UrlsResponse{Urls: urls, RequestId: &requestID})
}

// decodeJob parses and validates the request body. It writes the error
// response itself and reports whether the caller should go on.
func (s *Server) decodeJob(w http.ResponseWriter, r *http.Request, requestID string) (*printer.Job, bool) {
	var req api.PrintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.INVALIDJSON,
			"Invalid JSON in request body", requestID, nil)
		return nil, false
	}

	if err := s.validatePrintRequest(&req); err != nil {
		s.writeValidationErrorResponse(w, err.Error(), requestID)
		return nil, false
	}

	job := convertToJob(&req)
	if _, err := job.Page(); err != nil {
		s.writeValidationErrorResponse(w, err.Error(), requestID)
		return nil, false
	}
	if _, err := job.Readers(); err != nil {
		s.writeValidationErrorResponse(w, err.Error(), requestID)
		return nil, false
	}
	return job, true
}

// validatePrintRequest validates the page geometry of a print request
func (s *Server) validatePrintRequest(req *api.PrintRequest) error {
	if len(req.Bbox) != 4 {
		return fmt.Errorf("bbox must have 4 values: minX, minY, maxX, maxY")
	}
	if req.Bbox[0] >= req.Bbox[2] || req.Bbox[1] >= req.Bbox[3] {
		return fmt.Errorf("bbox min must be less than max")
	}
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}
	if req.Dpi != nil && (*req.Dpi <= 0 || *req.Dpi > maxDPI) {
		return fmt.Errorf("dpi must be between 1 and %d", maxDPI)
	}
	if len(req.Layers) == 0 {
		return fmt.Errorf("at least one layer is required")
	}
	return nil
}

// convertToJob converts API request to a print job
func convertToJob(req *api.PrintRequest) *printer.Job {
	job := &printer.Job{
		Width:  req.Width,
		Height: req.Height,
		BBox:   req.Bbox,
		DPI:    printer.DefaultDPI,
		SRS:    printer.DefaultSRS,
	}
	if req.Dpi != nil {
		job.DPI = *req.Dpi
	}
	if req.Srs != nil && *req.Srs != "" {
		job.SRS = *req.Srs
	}
	if req.Rotation != nil {
		job.Rotation = *req.Rotation
	}
	if req.Geodetic != nil {
		job.Geodetic = *req.Geodetic
	}

	for _, l := range req.Layers {
		cfg := reader.LayerConfig{
			Type:    l.Type,
			BaseURL: l.BaseUrl,
			Format:  l.Format,
			Layers:  l.Layers,
			Opacity: l.Opacity,
		}
		if l.CustomParams != nil {
			cfg.CustomParams = *l.CustomParams
		}
		job.Layers = append(job.Layers, cfg)
	}
	return job
}

// handlePrintError handles errors from the printing process
func (s *Server) handlePrintError(w http.ResponseWriter, err error, requestID string) {
	logging.Error("print failed", "request_id", requestID, "err", err)

	var fetchErr *loader.FetchError
	if errors.As(err, &fetchErr) {
		details := map[string]interface{}{"url": fetchErr.URL}
		if fetchErr.StatusCode != 0 {
			details["status_code"] = fetchErr.StatusCode
		}
		s.writeErrorResponse(w, http.StatusBadGateway, api.MAPSERVERERROR,
			fetchErr.Message, requestID, details)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		s.writeErrorResponse(w, http.StatusGatewayTimeout, api.MAPSERVERTIMEOUT,
			"Map server requests timed out", requestID, nil)
		return
	}

	s.writeErrorResponse(w, http.StatusInternalServerError, api.INTERNALERROR,
		"Internal server error", requestID, nil)
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: &requestID,
	}

	if details != nil {
		response.Details = &details
	}

	s.writeJSON(w, statusCode, response)
}

// writeValidationErrorResponse writes a validation error response
func (s *Server) writeValidationErrorResponse(w http.ResponseWriter, message string, requestID string) {
	response := api.ValidationErrorResponse{
		Error:     api.VALIDATIONERROR,
		Message:   message,
		RequestId: &requestID,
		ValidationErrors: []api.ValidationError{
			{
				Field:   "request",
				Message: message,
			},
		},
	}

	s.writeJSON(w, http.StatusBadRequest, response)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("encoding response", "err", err)
	}
}
