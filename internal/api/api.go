// Package api holds the HTTP API types and routing of the print service.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Defines values for HealthResponseStatus.
const (
	Healthy HealthResponseStatus = "healthy"
)

// Error codes returned in ErrorResponse.Error.
const (
	INVALIDJSON      = "INVALID_JSON"
	VALIDATIONERROR  = "VALIDATION_ERROR"
	MAPSERVERERROR   = "MAP_SERVER_ERROR"
	MAPSERVERTIMEOUT = "MAP_SERVER_TIMEOUT"
	INTERNALERROR    = "INTERNAL_ERROR"
)

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Uptime    *int                 `json:"uptime,omitempty"`
	Version   *string              `json:"version,omitempty"`
}

// Layer defines model for Layer.
type Layer struct {
	Type         string             `json:"type"`
	BaseUrl      string             `json:"baseURL"`
	Format       string             `json:"format"`
	Layers       []string           `json:"layers"`
	Opacity      *float64           `json:"opacity,omitempty"`
	CustomParams *map[string]string `json:"customParams,omitempty"`
}

// PrintRequest defines model for PrintRequest.
type PrintRequest struct {
	Srs      *string   `json:"srs,omitempty"`
	Dpi      *int      `json:"dpi,omitempty"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Rotation *float64  `json:"rotation,omitempty"`
	Bbox     []float64 `json:"bbox"`
	Geodetic *bool     `json:"geodetic,omitempty"`
	Layers   []Layer   `json:"layers"`
}

// UrlsResponse defines model for UrlsResponse.
type UrlsResponse struct {
	Urls      []string `json:"urls"`
	RequestId *string  `json:"request_id,omitempty"`
}

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
	Details   *map[string]interface{} `json:"details,omitempty"`
}

// ValidationError defines model for one entry of ValidationErrorResponse.
type ValidationError struct {
	Code    *string `json:"code,omitempty"`
	Field   string  `json:"field"`
	Message string  `json:"message"`
}

// ValidationErrorResponse defines model for ValidationErrorResponse.
type ValidationErrorResponse struct {
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	RequestId        *string           `json:"request_id,omitempty"`
	ValidationErrors []ValidationError `json:"validation_errors"`
}

// CreatePrintParams defines parameters for CreatePrint.
type CreatePrintParams struct {
	// Download sets Content-Disposition so browsers save the page.
	Download *bool `form:"download,omitempty" json:"download,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Service health
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// Print a map page
	// (POST /print)
	CreatePrint(w http.ResponseWriter, r *http.Request, params CreatePrintParams)
	// List the map server requests of a page without fetching them
	// (POST /print/urls)
	ListPrintUrls(w http.ResponseWriter, r *http.Request)
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}

	r.Get(options.BaseURL+"/health", si.GetHealth)
	r.Post(options.BaseURL+"/print", func(w http.ResponseWriter, r *http.Request) {
		var params CreatePrintParams

		err := runtime.BindQueryParameter("form", true, false, "download", r.URL.Query(), &params.Download)
		if err != nil {
			options.ErrorHandlerFunc(w, r, fmt.Errorf("invalid format for parameter download: %w", err))
			return
		}

		si.CreatePrint(w, r, params)
	})
	r.Post(options.BaseURL+"/print/urls", si.ListPrintUrls)

	return r
}
