package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/propanelib/propane/catalog"
	"github.com/propanelib/propane/compose"
	"github.com/propanelib/propane/emit"
	"github.com/propanelib/propane/validate"
)

// maxRequestBodySize limits POST body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// RegisterHTTPHandlers registers the service's HTTP handlers under the
// given prefix. Handlers are registered as:
//
//	POST <prefix>/resolve
//	GET  <prefix>/list
//	GET  /healthz
//	GET  /metrics
func (s *Service) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	prefix = strings.TrimSuffix(prefix, "/")

	mux.HandleFunc(prefix+"/resolve", s.handleResolve)
	mux.HandleFunc(prefix+"/list", s.handleList)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
}

// resolveRequest is the POST /resolve payload.
type resolveRequest struct {
	Category string            `json:"category"`
	Name     string            `json:"name"`
	Version  string            `json:"version,omitempty"`
	Bindings map[string]string `json:"bindings,omitempty"`
}

// resolveResponse is the successful resolution payload.
type resolveResponse struct {
	Identity string `json:"identity"`
	Body     string `json:"body"`
}

// errorResponse carries a resolution failure to the client.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// handleResolve resolves a fragment and returns the emitted body text.
func (s *Service) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.New().String()
	logger := s.logger.With("request_id", requestID)

	var req resolveRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error(), Kind: "bad_request"})
		return
	}
	if req.Category == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "category and name are required", Kind: "bad_request"})
		return
	}

	text, id, err := s.ResolveText(r.Context(), req.Category, req.Name, req.Version, req.Bindings)
	if err != nil {
		kind, status := classifyError(err)
		logger.Warn("Resolution failed",
			"category", req.Category,
			"name", req.Name,
			"kind", kind,
			"error", err)
		writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
		return
	}

	logger.Debug("Resolved fragment", "identity", id)

	// Echo the full identity so clients see which version a
	// version-less request selected.
	writeJSON(w, http.StatusOK, resolveResponse{Identity: id.String(), Body: text})
}

// listEntry describes one catalog fragment in the inventory response.
type listEntry struct {
	Category   string `json:"category"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Parents    int    `json:"parents"`
	Parameters int    `json:"parameters"`
	Attributes int    `json:"attributes"`
}

// handleList returns the catalog inventory, optionally filtered by the
// category query parameter.
func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	category := r.URL.Query().Get("category")
	entries := []listEntry{}
	for _, f := range s.snapshot.List(category) {
		entries = append(entries, listEntry{
			Category:   f.Identity.Category,
			Name:       f.Identity.Name,
			Version:    f.Identity.Version,
			Parents:    len(f.Parents),
			Parameters: len(f.Parameters),
			Attributes: len(f.Attributes),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(entries),
		"fragments": entries,
	})
}

// handleHealth reports liveness and the snapshot size.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"fragments": s.snapshot.Len(),
	})
}

// classifyError maps a resolution error to a stable kind string and an
// HTTP status.
func classifyError(err error) (string, int) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, catalog.ErrDuplicateFragment):
		return "duplicate_fragment", http.StatusConflict
	case errors.Is(err, validate.ErrMissingParameter):
		return "missing_parameter", http.StatusUnprocessableEntity
	case errors.Is(err, validate.ErrTypeMismatch):
		return "type_mismatch", http.StatusUnprocessableEntity
	case errors.Is(err, validate.ErrConstraintViolation):
		return "constraint_violation", http.StatusUnprocessableEntity
	case errors.Is(err, validate.ErrUnknownParameter):
		return "unknown_parameter", http.StatusUnprocessableEntity
	case errors.Is(err, compose.ErrCyclicDependency):
		return "cyclic_dependency", http.StatusConflict
	case errors.Is(err, compose.ErrUnresolvedReference):
		return "unresolved_reference", http.StatusUnprocessableEntity
	case errors.Is(err, emit.ErrUnsupportedValueType):
		return "unsupported_value_type", http.StatusUnprocessableEntity
	default:
		return "internal", http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response is already partially written; nothing useful to do.
		_ = err
	}
}
