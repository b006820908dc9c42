// Package http serves the assistant chat API over HTTP.
//
// The adapter exposes the buffered and streaming chat endpoints, a health
// probe, a rolling statistics endpoint, and the Prometheus metrics handler.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dp287517/electrohub-assistant/pkg/api"
	"github.com/dp287517/electrohub-assistant/pkg/engine"
	"github.com/dp287517/electrohub-assistant/pkg/observability"
)

// ChatService is the engine surface the adapter dispatches to.
type ChatService interface {
	Respond(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
	RespondStream(ctx context.Context, req *api.ChatRequest, w engine.EventWriter) error
}

// Adapter serves the chat API over HTTP.
// It routes requests to the engine and serializes responses.
type Adapter struct {
	service   ChatService
	collector *observability.Collector
	mux       *http.ServeMux
	config    Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr        string
	MaxBodySize int64
	MetricsPath string // empty disables the metrics endpoint
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		MaxBodySize: 1 << 20, // 1 MB
		MetricsPath: "/metrics",
	}
}

// NewAdapter creates an HTTP adapter serving the given chat service.
// The collector backs the /v1/stats endpoint.
func NewAdapter(service ChatService, collector *observability.Collector, cfg Config) *Adapter {
	a := &Adapter{
		service:   service,
		collector: collector,
		mux:       http.NewServeMux(),
		config:    cfg,
	}

	a.mux.HandleFunc("POST /v1/chat", a.handleChat)
	a.mux.HandleFunc("POST /v1/chat/stream", a.handleChatStream)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)
	a.mux.HandleFunc("GET /v1/stats", a.handleStats)
	if cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// handleChat handles POST /v1/chat (buffered mode).
func (a *Adapter) handleChat(w http.ResponseWriter, r *http.Request) {
	req, apiErr := a.decodeChatRequest(w, r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	resp, err := a.service.Respond(r.Context(), req)
	if err != nil {
		var ae *api.APIError
		if !errors.As(err, &ae) {
			ae = api.NewServerError(err.Error())
		}
		writeAPIError(w, ae)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleChatStream handles POST /v1/chat/stream (SSE mode).
func (a *Adapter) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, apiErr := a.decodeChatRequest(w, r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	sw := newSSEEventWriter(w)
	if err := a.service.RespondStream(r.Context(), req, sw); err != nil {
		// The engine reports failures as error events once streaming has
		// started; a returned error here means nothing was written yet.
		if !sw.hasStartedStreaming() {
			var ae *api.APIError
			if !errors.As(err, &ae) {
				ae = api.NewServerError(err.Error())
			}
			writeAPIError(w, ae)
		}
	}
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleStats handles GET /v1/stats.
func (a *Adapter) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.collector.Snapshot())
}

// decodeChatRequest validates headers, bounds the body, and decodes the
// chat request. Returns an APIError for the caller to write on failure.
func (a *Adapter) decodeChatRequest(w http.ResponseWriter, r *http.Request) (*api.ChatRequest, *api.APIError) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		return nil, api.NewValidationError("content_type", "Content-Type must be application/json")
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, api.NewValidationError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize))
		}
		return nil, api.NewValidationError("body", "invalid JSON: "+err.Error())
	}

	return &req, nil
}

// writeAPIError writes a JSON error response with the status code implied
// by the error type.
func writeAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	status := http.StatusInternalServerError
	switch apiErr.Type {
	case api.ErrorTypeValidation:
		status = http.StatusBadRequest
	case api.ErrorTypeProvider:
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}
