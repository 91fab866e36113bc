// Package server exposes the budget allocation engine over HTTP. Clients
// upload a YAML configuration and receive the optimized allocation as JSON.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mixmodel/spend-allocator/internal/config"
	"github.com/mixmodel/spend-allocator/pkg/adapters"
	"github.com/mixmodel/spend-allocator/pkg/allocator"
	"github.com/mixmodel/spend-allocator/pkg/constants"
	"github.com/mixmodel/spend-allocator/pkg/output"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the allocation API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion}

	mux := http.NewServeMux()

	// Allocation API endpoint (raw YAML body or multipart upload)
	mux.HandleFunc("/api/allocate", h.handleAllocate)

	// Version endpoint for client metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	return mux
}

type allocateResponse struct {
	Channels      []string             `json:"channels"`
	Allocation    map[string]float64   `json:"allocation"`
	TotalResponse float64              `json:"totalResponse"`
	Contributions map[string]float64   `json:"contributions,omitempty"`
	Advisories    []allocator.Advisory `json:"advisories,omitempty"`
	Warnings      []string             `json:"warnings,omitempty"`
	Iterations    int                  `json:"iterations"`
	CSV           string               `json:"csv"`
	Duration      string               `json:"duration"`
}

func (h *handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	configBytes, ok := h.readConfigUpload(w, r)
	if !ok {
		return
	}

	h.runAllocation(w, configBytes, start, "server.handleAllocate")
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// readConfigUpload extracts the YAML configuration from either a multipart
// form upload or the raw request body.
func (h *handler) readConfigUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				h.respondError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize))
				return nil, false
			}
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err))
			return nil, false
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "missing configuration file")
			return nil, false
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				h.logger.Warn("failed to close uploaded file",
					zap.String("op", "server.handleAllocate"),
					zap.Error(closeErr),
				)
			}
		}()

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, file); err != nil {
			h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err))
			return nil, false
		}
		return buf.Bytes(), true
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize))
			return nil, false
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err))
		return nil, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		h.respondError(w, http.StatusBadRequest, "missing configuration document")
		return nil, false
	}
	return body, true
}

func (h *handler) runAllocation(w http.ResponseWriter, configBytes []byte, start time.Time, op string) {
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	if err := cfg.Validate(); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	warnings := cfg.ValidateConfiguration()

	optimizer, err := adapters.BuildOptimizer(h.logger, cfg)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	result, err := optimizer.Allocate(adapters.BuildRequest(cfg))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, allocator.ErrConfiguration):
			status = http.StatusBadRequest
		case errors.Is(err, allocator.ErrOptimizationFailed):
			status = http.StatusUnprocessableEntity
		}
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}

	elapsed := time.Since(start)

	response := allocateResponse{
		Channels:      result.Channels,
		Allocation:    result.Allocation,
		TotalResponse: result.TotalResponse,
		Contributions: result.Contributions,
		Advisories:    result.Advisories,
		Warnings:      warnings,
		Iterations:    result.Iterations,
		CSV:           output.CsvString(result),
		Duration:      elapsed.String(),
	}

	h.logger.Info("allocation computed",
		zap.String("op", op),
		zap.Int("channels", len(response.Channels)),
		zap.Int("iterations", response.Iterations),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondErrorWithOp(w, status, msg, "server.handleAllocate")
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("allocation request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
