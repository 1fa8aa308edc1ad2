// Package api wires the HTTP surface spec.md §6.1 describes onto the
// Ingestion Coordinator, following the teacher's gorilla/mux routing
// idiom (cmd/tempo/app.Config's HTTP registration style).
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vitalpipe/ingest/internal/coordinator"
	"github.com/vitalpipe/ingest/internal/ingesterrors"
	"github.com/vitalpipe/ingest/internal/store"
)

// userIDFromContext resolves the authenticated user id. Auth middleware
// is explicitly out of scope (spec.md §1 Non-goals); this core treats
// the resolved user id as trusted input already placed on the request
// context by that (external, unimplemented here) middleware.
type userIDContextKey struct{}

// WithUserID is the seam an external auth middleware uses to attach the
// resolved user id before the request reaches this core's handlers.
func WithUserID(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := contextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// Handler bundles the core's HTTP endpoints.
type Handler struct {
	coordinator *coordinator.Coordinator
	store       store.RawIngestionStore
	logger      log.Logger
}

func NewHandler(c *coordinator.Coordinator, s store.RawIngestionStore, logger log.Logger) *Handler {
	return &Handler{coordinator: c, store: s, logger: logger}
}

// Register attaches the core's routes to r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/v1/ingest", h.handleIngest).Methods(http.MethodPost)
	r.HandleFunc("/v1/ingest/{raw_ingestion_id}/status", h.handleStatus).Methods(http.MethodGet)
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing resolved user id")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	resp, err := h.coordinator.Ingest(r.Context(), userID, body)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	status := http.StatusOK
	if resp.ProcessingStatus == "accepted_for_processing" {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["raw_ingestion_id"]
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid raw_ingestion_id")
		return
	}

	raw, err := h.store.Get(r.Context(), id)
	if err != nil {
		level.Error(h.logger).Log("msg", "status lookup failed", "raw_ingestion_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "persistence error")
		return
	}
	if raw == nil {
		writeError(w, http.StatusNotFound, "raw ingestion not found")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		RawIngestionID:   raw.ID,
		ProcessingStatus: raw.ProcessingStatus,
		ProcessingErrors: raw.ProcessingErrors,
		ProcessingMetadata: raw.ProcessingMetadata,
	})
}

type statusResponse struct {
	RawIngestionID     uuid.UUID                 `json:"raw_ingestion_id"`
	ProcessingStatus   interface{}               `json:"processing_status"`
	ProcessingErrors   interface{}               `json:"errors"`
	ProcessingMetadata interface{}               `json:"processing_metadata"`
}

// maxRequestBytes caps the request body read even before async routing
// decides whether the payload itself is too large; a malformed or
// hostile client never gets to hold the handler goroutine indefinitely.
const maxRequestBytes = 64 * 1024 * 1024

func (h *Handler) writeIngestError(w http.ResponseWriter, err error) {
	var dup *ingesterrors.DuplicatePayloadError
	var transient *ingesterrors.TransientDBError

	switch {
	case errors.Is(err, ingesterrors.ErrEmptyPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, map[string]any{
			"success":                 false,
			"error":                   "duplicate_payload",
			"original_raw_ingestion_id": dup.OriginalRawIngestionID,
		})
	case errors.As(err, &transient):
		level.Error(h.logger).Log("msg", "persistence error", "err", err)
		writeError(w, http.StatusInternalServerError, "persistence error, retry the request")
	default:
		level.Error(h.logger).Log("msg", "malformed ingest request", "err", err)
		writeError(w, http.StatusBadRequest, "malformed request body")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError never echoes raw payload content (spec.md §6.1: "No raw
// payload content appears in error messages").
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
