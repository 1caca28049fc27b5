package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/meshly/backend/pkg/auth"
	"github.com/meshly/backend/pkg/logger"
	"github.com/meshly/backend/pkg/notification"
	"github.com/meshly/backend/pkg/stream"
)

type handlers struct {
	store   notification.Store
	gateway *stream.Gateway
	service *notification.Service
	logger  *slog.Logger
}

// publishRequest is the internal producer payload.
type publishRequest struct {
	UserID    string          `json:"user_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// handlePublish is the producer entry point used by the other backend
// modules (chat, rendering pipeline, account flows). It is synchronous
// with respect to persistence: the response carries the durable event id.
func (h *handlers) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.EventType == "" {
		http.Error(w, "user_id and event_type are required", http.StatusBadRequest)
		return
	}

	ev, err := h.service.PublishToUser(r.Context(), req.UserID, req.EventType, req.Payload)
	if err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "publish failed",
			logger.UserID(req.UserID),
			logger.EventType(req.EventType),
			logger.Error(err),
		)
		http.Error(w, "event store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(ev); err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "response encoding failed", logger.Error(err))
	}
}

// listResponse is the poll endpoint payload. NextAfterID lets clients
// advance their cursor without inspecting the last element.
type listResponse struct {
	Events      []notification.Event `json:"events"`
	NextAfterID int64                `json:"next_after_id"`
}

func (h *handlers) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	afterID, err := queryInt(r, "after_id", 0)
	if err != nil || afterID < 0 {
		http.Error(w, "invalid after_id", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil || limit < 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}

	events, err := h.store.List(r.Context(), userID, afterID, int(limit))
	if err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "event list failed",
			logger.UserID(userID),
			logger.Error(err),
		)
		http.Error(w, "event store unavailable", http.StatusServiceUnavailable)
		return
	}
	if events == nil {
		events = []notification.Event{}
	}

	next := afterID
	if len(events) > 0 {
		next = events[len(events)-1].ID
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listResponse{Events: events, NextAfterID: next}); err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "response encoding failed", logger.Error(err))
	}
}

func (h *handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	cursor, err := parseCursor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Bounded store reads; a failure here rejects the stream before any
	// frame is written, so the client retries with the same cursor.
	events, err := h.loadBacklog(r.Context(), userID, cursor)
	if err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "replay load failed",
			logger.UserID(userID),
			logger.Error(err),
		)
		http.Error(w, "event store unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.gateway.Connect(r.Context(), userID, w, events)
	if err != nil {
		switch {
		case errors.Is(err, stream.ErrStreamingUnsupported):
			http.Error(w, "streaming unsupported", http.StatusBadRequest)
		case errors.Is(err, stream.ErrGatewayClosed):
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
		default:
			// Headers are already sent; nothing to report to the peer.
			h.logger.LogAttrs(r.Context(), slog.LevelWarn, "stream connect failed",
				logger.UserID(userID),
				logger.Error(err),
			)
		}
		return
	}

	// The connection is torn down solely by context cancellation: client
	// disconnect, a dead transport detected via failed write, or server
	// shutdown. Hold the handler open until that has fully happened.
	<-conn.Done()
}

// loadBacklog drains the store from the cursor, page by page, until a
// short page shows the backlog is exhausted. The stream must not join
// live fan-out with persisted events still unread: live frames carry
// higher ids and would advance the client's cursor past the unread gap,
// which replay could then never close. The whole drain shares one
// replayTimeout budget.
func (h *handlers) loadBacklog(ctx context.Context, userID string, afterID int64) ([]notification.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, replayTimeout)
	defer cancel()

	var events []notification.Event
	for {
		page, err := h.store.List(ctx, userID, afterID, notification.MaxListLimit)
		if err != nil {
			return nil, err
		}
		events = append(events, page...)
		if len(page) < notification.MaxListLimit {
			return events, nil
		}
		afterID = page[len(page)-1].ID
	}
}

func queryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
