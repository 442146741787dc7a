package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
)

func pageParams(r *http.Request) (int, string) {
	pageSize := 20
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			pageSize = v
		}
	}
	return pageSize, r.URL.Query().Get("pageToken")
}

// ListTransitionEventsHandler handles GET /api/audit/v1/events
// Query params: kind, entityId, actor, pageSize, pageToken
func ListTransitionEventsHandler(store *governance.TransitionEventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := governance.EventFilter{
			EntityKind: governance.EntityKind(r.URL.Query().Get("kind")),
			EntityID:   r.URL.Query().Get("entityId"),
			Actor:      r.URL.Query().Get("actor"),
		}
		pageSize, pageToken := pageParams(r)

		records, nextToken, err := store.List(r.Context(), filter, pageSize, pageToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list transition events: %v", err))
			return
		}

		events := make([]governance.TransitionEvent, len(records))
		for i := range records {
			events[i] = records[i].ToAPI()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events":        events,
			"nextPageToken": nextToken,
			"size":          len(events),
		})
	}
}

// ListRequestEventsHandler handles GET /api/audit/v1/requests
// Query params: actor, resourceType, resourceId, action, outcome, pageSize, pageToken
func ListRequestEventsHandler(store *RequestEventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := RequestEventFilter{
			Actor:        r.URL.Query().Get("actor"),
			ResourceType: r.URL.Query().Get("resourceType"),
			ResourceID:   r.URL.Query().Get("resourceId"),
			Action:       r.URL.Query().Get("action"),
			Outcome:      r.URL.Query().Get("outcome"),
		}
		pageSize, pageToken := pageParams(r)

		records, nextToken, err := store.List(r.Context(), filter, pageSize, pageToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list request events: %v", err))
			return
		}

		events := make([]requestEventResponse, len(records))
		for i, rec := range records {
			events[i] = recordToResponse(rec)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events":        events,
			"nextPageToken": nextToken,
			"size":          len(events),
		})
	}
}

// GetRequestEventHandler handles GET /api/audit/v1/requests/{eventId}
func GetRequestEventHandler(store *RequestEventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventId")
		if eventID == "" {
			writeError(w, http.StatusBadRequest, "missing event ID")
			return
		}

		record, err := store.GetByID(r.Context(), eventID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get request event: %v", err))
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("request event %q not found", eventID))
			return
		}

		writeJSON(w, http.StatusOK, recordToResponse(*record))
	}
}

type requestEventResponse struct {
	ID            string   `json:"id"`
	CorrelationID string   `json:"correlationId,omitempty"`
	RequestID     string   `json:"requestId,omitempty"`
	Actor         string   `json:"actor"`
	ActorRoles    []string `json:"actorRoles,omitempty"`
	Method        string   `json:"method"`
	Path          string   `json:"path"`
	ResourceType  string   `json:"resourceType,omitempty"`
	ResourceID    string   `json:"resourceId,omitempty"`
	Action        string   `json:"action"`
	Outcome       string   `json:"outcome"`
	StatusCode    int      `json:"statusCode"`
	DurationMs    int64    `json:"durationMs"`
	CreatedAt     string   `json:"createdAt"`
}

func recordToResponse(rec RequestEventRecord) requestEventResponse {
	return requestEventResponse{
		ID:            rec.ID,
		CorrelationID: rec.CorrelationID,
		RequestID:     rec.RequestID,
		Actor:         rec.Actor,
		ActorRoles:    []string(rec.ActorRoles),
		Method:        rec.Method,
		Path:          rec.Path,
		ResourceType:  rec.ResourceType,
		ResourceID:    rec.ResourceID,
		Action:        rec.Action,
		Outcome:       rec.Outcome,
		StatusCode:    rec.StatusCode,
		DurationMs:    rec.DurationMs,
		CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
