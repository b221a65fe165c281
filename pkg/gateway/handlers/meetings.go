package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/mw"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/store"
)

// MeetingStore is the slice of the meeting store the HTTP surface uses.
type MeetingStore interface {
	ListMeetings(ctx context.Context, status store.MeetingStatus, limit, offset int) ([]store.Meeting, int, error)
	GetMeeting(ctx context.Context, id int64) (store.Meeting, error)
	SearchMeetings(ctx context.Context, query string, limit int) ([]store.Meeting, error)
	UpdateMeeting(ctx context.Context, id int64, upd store.MeetingUpdate) (store.Meeting, error)
	DeleteMeeting(ctx context.Context, id int64) error
	UpdateActionItemStatus(ctx context.Context, id int64, status store.ActionItemStatus) error
}

type meetingView struct {
	store.Meeting
	WordCount int `json:"word_count,omitempty"`
}

func viewOf(m store.Meeting) meetingView {
	v := meetingView{Meeting: m}
	if m.Transcript != nil {
		v.WordCount = len(strings.Fields(*m.Transcript))
	}
	return v
}

type meetingListResponse struct {
	Meetings []meetingView `json:"meetings"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// MeetingsHandler serves the /api/v1/meetings collection: listing and
// search.
type MeetingsHandler struct {
	Store MeetingStore
}

func (h MeetingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed", reqID)
		return
	}

	q := r.URL.Query()
	skip := intQuery(q.Get("skip"), 0)
	if skip < 0 {
		skip = 0
	}
	limit := intQuery(q.Get("limit"), 100)
	if limit < 1 || limit > 100 {
		limit = 100
	}
	status := store.MeetingStatus(q.Get("status"))
	if status != "" && !status.Valid() {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "unknown status filter", reqID)
		return
	}

	meetings, total, err := h.Store.ListMeetings(r.Context(), status, limit, skip)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to list meetings", reqID)
		return
	}

	views := make([]meetingView, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, viewOf(m))
	}
	writeJSON(w, http.StatusOK, meetingListResponse{
		Meetings: views,
		Total:    total,
		Page:     skip/limit + 1,
		PageSize: limit,
	})
}

// MeetingHandler serves a single meeting and its sub-resources:
//
//	GET    /api/v1/meetings/search
//	GET    /api/v1/meetings/{id}
//	PUT    /api/v1/meetings/{id}
//	DELETE /api/v1/meetings/{id}
//	GET    /api/v1/meetings/{id}/transcript
//	GET    /api/v1/meetings/{id}/status
//	PUT    /api/v1/meetings/{id}/action-items/{item_id}
type MeetingHandler struct {
	Store MeetingStore
}

func (h MeetingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/meetings/"), "/")
	if rest == "" {
		writeJSONError(w, http.StatusNotFound, "not_found", "not found", reqID)
		return
	}
	if rest == "search" {
		h.search(w, r, reqID)
		return
	}

	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "meeting id must be an integer", reqID)
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id, reqID)
		case http.MethodPut, http.MethodPatch:
			h.update(w, r, id, reqID)
		case http.MethodDelete:
			h.delete(w, r, id, reqID)
		default:
			writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed", reqID)
		}
	case len(parts) == 2 && parts[1] == "transcript":
		h.transcript(w, r, id, reqID)
	case len(parts) == 2 && parts[1] == "status":
		h.status(w, r, id, reqID)
	case len(parts) == 3 && parts[1] == "action-items":
		h.updateActionItem(w, r, id, parts[2], reqID)
	default:
		writeJSONError(w, http.StatusNotFound, "not_found", "not found", reqID)
	}
}

func (h MeetingHandler) search(w http.ResponseWriter, r *http.Request, reqID string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed", reqID)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "q is required", reqID)
		return
	}
	limit := intQuery(r.URL.Query().Get("limit"), 10)
	if limit < 1 || limit > 50 {
		limit = 10
	}

	meetings, err := h.Store.SearchMeetings(r.Context(), query, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "search failed", reqID)
		return
	}
	views := make([]meetingView, 0, len(meetings))
	for _, m := range meetings {
		views = append(views, viewOf(m))
	}
	writeJSON(w, http.StatusOK, meetingListResponse{
		Meetings: views,
		Total:    len(views),
		Page:     1,
		PageSize: limit,
	})
}

func (h MeetingHandler) get(w http.ResponseWriter, r *http.Request, id int64, reqID string) {
	m, err := h.Store.GetMeeting(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "meeting not found", reqID)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to load meeting", reqID)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}

type meetingUpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	MeetingDate *time.Time `json:"meeting_date"`
}

func (h MeetingHandler) update(w http.ResponseWriter, r *http.Request, id int64, reqID string) {
	var req meetingUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", reqID)
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "title must not be empty", reqID)
		return
	}

	m, err := h.Store.UpdateMeeting(r.Context(), id, store.MeetingUpdate{
		Title:       req.Title,
		Description: req.Description,
		MeetingDate: req.MeetingDate,
	})
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "meeting not found", reqID)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to update meeting", reqID)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}

func (h MeetingHandler) delete(w http.ResponseWriter, r *http.Request, id int64, reqID string) {
	err := h.Store.DeleteMeeting(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "meeting not found", reqID)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to delete meeting", reqID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "meeting " + strconv.FormatInt(id, 10) + " deleted",
	})
}

func (h MeetingHandler) transcript(w http.ResponseWriter, r *http.Request, id int64, reqID string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed", reqID)
		return
	}
	m, err := h.Store.GetMeeting(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "meeting not found", reqID)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to load meeting", reqID)
		return
	}
	if m.Transcript == nil || *m.Transcript == "" {
		writeJSONError(w, http.StatusNotFound, "not_found", "transcript not available yet", reqID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcript": *m.Transcript})
}

func (h MeetingHandler) status(w http.ResponseWriter, r *http.Request, id int64, reqID string) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed", reqID)
		return
	}
	m, err := h.Store.GetMeeting(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "meeting not found", reqID)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to load meeting", reqID)
		return
	}
	resp := map[string]any{
		"meeting_id": m.ID,
		"status":     m.Status,
	}
	if m.ErrorMessage != nil {
		resp["error_message"] = *m.ErrorMessage
	}
	if m.ProcessingTimeSeconds != nil {
		resp["processing_time_seconds"] = *m.ProcessingTimeSeconds
	}
	writeJSON(w, http.StatusOK, resp)
}

type actionItemUpdateRequest struct {
	Status store.ActionItemStatus `json:"status"`
}

func (h MeetingHandler) updateActionItem(w http.ResponseWriter, r *http.Request, meetingID int64, rawItemID, reqID string) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed", reqID)
		return
	}
	itemID, err := strconv.ParseInt(rawItemID, 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "action item id must be an integer", reqID)
		return
	}

	var req actionItemUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", reqID)
		return
	}
	if !req.Status.Valid() {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "unknown action item status", reqID)
		return
	}

	m, err := h.Store.GetMeeting(r.Context(), meetingID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "not_found", "meeting not found", reqID)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to load meeting", reqID)
		return
	}
	owned := false
	for _, item := range m.ActionItems {
		if item.ID == itemID {
			owned = true
			break
		}
	}
	if !owned {
		writeJSONError(w, http.StatusNotFound, "not_found", "action item not found on this meeting", reqID)
		return
	}

	if err := h.Store.UpdateActionItemStatus(r.Context(), itemID, req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "action item not found", reqID)
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to update action item", reqID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"action_item_id": itemID,
		"status":         req.Status,
	})
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
