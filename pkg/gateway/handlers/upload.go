package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/metrics"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/mw"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/queue"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/storage"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/store"
)

// UploadStore is the slice of the meeting store the upload path uses.
type UploadStore interface {
	CreateMeeting(ctx context.Context, nm store.NewMeeting) (store.Meeting, error)
	SetMeetingStatus(ctx context.Context, id int64, status store.MeetingStatus, errMsg string) error
}

// ObjectUploader stores a raw audio object and returns its key.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// JobEnqueuer hands a processing job to the worker queue.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

var supportedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".webm": true,
}

// UploadHandler accepts a multipart audio upload, stores the object,
// creates the meeting row, and queues it for processing.
type UploadHandler struct {
	Store    UploadStore
	Objects  ObjectUploader
	Queue    JobEnqueuer
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	MaxBytes int64
}

type uploadResponse struct {
	MeetingID int64  `json:"meeting_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func (h UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed", reqID)
		return
	}

	maxBytes := h.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 100 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "invalid_request", "upload too large or malformed multipart body", reqID)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "file field is required", reqID)
		return
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(header.Filename))
	if !supportedAudioExtensions[ext] {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "unsupported audio format", reqID)
		return
	}
	objectKey := storage.ObjectName(header.Filename)

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "failed to read upload", reqID)
		return
	}
	if len(data) == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "uploaded file is empty", reqID)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, ext)
	}
	if title == "" {
		title = "Meeting " + time.Now().UTC().Format("2006-01-02 15:04")
	}
	var description *string
	if d := strings.TrimSpace(r.FormValue("description")); d != "" {
		description = &d
	}
	participants := splitParticipants(r.FormValue("participants"))

	contentType := header.Header.Get("Content-Type")
	if _, err := h.Objects.Upload(r.Context(), objectKey, data, contentType); err != nil {
		if h.Logger != nil {
			h.Logger.Error("object upload failed", "request_id", reqID, "key", objectKey, "error", err)
		}
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to store audio", reqID)
		return
	}
	h.Metrics.RecordStorageUpload(len(data))

	meeting, err := h.Store.CreateMeeting(r.Context(), store.NewMeeting{
		Title:          title,
		Description:    description,
		AudioObjectKey: &objectKey,
		Participants:   participants,
		Status:         store.MeetingUploading,
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to create meeting", reqID)
		return
	}

	if err := h.Queue.Enqueue(r.Context(), queue.Job{
		Type:      queue.JobProcessMeeting,
		MeetingID: meeting.ID,
	}); err != nil {
		if h.Logger != nil {
			h.Logger.Error("enqueue failed", "request_id", reqID, "meeting_id", meeting.ID, "error", err)
		}
		_ = h.Store.SetMeetingStatus(r.Context(), meeting.ID, store.MeetingFailed, "failed to queue for processing")
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to queue meeting for processing", reqID)
		return
	}

	if err := h.Store.SetMeetingStatus(r.Context(), meeting.ID, store.MeetingProcessing, ""); err != nil && h.Logger != nil {
		h.Logger.Warn("status update failed after enqueue", "meeting_id", meeting.ID, "error", err)
	}

	if h.Logger != nil {
		h.Logger.Info("meeting uploaded",
			"request_id", reqID,
			"meeting_id", meeting.ID,
			"object_key", objectKey,
			"bytes", len(data))
	}
	writeJSON(w, http.StatusAccepted, uploadResponse{
		MeetingID: meeting.ID,
		Status:    string(store.MeetingProcessing),
		Message:   "meeting uploaded, processing started",
	})
}

func splitParticipants(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
