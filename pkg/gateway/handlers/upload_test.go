package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/metrics"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/queue"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/store"
)

type fakeUploadStore struct {
	created  []store.NewMeeting
	statuses map[int64]store.MeetingStatus
	nextID   int64
}

func (fs *fakeUploadStore) CreateMeeting(_ context.Context, nm store.NewMeeting) (store.Meeting, error) {
	fs.nextID++
	fs.created = append(fs.created, nm)
	return store.Meeting{ID: fs.nextID, Title: nm.Title, Status: nm.Status}, nil
}

func (fs *fakeUploadStore) SetMeetingStatus(_ context.Context, id int64, status store.MeetingStatus, _ string) error {
	if fs.statuses == nil {
		fs.statuses = make(map[int64]store.MeetingStatus)
	}
	fs.statuses[id] = status
	return nil
}

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return key, nil
}

type fakeEnqueuer struct {
	jobs []queue.Job
	err  error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, job queue.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	fw, err := mp.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for k, v := range fields {
		if err := mp.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := mp.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	return req
}

func testUploadHandler(fs *fakeUploadStore, up *fakeUploader, q *fakeEnqueuer) UploadHandler {
	return UploadHandler{
		Store:   fs,
		Objects: up,
		Queue:   q,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestUploadHandlerHappyPath(t *testing.T) {
	fs := &fakeUploadStore{}
	up := &fakeUploader{}
	q := &fakeEnqueuer{}

	req := multipartUpload(t, "standup.wav", []byte("RIFFdata"), map[string]string{
		"title":        "Daily standup",
		"participants": "alice, bob",
	})
	rec := httptest.NewRecorder()
	testUploadHandler(fs, up, q).ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.MeetingID != 1 || resp.Status != "processing" {
		t.Fatalf("resp = %+v, want meeting 1 processing", resp)
	}
	if len(up.keys) != 1 || !strings.HasPrefix(up.keys[0], "meetings/") || !strings.HasSuffix(up.keys[0], ".wav") {
		t.Fatalf("object keys = %v, want one meetings/<uuid>.wav", up.keys)
	}
	if len(q.jobs) != 1 || q.jobs[0].Type != queue.JobProcessMeeting || q.jobs[0].MeetingID != 1 {
		t.Fatalf("jobs = %+v, want one process_meeting for meeting 1", q.jobs)
	}
	if len(fs.created) != 1 {
		t.Fatalf("created %d meetings, want 1", len(fs.created))
	}
	nm := fs.created[0]
	if nm.Title != "Daily standup" || nm.Status != store.MeetingUploading {
		t.Fatalf("created = %+v, want uploading Daily standup", nm)
	}
	if len(nm.Participants) != 2 || nm.Participants[0] != "alice" || nm.Participants[1] != "bob" {
		t.Fatalf("participants = %v, want [alice bob]", nm.Participants)
	}
	if fs.statuses[1] != store.MeetingProcessing {
		t.Fatalf("final status = %q, want processing", fs.statuses[1])
	}
}

func TestUploadHandlerRecordsUploadedBytes(t *testing.T) {
	fs := &fakeUploadStore{}
	up := &fakeUploader{}
	q := &fakeEnqueuer{}
	m := metrics.NewMetrics("test")

	content := []byte("RIFF0123456789abcdef")
	req := multipartUpload(t, "retro.wav", content, nil)
	rec := httptest.NewRecorder()
	h := testUploadHandler(fs, up, q)
	h.Metrics = m
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := testutil.ToFloat64(m.StorageUploadBytes); got != float64(len(content)) {
		t.Fatalf("storage upload bytes=%v, want %d", got, len(content))
	}
}

func TestUploadHandlerTitleDefaultsToFilename(t *testing.T) {
	fs := &fakeUploadStore{}
	req := multipartUpload(t, "retro-notes.mp3", []byte("audio"), nil)
	rec := httptest.NewRecorder()
	testUploadHandler(fs, &fakeUploader{}, &fakeEnqueuer{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if fs.created[0].Title != "retro-notes" {
		t.Fatalf("title = %q, want retro-notes", fs.created[0].Title)
	}
}

func TestUploadHandlerRejectsUnsupportedFormat(t *testing.T) {
	req := multipartUpload(t, "notes.txt", []byte("not audio"), nil)
	rec := httptest.NewRecorder()
	testUploadHandler(&fakeUploadStore{}, &fakeUploader{}, &fakeEnqueuer{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadHandlerRequiresFile(t *testing.T) {
	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	_ = mp.WriteField("title", "No audio attached")
	_ = mp.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mp.FormDataContentType())

	rec := httptest.NewRecorder()
	testUploadHandler(&fakeUploadStore{}, &fakeUploader{}, &fakeEnqueuer{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadHandlerRejectsEmptyFile(t *testing.T) {
	req := multipartUpload(t, "silence.wav", nil, nil)
	rec := httptest.NewRecorder()
	testUploadHandler(&fakeUploadStore{}, &fakeUploader{}, &fakeEnqueuer{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadHandlerMarksMeetingFailedWhenEnqueueFails(t *testing.T) {
	fs := &fakeUploadStore{}
	q := &fakeEnqueuer{err: errors.New("redis down")}

	req := multipartUpload(t, "sync.wav", []byte("audio"), nil)
	rec := httptest.NewRecorder()
	testUploadHandler(fs, &fakeUploader{}, q).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if fs.statuses[1] != store.MeetingFailed {
		t.Fatalf("status = %q, want failed", fs.statuses[1])
	}
}
