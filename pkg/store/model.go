package store

import "time"

// MeetingStatus is the processing lifecycle of an uploaded meeting.
// Uploading moves to processing when the job is queued, then to
// completed or failed.
type MeetingStatus string

const (
	MeetingUploading  MeetingStatus = "uploading"
	MeetingProcessing MeetingStatus = "processing"
	MeetingCompleted  MeetingStatus = "completed"
	MeetingFailed     MeetingStatus = "failed"
)

func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingUploading, MeetingProcessing, MeetingCompleted, MeetingFailed:
		return true
	}
	return false
}

type ActionItemStatus string

const (
	ActionPending    ActionItemStatus = "pending"
	ActionInProgress ActionItemStatus = "in_progress"
	ActionCompleted  ActionItemStatus = "completed"
	ActionCancelled  ActionItemStatus = "cancelled"
)

func (s ActionItemStatus) Valid() bool {
	switch s {
	case ActionPending, ActionInProgress, ActionCompleted, ActionCancelled:
		return true
	}
	return false
}

type ActionItemPriority string

const (
	PriorityLow      ActionItemPriority = "low"
	PriorityMedium   ActionItemPriority = "medium"
	PriorityHigh     ActionItemPriority = "high"
	PriorityCritical ActionItemPriority = "critical"
)

func (p ActionItemPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Meeting is one recorded or live-captured meeting and the results of
// its analysis.
type Meeting struct {
	ID                    int64          `json:"id"`
	Title                 string         `json:"title"`
	Description           *string        `json:"description,omitempty"`
	AudioObjectKey        *string        `json:"audio_object_key,omitempty"`
	DurationSeconds       *float64       `json:"duration_seconds,omitempty"`
	Status                MeetingStatus  `json:"status"`
	Transcript            *string        `json:"transcript,omitempty"`
	Summary               *string        `json:"summary,omitempty"`
	KeyTopics             []string       `json:"key_topics,omitempty"`
	SentimentScore        *float64       `json:"sentiment_score,omitempty"`
	Participants          []string       `json:"participants,omitempty"`
	MeetingDate           time.Time      `json:"meeting_date"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	ProcessingTimeSeconds *float64       `json:"processing_time_seconds,omitempty"`
	ErrorMessage          *string        `json:"error_message,omitempty"`
	ActionItems           []ActionItem   `json:"action_items,omitempty"`
}

// ActionItem is one actionable commitment extracted from a meeting.
type ActionItem struct {
	ID                int64              `json:"id"`
	MeetingID         int64              `json:"meeting_id"`
	Title             string             `json:"title"`
	Description       *string            `json:"description,omitempty"`
	AssignedTo        *string            `json:"assigned_to,omitempty"`
	DueDate           *time.Time         `json:"due_date,omitempty"`
	Priority          ActionItemPriority `json:"priority"`
	Status            ActionItemStatus   `json:"status"`
	TranscriptSnippet *string            `json:"transcript_snippet,omitempty"`
	ConfidenceScore   *float64           `json:"confidence_score,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
}

// NewMeeting carries the caller-supplied fields for an insert.
type NewMeeting struct {
	Title          string
	Description    *string
	AudioObjectKey *string
	Participants   []string
	MeetingDate    time.Time
	Status         MeetingStatus
}

// MeetingUpdate holds partial updates; nil fields are left unchanged.
type MeetingUpdate struct {
	Title       *string
	Description *string
	MeetingDate *time.Time
}

// AnalysisResults is everything the batch pipeline writes back when a
// meeting finishes processing.
type AnalysisResults struct {
	Transcript            string
	Summary               string
	KeyTopics             []string
	SentimentScore        float64
	DurationSeconds       float64
	ProcessingTimeSeconds float64
	ActionItems           []ActionItem
}
