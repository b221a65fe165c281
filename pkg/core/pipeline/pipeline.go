// Package pipeline runs the batch processing flow for uploaded meeting
// recordings: fetch audio, transcribe, analyze, extract action items,
// summarize, persist.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/analysis"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/audio"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/core/stt"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/gateway/metrics"
	"github.com/DhrumilPrajapati03/MeetingMindAI/pkg/store"
)

// MeetingStore is the persistence the pipeline needs.
type MeetingStore interface {
	GetMeeting(ctx context.Context, id int64) (store.Meeting, error)
	SetMeetingStatus(ctx context.Context, id int64, status store.MeetingStatus, errMsg string) error
	SaveAnalysisResults(ctx context.Context, id int64, res store.AnalysisResults) error
}

// ObjectStore fetches stored audio.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// Analyzer is the LLM analysis surface the pipeline consumes. A nil
// Analyzer disables the analysis steps; meetings are still transcribed
// and persisted with empty insights.
type Analyzer interface {
	AnalyzeContent(ctx context.Context, transcript string, meta analysis.MeetingContext) (analysis.Insights, error)
	ExtractActionItems(ctx context.Context, transcript string, meta analysis.MeetingContext) ([]analysis.ExtractedAction, error)
	Summarize(ctx context.Context, transcript string, meta analysis.MeetingContext, kind analysis.SummaryType) (string, error)
}

// Pipeline orchestrates the processing steps for one meeting at a time.
type Pipeline struct {
	Store    MeetingStore
	Objects  ObjectStore
	Engine   stt.Engine
	Analyzer Analyzer
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Language string
	now      func() time.Time
}

func New(st MeetingStore, objects ObjectStore, engine stt.Engine, analyzer Analyzer, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Store:    st,
		Objects:  objects,
		Engine:   engine,
		Analyzer: analyzer,
		Metrics:  m,
		Logger:   logger,
		Language: "en",
		now:      time.Now,
	}
}

// ProcessMeeting runs the full flow. Analysis steps degrade gracefully;
// transcription failure fails the meeting. Reprocessing a completed
// meeting is a no-op.
func (p *Pipeline) ProcessMeeting(ctx context.Context, meetingID int64) error {
	logger := p.Logger.With("meeting_id", meetingID)
	start := p.now()

	m, err := p.Store.GetMeeting(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("load meeting %d: %w", meetingID, err)
	}
	if m.Status == store.MeetingCompleted {
		logger.Warn("meeting already processed, skipping")
		return nil
	}
	if m.AudioObjectKey == nil || *m.AudioObjectKey == "" {
		p.fail(ctx, meetingID, "meeting has no audio object")
		return fmt.Errorf("meeting %d has no audio object", meetingID)
	}

	if err := p.Store.SetMeetingStatus(ctx, meetingID, store.MeetingProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	transcript, duration, err := p.transcribe(ctx, logger, *m.AudioObjectKey)
	if err != nil {
		p.fail(ctx, meetingID, err.Error())
		p.Metrics.RecordPipelineJob("failed")
		return err
	}

	meta := analysis.MeetingContext{
		Title:        m.Title,
		Participants: m.Participants,
		MeetingDate:  m.MeetingDate,
	}
	if m.Description != nil {
		meta.Description = *m.Description
	}

	insights := p.analyze(ctx, logger, transcript, meta)
	actions := p.extractActions(ctx, logger, transcript, meta)
	summary := p.summarize(ctx, logger, transcript, meta)

	results := store.AnalysisResults{
		Transcript:            transcript,
		Summary:               summary,
		KeyTopics:             insights.KeyTopics,
		SentimentScore:        insights.Sentiment.OverallScore,
		DurationSeconds:       duration,
		ProcessingTimeSeconds: p.now().Sub(start).Seconds(),
		ActionItems:           toStoreActions(meetingID, actions),
	}
	if err := p.Store.SaveAnalysisResults(ctx, meetingID, results); err != nil {
		p.fail(ctx, meetingID, "persist results: "+err.Error())
		p.Metrics.RecordPipelineJob("failed")
		return fmt.Errorf("persist results for meeting %d: %w", meetingID, err)
	}

	p.Metrics.RecordPipelineJob("completed")
	logger.Info("meeting processed",
		"duration_seconds", duration,
		"action_items", len(actions),
		"elapsed", p.now().Sub(start).Round(time.Millisecond))
	return nil
}

func (p *Pipeline) transcribe(ctx context.Context, logger *slog.Logger, objectKey string) (string, float64, error) {
	stepStart := p.now()

	data, err := p.Objects.Download(ctx, objectKey)
	if err != nil {
		return "", 0, fmt.Errorf("download audio: %w", err)
	}
	samples, rate, err := audio.DecodeWAV(data)
	if err != nil {
		return "", 0, fmt.Errorf("decode audio: %w", err)
	}
	duration := float64(len(samples)) / float64(rate)

	res, err := p.Engine.Transcribe(ctx, samples, rate, p.Language)
	if err != nil {
		return "", 0, fmt.Errorf("transcribe audio: %w", err)
	}

	p.Metrics.RecordPipelineStep("transcribe", p.now().Sub(stepStart))
	logger.Info("transcription complete", "duration_seconds", duration)
	return res.Text, duration, nil
}

func (p *Pipeline) analyze(ctx context.Context, logger *slog.Logger, transcript string, meta analysis.MeetingContext) analysis.Insights {
	if p.Analyzer == nil {
		return analysis.Insights{}
	}
	stepStart := p.now()
	insights, err := p.Analyzer.AnalyzeContent(ctx, transcript, meta)
	if err != nil {
		logger.Warn("content analysis failed", "error", err)
		p.Metrics.RecordLLMCall("analyzer", "error")
		p.Metrics.RecordError("pipeline", "analysis")
		return analysis.Insights{}
	}
	p.Metrics.RecordLLMCall("analyzer", "ok")
	p.Metrics.RecordPipelineStep("analyze", p.now().Sub(stepStart))
	return insights
}

func (p *Pipeline) extractActions(ctx context.Context, logger *slog.Logger, transcript string, meta analysis.MeetingContext) []analysis.ExtractedAction {
	if p.Analyzer == nil {
		return nil
	}
	stepStart := p.now()
	actions, err := p.Analyzer.ExtractActionItems(ctx, transcript, meta)
	if err != nil {
		logger.Warn("action item extraction failed", "error", err)
		p.Metrics.RecordLLMCall("action_extractor", "error")
		p.Metrics.RecordError("pipeline", "action_items")
		return nil
	}
	p.Metrics.RecordLLMCall("action_extractor", "ok")
	p.Metrics.RecordPipelineStep("extract_actions", p.now().Sub(stepStart))
	return actions
}

func (p *Pipeline) summarize(ctx context.Context, logger *slog.Logger, transcript string, meta analysis.MeetingContext) string {
	if p.Analyzer == nil {
		return ""
	}
	stepStart := p.now()
	summary, err := p.Analyzer.Summarize(ctx, transcript, meta, analysis.SummaryStandard)
	if err != nil {
		logger.Warn("summarization failed", "error", err)
		p.Metrics.RecordLLMCall("summarizer", "error")
		p.Metrics.RecordError("pipeline", "summary")
		return ""
	}
	p.Metrics.RecordLLMCall("summarizer", "ok")
	p.Metrics.RecordPipelineStep("summarize", p.now().Sub(stepStart))
	return summary
}

func (p *Pipeline) fail(ctx context.Context, meetingID int64, msg string) {
	if err := p.Store.SetMeetingStatus(ctx, meetingID, store.MeetingFailed, msg); err != nil {
		p.Logger.Error("mark meeting failed", "meeting_id", meetingID, "error", err)
	}
}

func toStoreActions(meetingID int64, actions []analysis.ExtractedAction) []store.ActionItem {
	out := make([]store.ActionItem, 0, len(actions))
	for _, a := range actions {
		item := store.ActionItem{
			MeetingID: meetingID,
			Title:     a.Title,
			Priority:  store.ActionItemPriority(a.Priority),
			Status:    store.ActionPending,
			DueDate:   a.DueDate,
		}
		if a.Description != "" {
			d := a.Description
			item.Description = &d
		}
		if a.AssignedTo != "" {
			at := a.AssignedTo
			item.AssignedTo = &at
		}
		if a.Snippet != "" {
			sn := a.Snippet
			item.TranscriptSnippet = &sn
		}
		if a.Confidence > 0 {
			c := a.Confidence
			item.ConfidenceScore = &c
		}
		out = append(out, item)
	}
	return out
}
