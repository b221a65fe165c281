// Package analysis turns meeting transcripts into insights: topics,
// sentiment, action items, and summaries.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// MeetingContext carries the metadata that sharpens the prompts.
type MeetingContext struct {
	Title        string
	Description  string
	Participants []string
	MeetingDate  time.Time
}

func (m MeetingContext) header() string {
	var b strings.Builder
	if m.Title != "" {
		fmt.Fprintf(&b, "\nMeeting: %s", m.Title)
	}
	if m.Description != "" {
		fmt.Fprintf(&b, "\nPurpose: %s", m.Description)
	}
	if len(m.Participants) > 0 {
		fmt.Fprintf(&b, "\nParticipants: %s", strings.Join(m.Participants, ", "))
	}
	if !m.MeetingDate.IsZero() {
		fmt.Fprintf(&b, "\nMeeting Date: %s", m.MeetingDate.Format("2006-01-02"))
	}
	return b.String()
}

// Sentiment scores the overall tone from -1 to 1.
type Sentiment struct {
	OverallScore float64 `json:"overall_score"`
	Summary      string  `json:"summary"`
}

// Insights is the structured output of content analysis.
type Insights struct {
	KeyTopics  []string  `json:"key_topics"`
	Sentiment  Sentiment `json:"sentiment"`
	Decisions  []string  `json:"decisions"`
	Questions  []string  `json:"questions"`
	Concerns   []string  `json:"concerns"`
	Highlights []string  `json:"highlights"`
}

// ExtractedAction is one action item found in a transcript. DueDate is
// nil when the transcript names no deadline.
type ExtractedAction struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority"`
	Confidence  float64    `json:"confidence"`
	Snippet     string     `json:"snippet"`
}

// SummaryType selects how much detail the summary carries.
type SummaryType string

const (
	SummaryExecutive SummaryType = "executive"
	SummaryStandard  SummaryType = "standard"
	SummaryDetailed  SummaryType = "detailed"
)

// Agents runs the LLM analysis steps. A failed step degrades to empty
// results rather than failing the whole pipeline.
type Agents struct {
	gen    Generator
	logger *slog.Logger
	now    func() time.Time
}

func NewAgents(gen Generator, logger *slog.Logger) *Agents {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agents{gen: gen, logger: logger, now: time.Now}
}

const analystSystem = "You are an expert meeting analyst. Always return valid JSON."

// AnalyzeContent extracts topics, sentiment, decisions, questions,
// concerns, and highlights.
func (a *Agents) AnalyzeContent(ctx context.Context, transcript string, meta MeetingContext) (Insights, error) {
	prompt := fmt.Sprintf(`You are an expert meeting analyst. Analyze this meeting transcript and extract key insights.
%s

TRANSCRIPT:
%s

Analyze and return a JSON object with:
1. key_topics: List of 3-7 main topics discussed (short phrases)
2. sentiment: Object with:
   - overall_score: Number from -1 (very negative) to 1 (very positive)
   - summary: Brief explanation of the sentiment
3. decisions: List of key decisions made (if any)
4. questions: Important questions raised that need answers
5. concerns: Any concerns or issues mentioned
6. highlights: 3-5 most important points from the meeting

Return ONLY valid JSON, no markdown, no explanation.`, meta.header(), transcript)

	raw, err := a.gen.Generate(ctx, analystSystem, prompt)
	if err != nil {
		return Insights{}, fmt.Errorf("content analysis: %w", err)
	}

	var insights Insights
	if err := json.Unmarshal([]byte(extractJSON(raw)), &insights); err != nil {
		a.logger.Warn("analysis response was not valid json", "error", err)
		return Insights{Sentiment: Sentiment{Summary: "Unable to analyze"}}, nil
	}
	return insights, nil
}

// ExtractActionItems finds tasks, commitments, and follow-ups.
func (a *Agents) ExtractActionItems(ctx context.Context, transcript string, meta MeetingContext) ([]ExtractedAction, error) {
	today := a.now().Format("2006-01-02")
	prompt := fmt.Sprintf(`You are an expert at identifying action items from meeting transcripts.
%s
Today's Date: %s

TRANSCRIPT:
%s

Extract ALL action items. An action item is:
- A task someone needs to complete
- A commitment someone made
- A follow-up that was requested

For each action item, provide:
1. title: Brief task description (max 100 chars)
2. description: More detailed explanation (optional)
3. assigned_to: Person's name (or "Unassigned" if unclear)
4. due_date: Deadline in YYYY-MM-DD format (or null if not mentioned)
5. priority: "low", "medium", "high", or "critical"
6. confidence: 0.0 to 1.0 (how confident you are this is an action item)
7. snippet: Exact quote from transcript where this was mentioned

Return ONLY valid JSON array, no markdown, no explanation.`, meta.header(), today, transcript)

	raw, err := a.gen.Generate(ctx, analystSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("action item extraction: %w", err)
	}

	var items []struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		AssignedTo  string  `json:"assigned_to"`
		DueDate     *string `json:"due_date"`
		Priority    string  `json:"priority"`
		Confidence  float64 `json:"confidence"`
		Snippet     string  `json:"snippet"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &items); err != nil {
		a.logger.Warn("action item response was not valid json", "error", err)
		return nil, nil
	}

	out := make([]ExtractedAction, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Title) == "" {
			continue
		}
		action := ExtractedAction{
			Title:       strings.TrimSpace(it.Title),
			Description: strings.TrimSpace(it.Description),
			AssignedTo:  strings.TrimSpace(it.AssignedTo),
			Priority:    strings.ToLower(strings.TrimSpace(it.Priority)),
			Confidence:  it.Confidence,
			Snippet:     it.Snippet,
		}
		if it.DueDate != nil {
			if due, err := time.Parse("2006-01-02", strings.TrimSpace(*it.DueDate)); err == nil {
				action.DueDate = &due
			}
		}
		out = append(out, action)
	}
	return out, nil
}

// Summarize writes a summary at the requested level of detail.
func (a *Agents) Summarize(ctx context.Context, transcript string, meta MeetingContext, kind SummaryType) (string, error) {
	instructions := map[SummaryType]string{
		SummaryExecutive: `Create an EXECUTIVE SUMMARY (2-3 sentences maximum).

Focus on:
- What was decided
- What are the next steps
- Any urgent matters

Keep it brief and actionable.`,
		SummaryStandard: `Create a STANDARD SUMMARY (1-2 paragraphs).

Include:
- Main topics discussed
- Key decisions made
- Important action items
- Any concerns or blockers

Keep it concise but informative.`,
		SummaryDetailed: `Create a DETAILED SUMMARY (3-4 paragraphs).

Include:
- Context and background
- All topics discussed in order
- Detailed decisions and rationale
- All action items with owners
- Questions raised and concerns
- Next steps and follow-ups

Be thorough but organized.`,
	}
	instruction, ok := instructions[kind]
	if !ok {
		instruction = instructions[SummaryStandard]
	}

	prompt := fmt.Sprintf(`You are an expert at summarizing meetings.
%s

TRANSCRIPT:
%s

%s

Write in professional business language. Use past tense. Be objective.
Return ONLY the summary text, no title, no preamble.`, meta.header(), transcript, instruction)

	raw, err := a.gen.Generate(ctx, "You are an expert at summarizing meetings.", prompt)
	if err != nil {
		return "", fmt.Errorf("summarization: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// extractJSON strips markdown code fences and leading prose so a
// lenient model response still parses.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	objStart := strings.IndexAny(s, "{[")
	if objStart > 0 {
		s = s[objStart:]
	}
	return s
}
