// Package store persists meetings and action items in Postgres.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned for lookups and updates that match no row.
var ErrNotFound = errors.New("store: not found")

// Store wraps a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	dsn    string
	logger *slog.Logger
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, dsn: dsn, logger: logger}, nil
}

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations. Goose runs over
// database/sql, so a short-lived stdlib connection is opened alongside
// the pool.
func (s *Store) Migrate(ctx context.Context) error {
	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	s.logger.Info("database migrations applied")
	return nil
}

const meetingColumns = `id, title, description, audio_object_key, duration_seconds,
	status, transcript, summary, key_topics, sentiment_score, participants,
	meeting_date, created_at, updated_at, processing_time_seconds, error_message`

func scanMeeting(row pgx.Row) (Meeting, error) {
	var m Meeting
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.AudioObjectKey, &m.DurationSeconds,
		&m.Status, &m.Transcript, &m.Summary, &m.KeyTopics, &m.SentimentScore,
		&m.Participants, &m.MeetingDate, &m.CreatedAt, &m.UpdatedAt,
		&m.ProcessingTimeSeconds, &m.ErrorMessage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Meeting{}, ErrNotFound
	}
	return m, err
}

// CreateMeeting inserts a meeting and returns it with generated fields.
func (s *Store) CreateMeeting(ctx context.Context, nm NewMeeting) (Meeting, error) {
	status := nm.Status
	if status == "" {
		status = MeetingUploading
	}
	meetingDate := nm.MeetingDate
	if meetingDate.IsZero() {
		meetingDate = time.Now().UTC()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO meetings (title, description, audio_object_key, participants, meeting_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+meetingColumns,
		nm.Title, nm.Description, nm.AudioObjectKey, nm.Participants, meetingDate, status,
	)
	return scanMeeting(row)
}

// GetMeeting returns one meeting with its action items.
func (s *Store) GetMeeting(ctx context.Context, id int64) (Meeting, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
	m, err := scanMeeting(row)
	if err != nil {
		return Meeting{}, err
	}
	items, err := s.ListActionItems(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	m.ActionItems = items
	return m, nil
}

// ListMeetings returns meetings newest-first, optionally filtered by
// status, with the total count for pagination.
func (s *Store) ListMeetings(ctx context.Context, status MeetingStatus, limit, offset int) ([]Meeting, int, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var (
		where string
		args  []any
	)
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM meetings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// SearchMeetings matches the query against title and description.
func (s *Store) SearchMeetings(ctx context.Context, query string, limit int) ([]Meeting, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+meetingColumns+` FROM meetings
		WHERE title ILIKE $1 OR description ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMeeting applies the non-nil fields of upd.
func (s *Store) UpdateMeeting(ctx context.Context, id int64, upd MeetingUpdate) (Meeting, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.MeetingDate != nil {
		add("meeting_date", *upd.MeetingDate)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE meetings SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+meetingColumns, args...)
	return scanMeeting(row)
}

// DeleteMeeting removes a meeting; action items cascade.
func (s *Store) DeleteMeeting(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMeetingStatus moves a meeting through its processing lifecycle. An
// empty errMsg clears any previous failure message.
func (s *Store) SetMeetingStatus(ctx context.Context, id int64, status MeetingStatus, errMsg string) error {
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE meetings SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1`, id, status, msg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAnalysisResults writes the batch pipeline output and marks the
// meeting completed, replacing any previously extracted action items.
func (s *Store) SaveAnalysisResults(ctx context.Context, id int64, res AnalysisResults) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE meetings SET
			status = $2,
			transcript = $3,
			summary = $4,
			key_topics = $5,
			sentiment_score = $6,
			duration_seconds = $7,
			processing_time_seconds = $8,
			error_message = NULL,
			updated_at = now()
		WHERE id = $1`,
		id, MeetingCompleted, res.Transcript, res.Summary, res.KeyTopics,
		res.SentimentScore, res.DurationSeconds, res.ProcessingTimeSeconds,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM action_items WHERE meeting_id = $1`, id); err != nil {
		return err
	}
	for _, item := range res.ActionItems {
		priority := item.Priority
		if !priority.Valid() {
			priority = PriorityMedium
		}
		status := item.Status
		if !status.Valid() {
			status = ActionPending
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO action_items
				(meeting_id, title, description, assigned_to, due_date, priority, status, transcript_snippet, confidence_score)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, item.Title, item.Description, item.AssignedTo, item.DueDate,
			priority, status, item.TranscriptSnippet, item.ConfidenceScore,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListActionItems returns a meeting's action items, oldest first.
func (s *Store) ListActionItems(ctx context.Context, meetingID int64) ([]ActionItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, meeting_id, title, description, assigned_to, due_date,
			priority, status, transcript_snippet, confidence_score, created_at, completed_at
		FROM action_items
		WHERE meeting_id = $1
		ORDER BY id`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionItem
	for rows.Next() {
		var it ActionItem
		if err := rows.Scan(
			&it.ID, &it.MeetingID, &it.Title, &it.Description, &it.AssignedTo,
			&it.DueDate, &it.Priority, &it.Status, &it.TranscriptSnippet,
			&it.ConfidenceScore, &it.CreatedAt, &it.CompletedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateActionItemStatus moves one action item; completing it stamps
// completed_at.
func (s *Store) UpdateActionItemStatus(ctx context.Context, id int64, status ActionItemStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid action item status %q", status)
	}
	var completedAt *time.Time
	if status == ActionCompleted {
		now := time.Now().UTC()
		completedAt = &now
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE action_items SET status = $2, completed_at = $3
		WHERE id = $1`, id, status, completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateLiveMeeting opens a meeting record for a live transcription
// session.
func (s *Store) CreateLiveMeeting(ctx context.Context, title string, participants []string) (int64, error) {
	m, err := s.CreateMeeting(ctx, NewMeeting{
		Title:        title,
		Participants: participants,
		Status:       MeetingProcessing,
	})
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

// FinalizeLiveMeeting stores the live transcript and completes the
// meeting.
func (s *Store) FinalizeLiveMeeting(ctx context.Context, meetingID int64, transcript string, durationSeconds float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE meetings SET
			status = $2,
			transcript = $3,
			duration_seconds = $4,
			updated_at = now()
		WHERE id = $1`, meetingID, MeetingCompleted, transcript, durationSeconds)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
