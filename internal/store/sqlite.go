package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/smart-inbox/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveJudgement stores the latest judgement for an email, replacing any
// earlier one.
func (s *SQLiteStore) SaveJudgement(ctx context.Context, email model.EmailMessage, j model.Judgement) error {
	const query = `
		INSERT OR REPLACE INTO judgements (
			message_id, thread_id, sender, subject,
			action, priority, reason, summary, reply,
			date, start_time, end_time, classified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		email.ID, email.ThreadID, email.From, email.Subject,
		string(j.Action), string(j.Priority), j.Reason, j.Summary, j.Reply,
		j.Date, j.StartTime, j.EndTime, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving judgement %s: %w", email.ID, err)
	}
	return nil
}

// LookupJudgement returns the stored judgement for messageID and whether
// one exists.
func (s *SQLiteStore) LookupJudgement(ctx context.Context, messageID string) (model.Judgement, bool, error) {
	row := s.db.QueryRowxContext(ctx, judgementSelect+" WHERE message_id = ?", messageID)
	rec, err := scanJudgement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Judgement{}, false, nil
	}
	if err != nil {
		return model.Judgement{}, false, fmt.Errorf("looking up judgement %s: %w", messageID, err)
	}
	return rec.Judgement, true, nil
}

// ListJudgements returns judgements, most recent first.
func (s *SQLiteStore) ListJudgements(ctx context.Context, filter JudgementFilter) ([]JudgementRecord, error) {
	var conditions []string
	var args []interface{}

	if filter.Action != nil {
		conditions = append(conditions, "action = ?")
		args = append(args, string(*filter.Action))
	}

	query := judgementSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY classified_at DESC, message_id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying judgements: %w", err)
	}
	defer rows.Close()

	var out []JudgementRecord
	for rows.Next() {
		rec, err := scanJudgement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const judgementSelect = `
	SELECT message_id, thread_id, sender, subject,
		action, priority, reason, summary, reply,
		date, start_time, end_time, classified_at
	FROM judgements`

// rowScanner is satisfied by both *sqlx.Row and *sqlx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJudgement(row rowScanner) (JudgementRecord, error) {
	var (
		rec      JudgementRecord
		action   string
		priority string
	)

	err := row.Scan(
		&rec.MessageID, &rec.ThreadID, &rec.From, &rec.Subject,
		&action, &priority, &rec.Judgement.Reason, &rec.Judgement.Summary, &rec.Judgement.Reply,
		&rec.Judgement.Date, &rec.Judgement.StartTime, &rec.Judgement.EndTime, &rec.ClassifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return JudgementRecord{}, err
	}
	if err != nil {
		return JudgementRecord{}, fmt.Errorf("scanning judgement row: %w", err)
	}

	rec.Judgement.Action = model.Action(action)
	rec.Judgement.Priority = model.Priority(priority)
	return rec, nil
}

// SaveBooking records a booked meeting. Results that booked nothing are
// ignored.
func (s *SQLiteStore) SaveBooking(ctx context.Context, messageID string, res model.BookingResult) error {
	if !res.Booked() {
		return nil
	}

	conflicts, err := json.Marshal(nonNil(res.ConflictingEvents))
	if err != nil {
		return fmt.Errorf("marshaling conflicts for %s: %w", messageID, err)
	}

	const query = `
		INSERT INTO bookings (
			id, message_id, event_id, meeting_link,
			has_conflict, conflicts, original_time,
			scheduled_time, scheduled_end, datetime_full, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		uuid.New().String(), messageID, res.EventID, res.MeetingLink,
		boolToInt(res.HasConflict), string(conflicts), res.OriginalTime,
		res.ScheduledTime, res.ScheduledEnd, res.DateTimeFull, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving booking for %s: %w", messageID, err)
	}
	return nil
}

// ListBookings returns bookings oldest first. An empty messageID lists all.
func (s *SQLiteStore) ListBookings(ctx context.Context, messageID string) ([]BookingRecord, error) {
	query := `
		SELECT id, message_id, event_id, meeting_link,
			has_conflict, conflicts, original_time,
			scheduled_time, scheduled_end, datetime_full, created_at
		FROM bookings`
	var args []interface{}
	if messageID != "" {
		query += " WHERE message_id = ?"
		args = append(args, messageID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var out []BookingRecord
	for rows.Next() {
		var (
			rec         BookingRecord
			hasConflict int
			conflicts   string
		)
		err := rows.Scan(
			&rec.ID, &rec.MessageID, &rec.Result.EventID, &rec.Result.MeetingLink,
			&hasConflict, &conflicts, &rec.Result.OriginalTime,
			&rec.Result.ScheduledTime, &rec.Result.ScheduledEnd, &rec.Result.DateTimeFull, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning booking row: %w", err)
		}
		rec.Result.HasConflict = hasConflict != 0
		if err := json.Unmarshal([]byte(conflicts), &rec.Result.ConflictingEvents); err != nil {
			return nil, fmt.Errorf("unmarshaling conflicts for booking %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PutPending inserts or replaces the pending conflict for p.MessageID. The
// original creation time is kept on replace.
func (s *SQLiteStore) PutPending(ctx context.Context, p model.PendingConflict) error {
	email, err := json.Marshal(p.Email)
	if err != nil {
		return fmt.Errorf("marshaling email for %s: %w", p.MessageID, err)
	}
	conflicts, err := json.Marshal(nonNil(p.ConflictingEvents))
	if err != nil {
		return fmt.Errorf("marshaling conflicts for %s: %w", p.MessageID, err)
	}

	now := s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	const query = `
		INSERT INTO pending_conflicts (
			message_id, email_json, requested_time, conflicts,
			next_start, next_end, next_date, next_time,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			email_json = excluded.email_json,
			requested_time = excluded.requested_time,
			conflicts = excluded.conflicts,
			next_start = excluded.next_start,
			next_end = excluded.next_end,
			next_date = excluded.next_date,
			next_time = excluded.next_time,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		p.MessageID, string(email), p.RequestedTime, string(conflicts),
		p.NextStart.UTC(), p.NextEnd.UTC(), p.NextDate, p.NextTime,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting pending conflict %s: %w", p.MessageID, err)
	}
	return nil
}

const pendingSelect = `
	SELECT message_id, email_json, requested_time, conflicts,
		next_start, next_end, next_date, next_time,
		created_at, updated_at
	FROM pending_conflicts`

// GetPending returns the pending conflict for messageID, or an error
// wrapping model.ErrNoPending.
func (s *SQLiteStore) GetPending(ctx context.Context, messageID string) (*model.PendingConflict, error) {
	row := s.db.QueryRowxContext(ctx, pendingSelect+" WHERE message_id = ?", messageID)
	p, err := scanPending(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending conflict %s: %w", messageID, model.ErrNoPending)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePending removes the pending conflict for messageID, if any.
func (s *SQLiteStore) DeletePending(ctx context.Context, messageID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM pending_conflicts WHERE message_id = ?", messageID); err != nil {
		return fmt.Errorf("deleting pending conflict %s: %w", messageID, err)
	}
	return nil
}

// ListPending returns pending conflicts oldest first.
func (s *SQLiteStore) ListPending(ctx context.Context) ([]model.PendingConflict, error) {
	rows, err := s.db.QueryxContext(ctx, pendingSelect+" ORDER BY created_at, message_id")
	if err != nil {
		return nil, fmt.Errorf("querying pending conflicts: %w", err)
	}
	defer rows.Close()

	out := []model.PendingConflict{}
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPending(row rowScanner) (model.PendingConflict, error) {
	var (
		p         model.PendingConflict
		email     string
		conflicts string
	)

	err := row.Scan(
		&p.MessageID, &email, &p.RequestedTime, &conflicts,
		&p.NextStart, &p.NextEnd, &p.NextDate, &p.NextTime,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PendingConflict{}, err
	}
	if err != nil {
		return model.PendingConflict{}, fmt.Errorf("scanning pending conflict row: %w", err)
	}

	if err := json.Unmarshal([]byte(email), &p.Email); err != nil {
		return model.PendingConflict{}, fmt.Errorf("unmarshaling email for %s: %w", p.MessageID, err)
	}
	if err := json.Unmarshal([]byte(conflicts), &p.ConflictingEvents); err != nil {
		return model.PendingConflict{}, fmt.Errorf("unmarshaling conflicts for %s: %w", p.MessageID, err)
	}
	p.NextStart = p.NextStart.UTC()
	p.NextEnd = p.NextEnd.UTC()
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
