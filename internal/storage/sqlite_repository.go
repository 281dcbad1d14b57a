package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteTimeLayout is fixed width so stored UTC times sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	// The TUI and a CLI sync may hold the same file open.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// OpenSQLite opens path, applies migrations and returns a ready repository.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) LoadStateBlob(ctx context.Context, key string) (StateBlob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT key, data, updated_at FROM app_state WHERE key = ?`, key)
	var out StateBlob
	var updated string
	if err := row.Scan(&out.Key, &out.Data, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StateBlob{}, ErrNotFound
		}
		return StateBlob{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return StateBlob{}, err
	}
	out.UpdatedAt = updatedAt
	return out, nil
}

func (r *SQLiteRepository) SaveStateBlob(ctx context.Context, in StateBlob) error {
	if strings.TrimSpace(in.Key) == "" {
		return errors.New("storage: empty state key")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_state (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		in.Key, in.Data, mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) CreateReminder(ctx context.Context, in Reminder) error {
	taskIDs, err := encodeTaskIDs(in.TaskIDs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scheduled_reminders (id, category, kind, title, body, task_ids, trigger_time, repeating, hour, minute, last_fired_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Category, in.Kind, in.Title, in.Body, taskIDs, nullTime(in.TriggerAt),
		boolInt(in.Repeating), in.Hour, in.Minute, nullTime(in.LastFired), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, id string) (Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, category, kind, title, body, task_ids, trigger_time, repeating, hour, minute, last_fired_at, created_at
		FROM scheduled_reminders WHERE id = ?`, id)
	item, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reminder{}, ErrNotFound
		}
		return Reminder{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) MarkReminderFired(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_reminders SET last_fired_at = ? WHERE id = ?`, mustTime(at), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// ListReminders returns repeating reminders first, then one-shots by trigger
// time.
func (r *SQLiteRepository) ListReminders(ctx context.Context, filter ReminderListFilter) ([]Reminder, error) {
	query := `SELECT id, category, kind, title, body, task_ids, trigger_time, repeating, hour, minute, last_fired_at, created_at FROM scheduled_reminders`
	args := make([]any, 0, 3)
	if filter.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY repeating DESC, trigger_time ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Reminder, 0)
	for rows.Next() {
		item, scanErr := scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// PruneExpiredReminders deletes one-shot rows whose trigger time is before
// cutoff and returns how many went.
func (r *SQLiteRepository) PruneExpiredReminders(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM scheduled_reminders WHERE repeating = 0 AND trigger_time IS NOT NULL AND trigger_time < ?`,
		mustTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func encodeTaskIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode task ids: %w", err)
	}
	return string(raw), nil
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(s scanner) (Reminder, error) {
	var out Reminder
	var taskIDs string
	var trigger sql.NullString
	var repeating int
	var fired sql.NullString
	var created string
	if err := s.Scan(&out.ID, &out.Category, &out.Kind, &out.Title, &out.Body, &taskIDs, &trigger, &repeating, &out.Hour, &out.Minute, &fired, &created); err != nil {
		return Reminder{}, err
	}
	if err := json.Unmarshal([]byte(taskIDs), &out.TaskIDs); err != nil {
		return Reminder{}, fmt.Errorf("decode task ids: %w", err)
	}
	triggerAt, err := parseNullableTime(trigger)
	if err != nil {
		return Reminder{}, err
	}
	lastFired, err := parseNullableTime(fired)
	if err != nil {
		return Reminder{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Reminder{}, err
	}
	out.TriggerAt = triggerAt
	out.Repeating = repeating == 1
	out.LastFired = lastFired
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
