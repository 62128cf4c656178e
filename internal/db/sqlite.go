package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/live-subtitle/backend/internal/notify"
	"github.com/live-subtitle/backend/internal/protocol"
)

type Database struct {
	db *sqlx.DB
}

func NewSQLite(path string) (*Database, error) {
	sqlDB, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	d := &Database{db: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		label TEXT NOT NULL DEFAULT '',
		file_path TEXT NOT NULL,
		params TEXT NOT NULL,
		progress REAL DEFAULT 0,
		result TEXT,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		started_at DATETIME,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		status TEXT NOT NULL,
		filename TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
	`
	_, err := d.db.Exec(schema)
	return err
}

// GetSetting returns a setting value by key, or defaultVal if not found
func (d *Database) GetSetting(key, defaultVal string) string {
	var val string
	if err := d.db.Get(&val, "SELECT value FROM settings WHERE key = ?", key); err != nil {
		return defaultVal
	}
	return val
}

// SetSetting upserts a setting
func (d *Database) SetSetting(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP`,
		key, value, value,
	)
	return err
}

// GetAllSettings returns all settings as a map
func (d *Database) GetAllSettings() (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := d.db.Select(&rows, "SELECT key, value FROM settings"); err != nil {
		return nil, err
	}
	result := make(map[string]string, len(rows))
	for _, r := range rows {
		result[r.Key] = r.Value
	}
	return result, nil
}

const (
	keyTargetLanguage  = "capture_target_language"
	keyShowOriginal    = "capture_show_original"
	keyCensorProfanity = "capture_censor_profanity"
)

// LoadCaptureSettings returns the saved capture settings on top of the
// defaults.
func (d *Database) LoadCaptureSettings(ctx context.Context) protocol.Settings {
	s := protocol.DefaultSettings()
	if v := d.GetSetting(keyTargetLanguage, ""); v != "" {
		s.TargetLanguage = v
	}
	if b, err := strconv.ParseBool(d.GetSetting(keyShowOriginal, "")); err == nil {
		s.ShowOriginal = b
	}
	if b, err := strconv.ParseBool(d.GetSetting(keyCensorProfanity, "")); err == nil {
		s.CensorProfanity = b
	}
	return s
}

// SaveCaptureSettings stores all capture settings in one transaction
func (d *Database) SaveCaptureSettings(ctx context.Context, s protocol.Settings) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	for k, v := range map[string]string{
		keyTargetLanguage:  s.TargetLanguage,
		keyShowOriginal:    strconv.FormatBool(s.ShowOriginal),
		keyCensorProfanity: strconv.FormatBool(s.CensorProfanity),
	} {
		if _, err := tx.ExecContext(ctx, upsert, k, v); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// AddJobNotification records the outcome of a job for GET /api/notifications
func (d *Database) AddJobNotification(ctx context.Context, jobID, status, filename, message string) error {
	now := time.Now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()

	name := filename
	if name == "" {
		name = "Your file"
	}
	switch status {
	case "Completed":
		message = fmt.Sprintf("%q has been transcribed successfully", name)
	case "Failed":
		if message == "" {
			message = "Unknown error"
		}
		message = fmt.Sprintf("%q failed to transcribe: %s", name, message)
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO notifications (id, job_id, status, filename, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		id, jobID, status, filename, message, now,
	)
	return err
}

// ListNotifications returns every notification, newest first. Rows written
// at the same instant come back in reverse insertion order.
func (d *Database) ListNotifications(ctx context.Context) ([]notify.Record, error) {
	records := []notify.Record{}
	err := d.db.SelectContext(ctx, &records, `
		SELECT id, job_id, status, filename, message, is_read, created_at
		FROM notifications ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// MarkAllNotificationsRead flags every notification read and returns how
// many changed.
func (d *Database) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE is_read = 0")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying sql.DB for use by other packages (e.g., job queue)
func (d *Database) DB() *sql.DB {
	return d.db.DB
}

// NotificationStore exposes the notification table as a notify.Store
func (d *Database) NotificationStore() notify.Store {
	return notificationStore{d}
}

type notificationStore struct {
	d *Database
}

func (s notificationStore) List(ctx context.Context) ([]notify.Record, error) {
	return s.d.ListNotifications(ctx)
}

func (s notificationStore) MarkAllRead(ctx context.Context) error {
	_, err := s.d.MarkAllNotificationsRead(ctx)
	return err
}
