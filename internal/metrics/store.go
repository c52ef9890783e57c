package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RemoteCall records one call against a remote table.
type RemoteCall struct {
	Backend   string
	Table     string
	Operation string
	Latency   time.Duration
	Err       error
	Timestamp time.Time
}

// Store handles persistence of remote-call metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a call to the database.
func (s *Store) Record(ctx context.Context, c RemoteCall) error {
	ts := c.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var errText sql.NullString
	if c.Err != nil {
		errText = sql.NullString{String: c.Err.Error(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO remote_calls (backend, table_name, operation, latency_ms, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Backend, c.Table, c.Operation, c.Latency.Milliseconds(), errText, ts.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record remote call: %w", err)
	}
	return nil
}

const timeLayout = "2006-01-02 15:04:05"

// DailyActivity is the remote-call totals of a single day.
type DailyActivity struct {
	Date         string
	Calls        int
	Failures     int
	AvgLatencyMS float64
}

// GetDailyActivity retrieves activity for the last N days, newest first.
func (s *Store) GetDailyActivity(ctx context.Context, days int) ([]DailyActivity, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day,
		       COUNT(*),
		       SUM(CASE WHEN error IS NULL THEN 0 ELSE 1 END),
		       AVG(latency_ms)
		FROM remote_calls
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily activity: %w", err)
	}
	defer rows.Close()

	var results []DailyActivity
	for rows.Next() {
		var (
			a   DailyActivity
			avg sql.NullFloat64
		)
		if err := rows.Scan(&a.Date, &a.Calls, &a.Failures, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan daily activity: %w", err)
		}
		a.AvgLatencyMS = avg.Float64
		results = append(results, a)
	}
	return results, rows.Err()
}

// RecentFailures returns the latest failed calls, newest first.
func (s *Store) RecentFailures(ctx context.Context, limit int) ([]RemoteCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT backend, table_name, operation, latency_ms, error, timestamp
		FROM remote_calls
		WHERE error IS NOT NULL
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var out []RemoteCall
	for rows.Next() {
		var (
			c       RemoteCall
			latency int64
			errText string
			ts      string
		)
		if err := rows.Scan(&c.Backend, &c.Table, &c.Operation, &latency, &errText, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		c.Latency = time.Duration(latency) * time.Millisecond
		c.Err = errors.New(errText)
		c.Timestamp, _ = time.Parse(timeLayout, ts)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM remote_calls WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up remote calls: %w", err)
	}
	return res.RowsAffected()
}
