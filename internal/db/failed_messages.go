package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusDead      = "dead"
)

const sqliteTime = "2006-01-02 15:04:05"

type FailedMessage struct {
	ID         string
	Persona    string
	WebhookURL string
	Kind       string
	Content    string
	Error      string
	RetryCount int
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RecordFailure queues an undelivered message and returns its ID.
func (d *DB) RecordFailure(ctx context.Context, persona, webhookURL, kind, content, errMsg string) (string, error) {
	id := uuid.NewString()
	_, err := d.conn.ExecContext(ctx,
		"INSERT INTO failed_messages (id, persona, webhook_url, kind, content, error) VALUES (?, ?, ?, ?, ?, ?)",
		id, persona, webhookURL, kind, content, errMsg,
	)
	if err != nil {
		return "", fmt.Errorf("recording failed message: %w", err)
	}
	return id, nil
}

// ListPending returns messages still waiting for redelivery, oldest first.
func (d *DB) ListPending(ctx context.Context) ([]FailedMessage, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, persona, webhook_url, kind, content, error, retry_count, status, created_at, updated_at
		 FROM failed_messages WHERE status = ? ORDER BY created_at ASC, rowid ASC`,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending messages: %w", err)
	}
	defer rows.Close()
	return scanFailedMessages(rows)
}

// GetFailedMessage looks up one message by ID.
func (d *DB) GetFailedMessage(ctx context.Context, id string) (*FailedMessage, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, persona, webhook_url, kind, content, error, retry_count, status, created_at, updated_at
		 FROM failed_messages WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting failed message: %w", err)
	}
	defer rows.Close()
	msgs, err := scanFailedMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("failed message %s not found", id)
	}
	return &msgs[0], nil
}

// MarkDelivered closes out a message after a successful retry.
func (d *DB) MarkDelivered(ctx context.Context, id string) error {
	res, err := d.conn.ExecContext(ctx,
		"UPDATE failed_messages SET status = ?, updated_at = datetime('now') WHERE id = ?",
		StatusDelivered, id,
	)
	if err != nil {
		return fmt.Errorf("marking message delivered: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed message %s not found", id)
	}
	return nil
}

// MarkRetryFailed records another failed attempt and replaces the stored
// content with unsent, the part that still has to go out. Once retry_count
// reaches maxRetries the message is marked dead and dead is true.
func (d *DB) MarkRetryFailed(ctx context.Context, id, unsent, errMsg string, maxRetries int) (bool, error) {
	var count int
	err := d.conn.QueryRowContext(ctx,
		`UPDATE failed_messages
		 SET retry_count = retry_count + 1,
		     content = ?,
		     error = ?,
		     status = CASE WHEN retry_count + 1 >= ? THEN 'dead' ELSE status END,
		     updated_at = datetime('now')
		 WHERE id = ? AND status = ?
		 RETURNING retry_count`,
		unsent, errMsg, maxRetries, id, StatusPending,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("pending message %s not found", id)
	}
	if err != nil {
		return false, fmt.Errorf("marking retry failed: %w", err)
	}
	return count >= maxRetries, nil
}

func scanFailedMessages(rows *sql.Rows) ([]FailedMessage, error) {
	var out []FailedMessage
	for rows.Next() {
		var m FailedMessage
		var created, updated string
		if err := rows.Scan(&m.ID, &m.Persona, &m.WebhookURL, &m.Kind, &m.Content, &m.Error,
			&m.RetryCount, &m.Status, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning failed message: %w", err)
		}
		m.CreatedAt, _ = time.ParseInLocation(sqliteTime, created, time.UTC)
		m.UpdatedAt, _ = time.ParseInLocation(sqliteTime, updated, time.UTC)
		out = append(out, m)
	}
	return out, rows.Err()
}
