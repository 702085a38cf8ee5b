// Package feedback is the sole accessor of the durable local feedback queue.
// Submission always tries the remote path first; anything a dispatch error
// can reach is absorbed into the queue so feedback is never lost and never
// blocks the user.
package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dominggo/ai-osp/internal/dispatch"
	"github.com/dominggo/ai-osp/internal/models"
)

const dbFile = ".aiosp/feedback.db"

const schema = `
CREATE TABLE IF NOT EXISTS feedback_queue (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	rating        INTEGER NOT NULL DEFAULT 0,
	comments      TEXT NOT NULL DEFAULT '',
	linked_result TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	enqueued_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Submitter is the remote submission path: one attempt, no retry. A failed
// attempt returns the classified dispatch error.
type Submitter func(ctx context.Context, rec models.FeedbackRecord) error

// Queue is the durable FIFO of feedback records that failed remote
// submission. Rows are ordered by autoincrement id, which is FIFO.
type Queue struct {
	conn *sql.DB
}

// Open opens (creating if needed) the queue database under baseDir.
func Open(baseDir string) (*Queue, error) {
	dbPath := filepath.Join(baseDir, dbFile)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open feedback db: %w", err)
	}

	// WAL for concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return newQueue(conn)
}

// newQueue wraps an open connection and ensures the schema exists.
func newQueue(conn *sql.DB) (*Queue, error) {
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create feedback schema: %w", err)
	}
	return &Queue{conn: conn}, nil
}

// Close closes the underlying database.
func (q *Queue) Close() error {
	return q.conn.Close()
}

// Submit attempts remote submission once. On success nothing is queued and
// stored is false. On any dispatch error the record is appended to the
// durable queue and stored is true; the caller reports "stored locally"
// success either way. Only a local storage failure surfaces as an error.
func (q *Queue) Submit(ctx context.Context, rec models.FeedbackRecord, submit Submitter) (stored bool, err error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	err = submit(ctx, rec)
	if err == nil {
		return false, nil
	}
	if _, ok := dispatch.AsError(err); !ok {
		return false, err
	}

	slog.Info("feedback submission failed, storing locally", "err", err)
	if err := q.enqueue(rec); err != nil {
		return false, err
	}
	return true, nil
}

func (q *Queue) enqueue(rec models.FeedbackRecord) error {
	_, err := q.conn.Exec(
		`INSERT INTO feedback_queue (rating, comments, linked_result, created_at) VALUES (?, ?, ?, ?)`,
		rec.Rating, rec.Comments, rec.LinkedResult, rec.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("enqueue feedback: %w", err)
	}
	return nil
}

// Flush walks the queue in FIFO order attempting remote submission for each
// record. A record that fails stays queued and processing continues; rows
// are removed only once delivered. Flushing an empty queue is a no-op.
func (q *Queue) Flush(ctx context.Context, submit Submitter) (sent, remaining int, err error) {
	rows, err := q.conn.Query(
		`SELECT id, rating, comments, linked_result, created_at FROM feedback_queue ORDER BY id ASC`)
	if err != nil {
		return 0, 0, fmt.Errorf("query feedback queue: %w", err)
	}

	type queued struct {
		id  int64
		rec models.FeedbackRecord
	}
	var pending []queued
	for rows.Next() {
		var (
			item  queued
			tsStr string
		)
		if err := rows.Scan(&item.id, &item.rec.Rating, &item.rec.Comments, &item.rec.LinkedResult, &tsStr); err != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("scan feedback row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, tsStr); err == nil {
			item.rec.Timestamp = ts
		}
		pending = append(pending, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, 0, fmt.Errorf("feedback rows: %w", err)
	}
	rows.Close()

	for _, item := range pending {
		if err := submit(ctx, item.rec); err != nil {
			slog.Debug("feedback flush: record still undeliverable", "id", item.id, "err", err)
			remaining++
			continue
		}
		if _, err := q.conn.Exec(`DELETE FROM feedback_queue WHERE id = ?`, item.id); err != nil {
			return sent, remaining + 1, fmt.Errorf("dequeue feedback %d: %w", item.id, err)
		}
		sent++
	}
	return sent, remaining, nil
}

// Len reports the number of queued records.
func (q *Queue) Len() (int, error) {
	var n int
	if err := q.conn.QueryRow(`SELECT COUNT(*) FROM feedback_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count feedback queue: %w", err)
	}
	return n, nil
}

// Pending returns the queued records in FIFO order without mutating the
// queue.
func (q *Queue) Pending() ([]models.FeedbackRecord, error) {
	rows, err := q.conn.Query(
		`SELECT rating, comments, linked_result, created_at FROM feedback_queue ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query feedback queue: %w", err)
	}
	defer rows.Close()

	var out []models.FeedbackRecord
	for rows.Next() {
		var (
			rec   models.FeedbackRecord
			tsStr string
		)
		if err := rows.Scan(&rec.Rating, &rec.Comments, &rec.LinkedResult, &tsStr); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, tsStr); err == nil {
			rec.Timestamp = ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
