package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBTX is the subset of *sql.DB used by Queries.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries provides typed access to the reply ledger.
type Queries struct {
	db DBTX
}

// New creates a Queries instance.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Reply is one recorded reply, keyed by the platform content id.
type Reply struct {
	ContentID string
	Author    string
	BodyText  string
	ReplyText string
	RepliedAt time.Time
}

// HasReplied reports whether a reply has already been recorded for contentID.
func (q *Queries) HasReplied(ctx context.Context, contentID string) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx,
		"SELECT 1 FROM replies WHERE content_id = ?", contentID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query reply: %w", err)
	}
	return true, nil
}

// MarkRepliedParams holds the values for MarkReplied.
type MarkRepliedParams struct {
	ContentID string
	Author    string
	BodyText  string
	ReplyText string
}

// MarkReplied records a successful reply. The upsert keeps re-runs safe: a
// second call with the same content id overwrites rather than duplicating.
func (q *Queries) MarkReplied(ctx context.Context, params MarkRepliedParams) error {
	author := params.Author
	if author == "" {
		author = "unknown"
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO replies (content_id, author, body_text, reply_text, replied_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_id) DO UPDATE SET
			author = excluded.author,
			body_text = excluded.body_text,
			reply_text = excluded.reply_text,
			replied_at = excluded.replied_at
	`, params.ContentID, author, params.BodyText, params.ReplyText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark replied: %w", err)
	}
	return nil
}

// CountReplies returns the total number of recorded replies.
func (q *Queries) CountReplies(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM replies").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count replies: %w", err)
	}
	return count, nil
}

// RecentReplies returns the most recent replies, newest first.
func (q *Queries) RecentReplies(ctx context.Context, limit int64) ([]Reply, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT content_id, author, body_text, reply_text, replied_at
		FROM replies
		ORDER BY replied_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent replies: %w", err)
	}
	defer rows.Close()

	var replies []Reply
	for rows.Next() {
		var r Reply
		if err := rows.Scan(&r.ContentID, &r.Author, &r.BodyText, &r.ReplyText, &r.RepliedAt); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		replies = append(replies, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replies: %w", err)
	}

	return replies, nil
}
