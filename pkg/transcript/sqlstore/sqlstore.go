// Package sqlstore implements transcript.Driver on database/sql. The SQLite
// and PostgreSQL drivers wrap it, and queries are built with ent's dialect
// aware SQL builder so placeholders and quoting follow the backend.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/papercomputeco/studybuddy/pkg/transcript"
)

const table = "turns"

var columns = []string{
	"id",
	"session_id",
	"document_id",
	"persona",
	"web_search",
	"question",
	"reply",
	"citations",
	"failed",
	"started_at",
	"completed_at",
}

// schema is portable across SQLite and PostgreSQL. Timestamps are unix
// milliseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL DEFAULT '',
		document_id TEXT NOT NULL DEFAULT '',
		persona TEXT NOT NULL DEFAULT '',
		web_search BOOLEAN NOT NULL DEFAULT FALSE,
		question TEXT NOT NULL,
		reply TEXT NOT NULL,
		citations TEXT NOT NULL DEFAULT '',
		failed BOOLEAN NOT NULL DEFAULT FALSE,
		started_at BIGINT NOT NULL,
		completed_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS turns_session_id_idx ON turns (session_id)`,
	`CREATE INDEX IF NOT EXISTS turns_document_id_idx ON turns (document_id)`,
}

// Store is a SQL-backed transcript store.
type Store struct {
	db      *sql.DB
	dialect string
}

// New wraps db and creates the schema if needed. dialect is one of the
// entgo.io/ent/dialect names.
func New(ctx context.Context, db *sql.DB, dialect string) (*Store, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Store{db: db, dialect: dialect}, nil
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Put stores turn, replacing any stored turn with the same ID.
func (s *Store) Put(ctx context.Context, turn *transcript.Turn) error {
	if turn == nil {
		return errors.New("cannot store nil turn")
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}

	citations := ""
	if turn.Citations != nil {
		b, err := json.Marshal(turn.Citations)
		if err != nil {
			return fmt.Errorf("encoding citations: %w", err)
		}
		citations = string(b)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	delQuery, delArgs := entsql.Dialect(s.dialect).
		Delete(table).
		Where(entsql.EQ("id", turn.ID)).
		Query()
	if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		return fmt.Errorf("replacing turn %s: %w", turn.ID, err)
	}

	insQuery, insArgs := entsql.Dialect(s.dialect).
		Insert(table).
		Columns(columns...).
		Values(
			turn.ID,
			turn.SessionID,
			turn.DocumentID,
			turn.Persona,
			turn.WebSearch,
			turn.Question,
			turn.Reply,
			citations,
			turn.Failed,
			turn.StartedAt.UnixMilli(),
			turn.CompletedAt.UnixMilli(),
		).
		Query()
	if _, err := tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
		return fmt.Errorf("inserting turn %s: %w", turn.ID, err)
	}

	return tx.Commit()
}

// Get retrieves a turn by its ID.
func (s *Store) Get(ctx context.Context, id string) (*transcript.Turn, error) {
	turns, err := s.query(ctx, entsql.EQ("id", id), 1)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, transcript.NotFoundError{ID: id}
	}
	return turns[0], nil
}

// List returns turns matching filter, most recent first.
func (s *Store) List(ctx context.Context, filter transcript.Filter) ([]*transcript.Turn, error) {
	var preds []*entsql.Predicate
	if filter.SessionID != "" {
		preds = append(preds, entsql.EQ("session_id", filter.SessionID))
	}
	if filter.DocumentID != "" {
		preds = append(preds, entsql.EQ("document_id", filter.DocumentID))
	}

	var where *entsql.Predicate
	switch len(preds) {
	case 0:
	case 1:
		where = preds[0]
	default:
		where = entsql.And(preds...)
	}

	return s.query(ctx, where, filter.Limit)
}

// Sessions summarizes archived turns per session.
func (s *Store) Sessions(ctx context.Context) ([]transcript.SessionSummary, error) {
	turns, err := s.query(ctx, entsql.NEQ("session_id", ""), 0)
	if err != nil {
		return nil, err
	}
	return transcript.Summarize(turns), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) query(ctx context.Context, where *entsql.Predicate, limit int) ([]*transcript.Turn, error) {
	sel := entsql.Dialect(s.dialect).
		Select(columns...).
		From(entsql.Table(table)).
		OrderBy(entsql.Desc("started_at"), entsql.Desc("id"))
	if where != nil {
		sel.Where(where)
	}
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var out []*transcript.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}
	return out, nil
}

func scanTurn(rows *sql.Rows) (*transcript.Turn, error) {
	var (
		t                    transcript.Turn
		citations            string
		startedAt, completed int64
	)
	err := rows.Scan(
		&t.ID,
		&t.SessionID,
		&t.DocumentID,
		&t.Persona,
		&t.WebSearch,
		&t.Question,
		&t.Reply,
		&citations,
		&t.Failed,
		&startedAt,
		&completed,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning turn: %w", err)
	}

	if citations != "" {
		if err := json.Unmarshal([]byte(citations), &t.Citations); err != nil {
			return nil, fmt.Errorf("decoding citations for turn %s: %w", t.ID, err)
		}
	}
	t.StartedAt = time.UnixMilli(startedAt).UTC()
	t.CompletedAt = time.UnixMilli(completed).UTC()
	return &t, nil
}
