// Package journal records consumed slots, for later audit, in a SQLite
// database.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joeycumines/go-pingpong/consumer"
	"github.com/joeycumines/go-pingpong/pingpong"
)

const schema = `
CREATE TABLE IF NOT EXISTS hand_offs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session    INTEGER NOT NULL,
	seq        INTEGER NOT NULL,
	slot       INTEGER NOT NULL,
	size       INTEGER NOT NULL,
	digest     BLOB    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS hand_offs_session_seq ON hand_offs (session, seq);
`

// Entry is one recorded slot.
type Entry struct {
	Time    time.Time
	Digest  []byte
	Session uint64
	Seq     uint64
	Slot    pingpong.SlotID
	Size    int
}

// Journal is a handle to the database. Use Open to construct.
type Journal struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Open opens (or creates) the journal at the given path, which is passed to
// the sqlite3 driver as-is, e.g. ":memory:" is valid.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	// each connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Join(fmt.Errorf("journal: create schema: %w", err), db.Close())
	}

	insert, err := db.PrepareContext(ctx, `INSERT INTO hand_offs (session, seq, slot, size, digest, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("journal: prepare: %w", err), db.Close())
	}

	return &Journal{db: db, insert: insert}, nil
}

// Record inserts an entry for a consumed slot. The data is only read, to
// compute its digest.
func (x *Journal) Record(ctx context.Context, session uint64, info pingpong.SlotInfo, data []byte) (Entry, error) {
	digest := consumer.Digest(data)
	e := Entry{
		Time:    time.Now().UTC(),
		Digest:  digest[:],
		Session: session,
		Seq:     info.Seq,
		Slot:    info.ID,
		Size:    len(data),
	}
	if _, err := x.insert.ExecContext(ctx, int64(e.Session), int64(e.Seq), int(e.Slot), e.Size, e.Digest, e.Time.UnixNano()); err != nil {
		return Entry{}, fmt.Errorf("journal: record: %w", err)
	}
	return e, nil
}

// Recent returns up to n entries, most recent first.
func (x *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT session, seq, slot, size, digest, created_at FROM hand_offs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                       Entry
			session, seq, createdAt int64
			slot                    int
		)
		if err := rows.Scan(&session, &seq, &slot, &e.Size, &e.Digest, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Session = uint64(session)
		e.Seq = uint64(seq)
		e.Slot = pingpong.SlotID(slot)
		e.Time = time.Unix(0, createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	return entries, nil
}

// Handler returns a consumer.Handler that records each slot, for the given
// session id.
func (x *Journal) Handler(ctx context.Context, session uint64) consumer.Handler {
	return func(info pingpong.SlotInfo, data []byte) error {
		_, err := x.Record(ctx, session, info, data)
		return err
	}
}

// Close closes the database.
func (x *Journal) Close() error {
	return errors.Join(x.insert.Close(), x.db.Close())
}
