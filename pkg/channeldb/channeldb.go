// Package channeldb stores channel ownership records in a SQLite database.
//
// It backs the ownership guard: every upload endpoint resolves the channel
// id embedded in an object key against this store before talking to the
// object store. The schema mirrors the platform's channel table, reduced to
// the columns the upload service needs.
package channeldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/castkit/uploadd/pkg/guard"
)

// DB provides read and write access to the channel table. It implements
// guard.ChannelStore.
type DB struct {
	db *sql.DB
}

var _ guard.ChannelStore = (*DB)(nil)

// Open opens (and creates, if necessary) the channel database at path.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("channeldb: path must not be empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("channeldb: open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS channels (
			id TEXT PRIMARY KEY,
			creator_id TEXT NOT NULL,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_channels_creator ON channels(creator_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("channeldb: init schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Create inserts a new channel record.
func (d *DB) Create(ctx context.Context, channel guard.Channel) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO channels (id, creator_id, type, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		channel.ID, channel.CreatorID, channel.Type, channel.Name, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("channeldb: create channel: %w", err)
	}
	return nil
}

// Lookup returns the channel with the given id, or (nil, nil) if no such
// channel exists.
func (d *DB) Lookup(ctx context.Context, id string) (*guard.Channel, error) {
	var channel guard.Channel
	err := d.db.QueryRowContext(ctx,
		`SELECT id, creator_id, type, name FROM channels WHERE id = ?`, id,
	).Scan(&channel.ID, &channel.CreatorID, &channel.Type, &channel.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("channeldb: lookup channel: %w", err)
	}
	return &channel, nil
}

// ListByCreator returns all channels owned by the given creator, ordered by
// creation time.
func (d *DB) ListByCreator(ctx context.Context, creatorID string) ([]guard.Channel, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, creator_id, type, name FROM channels WHERE creator_id = ? ORDER BY created_at ASC`,
		creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("channeldb: list channels: %w", err)
	}
	defer rows.Close()

	var channels []guard.Channel
	for rows.Next() {
		var channel guard.Channel
		if err := rows.Scan(&channel.ID, &channel.CreatorID, &channel.Type, &channel.Name); err != nil {
			return nil, fmt.Errorf("channeldb: scan channel: %w", err)
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("channeldb: list channels: %w", err)
	}
	return channels, nil
}
