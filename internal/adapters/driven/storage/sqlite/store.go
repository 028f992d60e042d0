// Package sqlite is the authoritative relational store: posts, comments,
// the watermark and the vector-pending bookkeeping, all in a single
// SQLite database with embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/meridian-labs/gramsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage providing the relational and
// watermark store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.gramsync/data/gramsync.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".gramsync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "gramsync.db")

	// WAL mode lets the scheduler and a manual run read concurrently.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RelationalStore returns a RelationalStore interface backed by this store.
func (s *Store) RelationalStore() driven.RelationalStore {
	return &relationalStore{store: s}
}

// WatermarkStore returns a WatermarkStore interface backed by this store.
func (s *Store) WatermarkStore() driven.WatermarkStore {
	return &watermarkStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Relational Store ====================

// relationalStore implements driven.RelationalStore.
type relationalStore struct {
	store *Store
}

var _ driven.RelationalStore = (*relationalStore)(nil)

// UpsertPosts inserts or updates posts. Engagement counters are
// refreshed on update; the vector_pending flag is left alone.
func (s *relationalStore) UpsertPosts(ctx context.Context, posts []domain.Post) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts (id, caption, media_type, media_url, permalink, timestamp, like_count, comment_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			caption = excluded.caption,
			media_type = excluded.media_type,
			media_url = excluded.media_url,
			permalink = excluded.permalink,
			timestamp = excluded.timestamp,
			like_count = excluded.like_count,
			comment_count = excluded.comment_count
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range posts {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Caption, p.MediaType, p.MediaURL,
			p.Permalink, p.Timestamp.UTC(), p.LikeCount, p.CommentCount); err != nil {
			return fmt.Errorf("upserting post %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// UpsertComments inserts or updates comments. The replied flag is not in
// the update set: it belongs to the downstream consumer and survives
// re-syncs.
func (s *relationalStore) UpsertComments(ctx context.Context, comments []domain.Comment) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO comments (id, post_id, parent_comment_id, text, username, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			post_id = excluded.post_id,
			parent_comment_id = excluded.parent_comment_id,
			text = excluded.text,
			username = excluded.username,
			timestamp = excluded.timestamp
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range comments {
		if _, err := stmt.ExecContext(ctx, c.ID, c.PostID, c.ParentCommentID,
			c.Text, c.Username, c.Timestamp.UTC()); err != nil {
			return fmt.Errorf("upserting comment %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetMetadata reads a pipeline metadata value.
func (s *relationalStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT value FROM sync_metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMetadata upserts a pipeline metadata value.
func (s *relationalStore) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("setting metadata %s: %w", key, err)
	}
	return nil
}

// MarkVectorPending flags a record for reconciliation. The ID may name a
// post or a comment; both tables are updated.
func (s *relationalStore) MarkVectorPending(ctx context.Context, id string) error {
	return s.setPending(ctx, id, 1)
}

// ClearVectorPending removes the reconciliation flag.
func (s *relationalStore) ClearVectorPending(ctx context.Context, id string) error {
	return s.setPending(ctx, id, 0)
}

func (s *relationalStore) setPending(ctx context.Context, id string, pending int) error {
	if _, err := s.store.db.ExecContext(ctx,
		"UPDATE posts SET vector_pending = ? WHERE id = ?", pending, id); err != nil {
		return fmt.Errorf("updating post pending flag: %w", err)
	}
	if _, err := s.store.db.ExecContext(ctx,
		"UPDATE comments SET vector_pending = ? WHERE id = ?", pending, id); err != nil {
		return fmt.Errorf("updating comment pending flag: %w", err)
	}
	return nil
}

// ListVectorPending returns all records awaiting reconciliation.
func (s *relationalStore) ListVectorPending(ctx context.Context) ([]domain.Post, []domain.Comment, error) {
	postRows, err := s.store.db.QueryContext(ctx, `
		SELECT id, caption, media_type, media_url, permalink, timestamp, like_count, comment_count
		FROM posts WHERE vector_pending = 1 ORDER BY id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("querying pending posts: %w", err)
	}
	defer postRows.Close()

	var posts []domain.Post //nolint:prealloc // size unknown from query
	for postRows.Next() {
		p, err := scanPost(postRows)
		if err != nil {
			return nil, nil, err
		}
		posts = append(posts, *p)
	}
	if err := postRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating pending posts: %w", err)
	}

	commentRows, err := s.store.db.QueryContext(ctx, `
		SELECT id, post_id, parent_comment_id, text, username, timestamp, replied
		FROM comments WHERE vector_pending = 1 ORDER BY id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("querying pending comments: %w", err)
	}
	defer commentRows.Close()

	var comments []domain.Comment //nolint:prealloc // size unknown from query
	for commentRows.Next() {
		c, err := scanComment(commentRows)
		if err != nil {
			return nil, nil, err
		}
		comments = append(comments, *c)
	}
	if err := commentRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating pending comments: %w", err)
	}

	return posts, comments, nil
}

// Counts returns the stored post and comment totals.
func (s *relationalStore) Counts(ctx context.Context) (int, int, error) {
	var posts, comments int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts").Scan(&posts); err != nil {
		return 0, 0, fmt.Errorf("counting posts: %w", err)
	}
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM comments").Scan(&comments); err != nil {
		return 0, 0, fmt.Errorf("counting comments: %w", err)
	}
	return posts, comments, nil
}

// GetPost retrieves a stored post by ID.
func (s *relationalStore) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, caption, media_type, media_url, permalink, timestamp, like_count, comment_count
		FROM posts WHERE id = ?
	`, id)

	var p domain.Post
	if err := row.Scan(&p.ID, &p.Caption, &p.MediaType, &p.MediaURL, &p.Permalink,
		&p.Timestamp, &p.LikeCount, &p.CommentCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning post: %w", err)
	}
	p.Timestamp = p.Timestamp.UTC()
	return &p, nil
}

// GetComment retrieves a stored comment by ID.
func (s *relationalStore) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, post_id, parent_comment_id, text, username, timestamp, replied
		FROM comments WHERE id = ?
	`, id)

	var c domain.Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.ParentCommentID, &c.Text, &c.Username,
		&c.Timestamp, &c.Replied); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning comment: %w", err)
	}
	c.Timestamp = c.Timestamp.UTC()
	return &c, nil
}

// SetReplied marks a comment as handled by the downstream consumer.
func (s *relationalStore) SetReplied(ctx context.Context, id string, replied bool) error {
	flag := 0
	if replied {
		flag = 1
	}
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE comments SET replied = ? WHERE id = ?", flag, id)
	if err != nil {
		return fmt.Errorf("updating replied flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking replied update: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close closes the underlying database.
func (s *relationalStore) Close() error {
	return s.store.Close()
}

// scanPost scans a post from *sql.Rows.
func scanPost(rows *sql.Rows) (*domain.Post, error) {
	var p domain.Post
	if err := rows.Scan(&p.ID, &p.Caption, &p.MediaType, &p.MediaURL, &p.Permalink,
		&p.Timestamp, &p.LikeCount, &p.CommentCount); err != nil {
		return nil, fmt.Errorf("scanning post: %w", err)
	}
	p.Timestamp = p.Timestamp.UTC()
	return &p, nil
}

// scanComment scans a comment from *sql.Rows.
func scanComment(rows *sql.Rows) (*domain.Comment, error) {
	var c domain.Comment
	if err := rows.Scan(&c.ID, &c.PostID, &c.ParentCommentID, &c.Text, &c.Username,
		&c.Timestamp, &c.Replied); err != nil {
		return nil, fmt.Errorf("scanning comment: %w", err)
	}
	c.Timestamp = c.Timestamp.UTC()
	return &c, nil
}

// ==================== Watermark Store ====================

// watermarkStore implements driven.WatermarkStore on top of the
// sync_metadata table.
type watermarkStore struct {
	store *Store
}

var _ driven.WatermarkStore = (*watermarkStore)(nil)

// Read returns the persisted watermark, or the epoch default when none
// has been committed yet.
func (s *watermarkStore) Read(ctx context.Context) (time.Time, error) {
	rel := relationalStore{store: s.store}
	value, err := rel.GetMetadata(ctx, domain.WatermarkKey)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.EpochWatermark(), nil
	}
	if err != nil {
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing watermark %q: %w", value, err)
	}
	return t.UTC(), nil
}

// Write persists the watermark.
func (s *watermarkStore) Write(ctx context.Context, t time.Time) error {
	rel := relationalStore{store: s.store}
	return rel.SetMetadata(ctx, domain.WatermarkKey, t.UTC().Format(time.RFC3339Nano))
}
