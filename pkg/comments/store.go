// Package comments persists user feedback per category and the model
// generated summaries of it.
package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/cvsubs74/dm-consent/pkg/logging"
)

var (
	// ErrNoSummary is returned when a category has no stored summary
	ErrNoSummary = errors.New("no summary available")
	// ErrInvalidCategory is returned for categories outside Categories
	ErrInvalidCategory = errors.New("invalid comment category")
	// ErrEmptyComment is returned when the comment text is blank
	ErrEmptyComment = errors.New("comment text is required")
)

// All selects every category in GetComments
const All = "All"

// DefaultLimit is used when GetComments is called with limit <= 0
const DefaultLimit = 10

// Categories are the feedback topics users can comment on
var Categories = []string{"Consent", "Cookies", "Data Discovery", "DSAR", "Other"}

// ValidCategory reports whether c is one of Categories
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Comment is one stored piece of feedback
type Comment struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// Options configures Open
type Options struct {
	Driver         string        // "sqlite" (default) or "mysql"
	DSN            string        // file path or ":memory:" for sqlite
	ConnectTimeout time.Duration // total time spent retrying the first ping
}

// Store reads and writes comments and summaries
type Store struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// Open connects with exponential backoff and creates the tables if missing
func Open(ctx context.Context, opts Options) (*Store, error) {
	db, d, err := openDB(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", opts.Driver, err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = opts.ConnectTimeout
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 30 * time.Second
	}

	err = backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		logging.Warn("database not reachable, retrying", "driver", d.name, "error", err, "retryIn", next)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", d.name, err)
	}

	s := &Store{db: db, dialect: d, now: time.Now}
	if err := s.bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logging.Info("comment store ready", "driver", d.name)
	return s, nil
}

func (s *Store) bootstrap(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create comment tables: %w", err)
		}
	}
	return nil
}

// Close releases the database handle
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	logging.Debug("closing comment store", "driver", s.dialect.name)
	return s.db.Close()
}

// Ping checks the database is still reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AddComment stores text under category and returns the stored row
func (s *Store) AddComment(ctx context.Context, text, category string) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, ErrEmptyComment
	}
	if !ValidCategory(category) {
		return Comment{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	created := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO user_comments (text, category, created_at) VALUES (?, ?, ?)`,
		text, category, created)
	if err != nil {
		return Comment{}, fmt.Errorf("failed to insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Comment{}, fmt.Errorf("failed to read comment id: %w", err)
	}

	logging.DebugContext(ctx, "comment stored", "id", id, "category", category)
	return Comment{ID: id, Text: text, Category: category, CreatedAt: created}, nil
}

// GetComments returns up to limit comments, newest first. category may be All.
func (s *Store) GetComments(ctx context.Context, category string, limit int) ([]Comment, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if category == All || category == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, text, category, created_at FROM user_comments
			ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	} else {
		if !ValidCategory(category) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
		}
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, text, category, created_at FROM user_comments
			WHERE category = ?
			ORDER BY created_at DESC, id DESC LIMIT ?`, category, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		var created timestamp
		if err := rows.Scan(&c.ID, &c.Text, &c.Category, &created); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.CreatedAt = created.Time
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}
	return comments, nil
}

// GetCategorySummary returns the stored summary or ErrNoSummary
func (s *Store) GetCategorySummary(ctx context.Context, category string) (string, error) {
	var summary string
	err := s.db.QueryRowContext(ctx,
		`SELECT summary FROM category_summaries WHERE category = ?`, category).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSummary
	}
	if err != nil {
		return "", fmt.Errorf("failed to read summary for %s: %w", category, err)
	}
	return summary, nil
}

// UpdateCategorySummary inserts or replaces the summary for category
func (s *Store) UpdateCategorySummary(ctx context.Context, category, summary string) error {
	if !ValidCategory(category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, category, summary, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to store summary for %s: %w", category, err)
	}
	logging.DebugContext(ctx, "summary stored", "category", category, "chars", len(summary))
	return nil
}
