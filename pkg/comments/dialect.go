package comments

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// dialect holds the statements that differ between backends
type dialect struct {
	name   string
	schema []string
	upsert string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS user_comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			category TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_comments_category ON user_comments (category, created_at)`,
		`CREATE TABLE IF NOT EXISTS category_summaries (
			category TEXT NOT NULL PRIMARY KEY,
			summary TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	upsert: `INSERT INTO category_summaries (category, summary, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at`,
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS user_comments (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			text TEXT NOT NULL,
			category VARCHAR(64) NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_user_comments_category (category, created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS category_summaries (
			category VARCHAR(64) NOT NULL PRIMARY KEY,
			summary TEXT NOT NULL,
			updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
		)`,
	},
	upsert: `INSERT INTO category_summaries (category, summary, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE summary = VALUES(summary), updated_at = VALUES(updated_at)`,
}

// openDB opens (but does not ping) a handle for driver
func openDB(driver, dsn string) (*sql.DB, dialect, error) {
	switch driver {
	case "sqlite", "":
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, dialect{}, err
		}
		// one writer; also keeps ":memory:" to a single database
		db.SetMaxOpenConns(1)
		return db, sqliteDialect, nil

	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, dialect{}, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, dialect{}, err
		}
		db := sql.OpenDB(connector)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetMaxIdleConns(4)
		return db, mysqlDialect, nil

	default:
		return nil, dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}

// timestamp scans DATETIME/TIMESTAMP columns whatever the driver hands back
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
