package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/seoflare/seoflare/internal/config"
	"github.com/seoflare/seoflare/internal/model"
)

// identifierPattern is the allowed shape of a storage column name.
// Column names reach SQL as identifiers, so anything else is rejected
// at creation time.
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// CrawlDB is one crawl session: the crawl rows, the inlink graph, and
// the configuration the session was started with, in a single SQLite
// file.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// path is the location of the SQLite session file.
	path string

	// columns is this session's storage column set, fixed when the
	// session is created.
	columns []string

	// mu guards batch and serializes statement execution. Readers on
	// other goroutines would otherwise race the consumer swapping the
	// batch, or hold a transaction while it is committed under them.
	mu sync.Mutex

	// batch is the open write transaction, if any. All writes run
	// inside it while it is open so a crash loses at most one batch.
	batch *sql.Tx
}

// Create initializes a new session file at path with the schema
// derived from settings, and stores the settings in it.
func Create(path string, settings *config.Settings) (*CrawlDB, error) {
	columns, err := storageColumns(settings)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	cdb, err := open(path, true)
	if err != nil {
		return nil, err
	}
	cdb.columns = columns

	if err := cdb.createSchema(context.Background()); err != nil {
		_ = cdb.Close()
		return nil, err
	}
	if err := cdb.SaveSettings(context.Background(), settings); err != nil {
		_ = cdb.Close()
		return nil, err
	}
	return cdb, nil
}

// Open opens an existing session file and restores its column set from
// the stored settings.
func Open(path string) (*CrawlDB, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
	}

	cdb, err := open(path, false)
	if err != nil {
		return nil, err
	}

	settings, err := cdb.LoadSettings(context.Background())
	if err != nil {
		_ = cdb.Close()
		return nil, err
	}
	columns, err := storageColumns(settings)
	if err != nil {
		_ = cdb.Close()
		return nil, err
	}
	cdb.columns = columns
	return cdb, nil
}

// open connects to the SQLite file and applies the session pragmas.
func open(path string, create bool) (*CrawlDB, error) {
	mode := "rw"
	if create {
		mode = "rwc"
	}
	db, err := sql.Open("sqlite", path+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports one writer; a single connection avoids busy
	// errors between the consumer and ad-hoc reads.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	return &CrawlDB{db: db, path: path}, nil
}

// Close commits any open batch and closes the connection.
func (cdb *CrawlDB) Close() error {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()
	if cdb.batch != nil {
		if err := cdb.batch.Commit(); err != nil {
			_ = cdb.db.Close()
			return fmt.Errorf("commit final batch: %w", err)
		}
		cdb.batch = nil
	}
	return cdb.db.Close()
}

// Path returns the session file location.
func (cdb *CrawlDB) Path() string {
	return cdb.path
}

// Columns returns this session's storage column set.
func (cdb *CrawlDB) Columns() []string {
	return append([]string{}, cdb.columns...)
}

// storageColumns derives and validates the storage columns for a
// configuration. The computed unique_inlinks column lives in the
// inlinks table and is excluded here.
func storageColumns(settings *config.Settings) ([]string, error) {
	var columns []string
	for _, c := range settings.Columns() {
		if c == model.ColumnUniqueInlinks {
			continue
		}
		if !identifierPattern.MatchString(c) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidColumnName, c)
		}
		columns = append(columns, c)
	}
	return columns, nil
}

// createSchema creates the session tables and reporting views.
func (cdb *CrawlDB) createSchema(ctx context.Context) error {
	defs := make([]string, 0, len(cdb.columns))
	for _, c := range cdb.columns {
		switch c {
		case model.ColumnURL:
			defs = append(defs, "url TEXT NOT NULL UNIQUE")
		case model.ColumnStatusCode:
			// NULL until the URL has been crawled.
			defs = append(defs, "status_code INTEGER")
		default:
			defs = append(defs, c+" TEXT NOT NULL DEFAULT ''")
		}
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS crawl (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			%s
		)`, strings.Join(defs, ",\n\t\t\t")),
		`CREATE TABLE IF NOT EXISTS inlinks (
			from_url TEXT NOT NULL,
			to_url TEXT NOT NULL,
			UNIQUE (from_url, to_url)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inlinks_to ON inlinks (to_url)`,
		`CREATE TABLE IF NOT EXISTS settings (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS exclusions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operator TEXT NOT NULL,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS extractions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			selector TEXT NOT NULL,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := cdb.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return cdb.createViews(ctx)
}

// writer returns the open batch transaction, or the connection when no
// batch is active. Callers must hold mu for the whole operation.
func (cdb *CrawlDB) writer() interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if cdb.batch != nil {
		return cdb.batch
	}
	return cdb.db
}

// BeginBatch opens a write transaction; subsequent writes join it
// until CommitBatch.
func (cdb *CrawlDB) BeginBatch(ctx context.Context) error {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()
	if cdb.batch != nil {
		return ErrBatchInProgress
	}
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	cdb.batch = tx
	return nil
}

// CommitBatch commits the open write transaction.
func (cdb *CrawlDB) CommitBatch() error {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()
	if cdb.batch == nil {
		return ErrNoBatch
	}
	err := cdb.batch.Commit()
	cdb.batch = nil
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// SaveSettings stores the full configuration, replacing any previous
// copy. It is called at session creation and again on every graceful
// stop so a resumed crawl continues under the same rules.
func (cdb *CrawlDB) SaveSettings(ctx context.Context, s *config.Settings) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"settings", "exclusions", "extractions"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	values := map[string]string{
		"mode":              string(s.Mode),
		"start_url":         s.StartURL,
		"list_urls":         strings.Join(s.ListURLs, "\n"),
		"threads":           strconv.Itoa(s.Threads),
		"urls_per_second":   strconv.Itoa(s.URLsPerSecond),
		"user_agent":        s.UserAgent,
		"robots_user_agent": s.RobotsUserAgent,
		"max_retries":       strconv.Itoa(s.MaxRetries),
		"proxy_host":        s.ProxyHost,
		"proxy_user":        s.ProxyUser,
		"proxy_password":    s.ProxyPassword,
		"auth_user":         s.AuthUser,
		"auth_password":     s.AuthPassword,
		"crawl_items":       strings.Join(s.CrawlItems, "\n"),
		"separator":         s.Separator,
		"max_body_size":     strconv.FormatInt(s.MaxBodySize, 10),
	}
	for name, value := range values {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO settings (name, value) VALUES (?, ?)", name, value); err != nil {
			return fmt.Errorf("store setting %s: %w", name, err)
		}
	}

	for _, rule := range s.Exclusions {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO exclusions (operator, value) VALUES (?, ?)",
			rule.Operator, rule.Value); err != nil {
			return fmt.Errorf("store exclusion: %w", err)
		}
	}
	for _, e := range s.Extractions {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO extractions (name, selector, value) VALUES (?, ?, ?)",
			e.Name, e.Selector, e.Value); err != nil {
			return fmt.Errorf("store extraction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadSettings reads the stored configuration back. Values absent from
// the settings table keep their defaults.
func (cdb *CrawlDB) LoadSettings(ctx context.Context) (*config.Settings, error) {
	rows, err := cdb.db.QueryContext(ctx, "SELECT name, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stored := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		stored[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if len(stored) == 0 {
		return nil, ErrNoStoredSettings
	}

	s := config.NewSettings()
	s.Mode = config.Mode(stored["mode"])
	s.StartURL = stored["start_url"]
	s.UserAgent = stored["user_agent"]
	s.RobotsUserAgent = stored["robots_user_agent"]
	s.ProxyHost = stored["proxy_host"]
	s.ProxyUser = stored["proxy_user"]
	s.ProxyPassword = stored["proxy_password"]
	s.AuthUser = stored["auth_user"]
	s.AuthPassword = stored["auth_password"]
	s.Separator = stored["separator"]
	if v := stored["list_urls"]; v != "" {
		s.ListURLs = strings.Split(v, "\n")
	}
	if v := stored["crawl_items"]; v != "" {
		s.CrawlItems = strings.Split(v, "\n")
	} else {
		s.CrawlItems = nil
	}
	for name, dst := range map[string]*int{
		"threads":         &s.Threads,
		"urls_per_second": &s.URLsPerSecond,
		"max_retries":     &s.MaxRetries,
	} {
		if v, err := strconv.Atoi(stored[name]); err == nil {
			*dst = v
		}
	}
	if v, err := strconv.ParseInt(stored["max_body_size"], 10, 64); err == nil {
		s.MaxBodySize = v
	}

	s.Exclusions = nil
	exRows, err := cdb.db.QueryContext(ctx,
		"SELECT operator, value FROM exclusions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}
	defer func() { _ = exRows.Close() }()
	for exRows.Next() {
		var rule config.ExclusionRule
		if err := exRows.Scan(&rule.Operator, &rule.Value); err != nil {
			return nil, fmt.Errorf("load exclusions: %w", err)
		}
		s.Exclusions = append(s.Exclusions, rule)
	}
	if err := exRows.Err(); err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}

	s.Extractions = nil
	extRows, err := cdb.db.QueryContext(ctx,
		"SELECT name, selector, value FROM extractions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load extractions: %w", err)
	}
	defer func() { _ = extRows.Close() }()
	for extRows.Next() {
		var e config.Extraction
		if err := extRows.Scan(&e.Name, &e.Selector, &e.Value); err != nil {
			return nil, fmt.Errorf("load extractions: %w", err)
		}
		s.Extractions = append(s.Extractions, e)
	}
	if err := extRows.Err(); err != nil {
		return nil, fmt.Errorf("load extractions: %w", err)
	}

	return s, nil
}
