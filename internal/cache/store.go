// Package cache persists resolved DNS answers in a SQLite-backed "entries"
// table and enforces TTL-based validity, mediating between the iterative
// resolver and durable storage.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/domainwalk/recudns/internal/dns"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a handle to the persistent cache. It is safe for concurrent use;
// the underlying *sql.DB manages its own connection pool, and concurrent
// writers may race to insert duplicate rows for the same domain -- readers
// use LIMIT 1 and tolerate this, per the concurrency model.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates a SQLite database at path and applies pending
// schema migrations. The caller's configured migrations_dir is accepted for
// parity with the external configuration surface but is not consulted: the
// schema is small and fixed, so it ships embedded in the binary like the
// rest of this package's migration machinery.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	return open(dsn, logger)
}

// OpenInMemory opens an in-process SQLite database held in memory, for tests
// and scratch runs that should not touch the filesystem. It uses shared-cache
// mode, so every pooled connection sees the same tables, and stores opened
// this way at the same time in one process share one database.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	return open("file::memory:?cache=shared&_busy_timeout=5000", logger)
}

func open(dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("up: %w", err)
	}
	return nil
}

// newStoreWithDB wraps an already-open *sql.DB without running migrations,
// for tests that drive the store against a mocked connection.
func newStoreWithDB(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Health pings the underlying database connection.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectColumns = "id, address, host, priority, domain, expiration_date, ttl, record_type"

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var e Entry
	if err := row.Scan(&e.ID, &e.Address, &e.Host, &e.Priority, &e.Domain, &e.ExpirationDate, &e.TTL, &e.RecordType); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Lookup returns one entry owned by domain (case-insensitive), with LIMIT 1
// semantics -- multiple matching rows may exist, and which one is returned
// is unspecified. An expired row discovered on read is deleted before
// returning ErrMiss, per the eviction-on-read invariant.
func (s *Store) Lookup(ctx context.Context, domain string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM entries WHERE domain = ? COLLATE NOCASE LIMIT 1", domain)
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, ErrMiss
		}
		return Entry{}, fmt.Errorf("cache: lookup %q: %w", domain, err)
	}

	if !e.Valid(time.Now()) {
		if delErr := s.Delete(ctx, e.ID); delErr != nil {
			s.logger.Error("cache: failed to evict expired row", "id", e.ID, "domain", domain, "err", delErr)
		}
		return Entry{}, ErrMiss
	}
	return e, nil
}

// LookupAll returns every row owned by domain, for the cache-only fast path.
func (s *Store) LookupAll(ctx context.Context, domain string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM entries WHERE domain = ? COLLATE NOCASE", domain)
	if err != nil {
		return nil, fmt.Errorf("cache: lookup_all %q: %w", domain, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("cache: lookup_all %q: scan: %w", domain, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertA inserts a new A-record row with the given TTL, expiring ttl
// seconds from now. Only A-records are written to the cache in the current
// design; other record types are learned transiently during resolution but
// never persisted (see DESIGN.md).
func (s *Store) InsertA(ctx context.Context, domain string, addr net.IP, ttl uint32) error {
	v4 := addr.To4()
	if v4 == nil {
		return fmt.Errorf("cache: insert_a %q: not an IPv4 address", domain)
	}
	expiration := time.Now().Add(time.Duration(ttl) * time.Second)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO entries (address, domain, expiration_date, ttl, record_type) VALUES (?, ?, ?, ?, ?)",
		v4.String(), domain, expiration, ttl, uint16(dns.TypeA))
	if err != nil {
		return fmt.Errorf("cache: insert_a %q: %w", domain, err)
	}
	return nil
}

// Delete removes the row with the given primary key.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("cache: delete %d: %w", id, err)
	}
	return nil
}
