// Package storage provides the durable store for person records and the
// shared key-value projection store, backed by a single SQLite database.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/engine"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a person id has no record.
var ErrNotFound = errors.New(config.ErrPersonNotFound)

// Store wraps the SQLite database. Safe for use from the single logical
// writer timeline; SQLite itself prefers one writer, enforced via the
// connection pool size.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New(config.ErrStorePath)
	}
	if err := os.MkdirAll(filepath.Dir(path), config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrStoreMigrate, err)
	}
	slog.Info(config.MsgStoreOpened, config.LogKeyComponent, config.CompStorage, config.LogKeyFile, path)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// -----------------------------------------------------------------------------
// Persons
// -----------------------------------------------------------------------------

const personColumns = `id, given_name, family_name, birth_month, birth_day,
	birth_year, congratulated_year, missed_year, excluded, phone`

// ListPersons returns every person record, excluded ones included: exclusion
// is a display/scheduling concern, not a storage one.
func (s *Store) ListPersons(ctx context.Context) ([]engine.Person, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+personColumns+` FROM persons ORDER BY family_name, given_name, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var persons []engine.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// GetPerson loads one record by id, or ErrNotFound.
func (s *Store) GetPerson(ctx context.Context, id string) (engine.Person, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = ?`, id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Person{}, ErrNotFound
	}
	return p, err
}

// UpsertPerson inserts or fully replaces a record.
func (s *Store) UpsertPerson(ctx context.Context, p engine.Person) error {
	if p.ID == "" {
		return errors.New(config.ErrPersonIDEmpty)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO persons (`+personColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   given_name=excluded.given_name,
		   family_name=excluded.family_name,
		   birth_month=excluded.birth_month,
		   birth_day=excluded.birth_day,
		   birth_year=excluded.birth_year,
		   congratulated_year=excluded.congratulated_year,
		   missed_year=excluded.missed_year,
		   excluded=excluded.excluded,
		   phone=excluded.phone`,
		p.ID, p.GivenName, p.FamilyName, int(p.BirthMonth), p.BirthDay,
		p.BirthYear, p.CongratulatedYear, p.MissedYear, boolToInt(p.Excluded), p.Phone,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (engine.Person, error) {
	var p engine.Person
	var month, excluded int
	err := row.Scan(&p.ID, &p.GivenName, &p.FamilyName, &month, &p.BirthDay,
		&p.BirthYear, &p.CongratulatedYear, &p.MissedYear, &excluded, &p.Phone)
	if err != nil {
		return engine.Person{}, err
	}
	p.BirthMonth = time.Month(month)
	p.Excluded = excluded != 0
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------
// Key-Value (projection store)
// -----------------------------------------------------------------------------

// PutValue writes a value under a namespace/key pair, replacing any previous
// value.
func (s *Store) PutValue(ctx context.Context, namespace, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(namespace, key, value) VALUES(?,?,?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value=excluded.value`,
		namespace, key, value,
	)
	return err
}

// GetValue reads a value; ok is false when the key has never been written.
func (s *Store) GetValue(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}
