package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/testdeck/testdeck/internal/logger"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// SQLite is a Namespace persisted in a single-table SQLite database.
type SQLite struct {
	db       *sql.DB
	capacity int64
	log      *logger.Logger
}

// Open opens (creating if needed) the namespace database at path.
// capacity is the byte quota across all keys and values; 0 means
// unlimited.
func Open(path string, capacity int64) (*SQLite, error) {
	log := logger.Default().WithPrefix("storage")

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)
	log.Info("opening slot namespace: %s", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Error("failed to open namespace: %v", err)
		return nil, err
	}
	db.SetMaxOpenConns(1) // single writer

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS slots (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		log.Error("failed to create slots table: %v", err)
		_ = db.Close()
		return nil, err
	}

	log.Info("slot namespace ready")
	return &SQLite{db: db, capacity: capacity, log: log}, nil
}

func (s *SQLite) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		s.log.Error("failed to read slot %s: %v", key, err)
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLite) Set(key, value string) error {
	if s.capacity > 0 {
		used, err := s.usedExcluding(key)
		if err != nil {
			return err
		}
		if used+int64(len(key))+int64(len(value)) > s.capacity {
			s.log.Warn("write of %d bytes to %s would exceed capacity (%d used of %d)",
				len(value), key, used, s.capacity)
			return ErrQuotaExceeded
		}
	}

	_, err := s.db.Exec(`
INSERT INTO slots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`, key, value)
	if err != nil {
		s.log.Error("failed to write slot %s: %v", key, err)
	}
	return err
}

func (s *SQLite) Delete(key string) error {
	query, args, err := sqlBuilder.Delete("slots").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(query, args...); err != nil {
		s.log.Error("failed to delete slot %s: %v", key, err)
		return err
	}
	return nil
}

func (s *SQLite) Keys() ([]string, error) {
	query, args, err := sqlBuilder.Select("key").From("slots").OrderBy("key").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		s.log.Error("failed to list slot keys: %v", err)
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLite) UsedBytes() (int64, error) {
	var used sql.NullInt64
	err := s.db.QueryRow(`SELECT SUM(LENGTH(key) + LENGTH(value)) FROM slots`).Scan(&used)
	if err != nil {
		return 0, err
	}
	return used.Int64, nil
}

func (s *SQLite) Close() error {
	s.log.Debug("closing slot namespace")
	return s.db.Close()
}

// usedExcluding is the byte total of every slot except key, so that a
// replacement write is charged only for its new value.
func (s *SQLite) usedExcluding(key string) (int64, error) {
	query, args, err := sqlBuilder.
		Select("SUM(LENGTH(key) + LENGTH(value))").
		From("slots").
		Where(squirrel.NotEq{"key": key}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var used sql.NullInt64
	if err := s.db.QueryRow(query, args...).Scan(&used); err != nil {
		return 0, err
	}
	return used.Int64, nil
}
