package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a durable implementation of the set command surface on a
// single SQLite file. Sets live as (key, member) rows; TTLs live in a
// companion key table and expire lazily on the next operation that
// touches the store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path required")
	}

	if shouldCreateDir(path) {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func shouldCreateDir(path string) bool {
	return path != ":memory:" && !strings.HasPrefix(path, "file:")
}

func (s *Store) init(ctx context.Context) error {
	statements := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		`CREATE TABLE IF NOT EXISTS set_keys (
			key        TEXT PRIMARY KEY,
			expires_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS set_members (
			key    TEXT NOT NULL,
			member TEXT NOT NULL,
			PRIMARY KEY (key, member)
		)`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("init sqlite store: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// purgeExpired drops every key whose TTL has lapsed. Called at the top
// of each operation; with a single connection this keeps reads and
// writes consistent without background sweeping.
func (s *Store) purgeExpired(ctx context.Context) error {
	now := s.now().UnixMilli()
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM set_members WHERE key IN (SELECT key FROM set_keys WHERE expires_at IS NOT NULL AND expires_at <= ?)", now); err != nil {
		return fmt.Errorf("purge expired members: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM set_keys WHERE expires_at IS NOT NULL AND expires_at <= ?", now); err != nil {
		return fmt.Errorf("purge expired keys: %w", err)
	}
	return nil
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin sadd: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO set_keys (key, expires_at) VALUES (?, NULL) ON CONFLICT (key) DO NOTHING", key); err != nil {
		return 0, fmt.Errorf("ensure set key: %w", err)
	}
	var added int64
	for _, member := range members {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO set_members (key, member) VALUES (?, ?) ON CONFLICT (key, member) DO NOTHING", key, member)
		if err != nil {
			return 0, fmt.Errorf("add member: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("add member: %w", err)
		}
		added += rows
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sadd: %w", err)
	}
	return added, nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return nil, err
	}
	return s.queryMembers(ctx, "SELECT member FROM set_members WHERE key = ?", key)
}

func (s *Store) SRandMember(ctx context.Context, key string, count int) ([]string, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}
	return s.queryMembers(ctx,
		"SELECT member FROM set_members WHERE key = ? ORDER BY RANDOM() LIMIT ?", key, count)
}

func (s *Store) SRem(ctx context.Context, key, member string) (int64, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin srem: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		"DELETE FROM set_members WHERE key = ? AND member = ?", key, member)
	if err != nil {
		return 0, fmt.Errorf("remove member: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove member: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM set_keys WHERE key = ? AND NOT EXISTS (SELECT 1 FROM set_members WHERE key = ?)", key, key); err != nil {
		return 0, fmt.Errorf("drop empty set key: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit srem: %w", err)
	}
	return removed, nil
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return false, err
	}
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM set_members WHERE key = ? AND member = ?)", key, member).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return 0, err
	}
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM set_members WHERE key = ?", key).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

func (s *Store) SUnion(ctx context.Context, keys ...string) ([]string, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return nil, err
	}
	query, args := unionQuery(keys)
	return s.queryMembers(ctx, query, args...)
}

func (s *Store) SUnionStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	query, args := unionQuery(keys)
	return s.storeResult(ctx, dest, query, args)
}

func (s *Store) SInter(ctx context.Context, keys ...string) ([]string, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return nil, err
	}
	query, args := interQuery(keys)
	return s.queryMembers(ctx, query, args...)
}

func (s *Store) SInterStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	query, args := interQuery(keys)
	return s.storeResult(ctx, dest, query, args)
}

func (s *Store) SDiff(ctx context.Context, keys ...string) ([]string, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return nil, err
	}
	query, args := diffQuery(keys)
	return s.queryMembers(ctx, query, args...)
}

func (s *Store) SDiffStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	query, args := diffQuery(keys)
	return s.storeResult(ctx, dest, query, args)
}

func (s *Store) Del(ctx context.Context, key string) (int64, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin del: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM set_members WHERE key = ?", key); err != nil {
		return 0, fmt.Errorf("delete members: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM set_keys WHERE key = ?", key)
	if err != nil {
		return 0, fmt.Errorf("delete set key: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete set key: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit del: %w", err)
	}
	return removed, nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return false, err
	}
	expiresAt := s.now().Add(ttl).UnixMilli()
	result, err := s.db.ExecContext(ctx,
		"UPDATE set_keys SET expires_at = ? WHERE key = ?", expiresAt, key)
	if err != nil {
		return false, fmt.Errorf("set expiry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set expiry: %w", err)
	}
	return rows > 0, nil
}

func (s *Store) queryMembers(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// storeResult replaces dest with the rows produced by query. Matching
// the store-native commands, an empty result deletes dest and any TTL on
// dest is dropped.
func (s *Store) storeResult(ctx context.Context, dest, query string, args []any) (int64, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return 0, err
	}
	members, err := s.queryMembers(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin store: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM set_members WHERE key = ?", dest); err != nil {
		return 0, fmt.Errorf("clear destination members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM set_keys WHERE key = ?", dest); err != nil {
		return 0, fmt.Errorf("clear destination key: %w", err)
	}
	if len(members) > 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO set_keys (key, expires_at) VALUES (?, NULL)", dest); err != nil {
			return 0, fmt.Errorf("create destination key: %w", err)
		}
		for _, member := range members {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO set_members (key, member) VALUES (?, ?)", dest, member); err != nil {
				return 0, fmt.Errorf("write destination member: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit store: %w", err)
	}
	return int64(len(members)), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func unionQuery(keys []string) (string, []any) {
	query := fmt.Sprintf(
		"SELECT DISTINCT member FROM set_members WHERE key IN (%s)", placeholders(len(keys)))
	return query, keyArgs(keys)
}

func interQuery(keys []string) (string, []any) {
	// The predicate counts distinct keys per member, so a repeated key
	// must not inflate the required count.
	keys = dedupeKeys(keys)
	query := fmt.Sprintf(
		"SELECT member FROM set_members WHERE key IN (%s) GROUP BY member HAVING COUNT(DISTINCT key) = %d",
		placeholders(len(keys)), len(keys))
	return query, keyArgs(keys)
}

func dedupeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func diffQuery(keys []string) (string, []any) {
	if len(keys) == 1 {
		return "SELECT member FROM set_members WHERE key = ?", keyArgs(keys)
	}
	query := fmt.Sprintf(
		"SELECT member FROM set_members WHERE key = ? EXCEPT SELECT member FROM set_members WHERE key IN (%s)",
		placeholders(len(keys)-1))
	return query, keyArgs(keys)
}

func keyArgs(keys []string) []any {
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	return args
}
