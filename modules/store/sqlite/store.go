package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glossahq/glossa/internal/settings"
)

// settingsStore implements settings.Store backed by SQLite.
type settingsStore struct {
	db *sql.DB

	// writeMu serializes mutations with their watcher notifications so
	// events arrive in the order the database applied them.
	writeMu  sync.Mutex
	mu       sync.Mutex
	watchers map[int]chan<- settings.Event
	nextID   int
}

func newSettingsStore(db *sql.DB) *settingsStore {
	return &settingsStore{
		db:       db,
		watchers: make(map[int]chan<- settings.Event),
	}
}

// Get returns the value for key, or settings.ErrKeyNotFound.
func (s *settingsStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settings.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any existing value.
func (s *settingsStore) Set(ctx context.Context, key string, value []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: set %q: %w", key, err)
	}

	s.notify(settings.Event{Op: settings.OpSet, Key: key, Value: value})
	return nil
}

// Remove deletes key. Removing an absent key returns settings.ErrKeyNotFound.
func (s *settingsStore) Remove(ctx context.Context, key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("sqlite: remove %q: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return settings.ErrKeyNotFound
	}

	s.notify(settings.Event{Op: settings.OpRemove, Key: key})
	return nil
}

// likeEscaper protects LIKE metacharacters in key prefixes.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Keys returns all keys with the given prefix.
func (s *settingsStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM settings WHERE key LIKE ? ESCAPE '\'`,
		likeEscaper.Replace(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlite: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan keys rows: %w", err)
	}
	return keys, nil
}

// Watch registers ch for mutation events.
func (s *settingsStore) Watch(ch chan<- settings.Event) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// notify fans an event out to all watchers. Callers hold writeMu.
func (s *settingsStore) notify(ev settings.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
			// Receiver is behind; drop rather than block the writer.
		}
	}
}

// Len returns the number of stored keys.
func (s *settingsStore) Len() int {
	var count int
	if err := s.db.QueryRowContext(context.TODO(), "SELECT COUNT(*) FROM settings").Scan(&count); err != nil {
		return 0
	}
	return count
}
