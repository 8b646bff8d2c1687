// Package clientdata provides caching for data obtained from external price sources:
// a generic in-process TTL cache and a persisted, expiring record of discovery attempts.
// Persisted rows are msgpack blobs with an expires_at timestamp.
package clientdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const tableDiscoveryAttempts = "discovery_attempts"

// AllTables lists all tables in client_data.db for cleanup operations.
var AllTables = []string{
	tableDiscoveryAttempts,
}

// validTables is a set for O(1) table name validation.
var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// DiscoveryAttempt records the outcome of fetching an unknown symbol from external sources.
type DiscoveryAttempt struct {
	AttemptedAt time.Time `msgpack:"attempted_at"`
	Symbol      string    `msgpack:"symbol"`
	Source      string    `msgpack:"source"`
	Error       string    `msgpack:"error,omitempty"`
	Bars        int       `msgpack:"bars"`
	Success     bool      `msgpack:"success"`
}

// Repository provides cache operations for client data.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// validateTable ensures the table name is in our allowed list.
// This prevents SQL injection through table names.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store saves data with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (r *Repository) Store(table, key string, data interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	blob, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	expiresAt := r.now().Add(ttl).Unix()

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (symbol, data, expires_at) VALUES (?, ?, ?)", table)
	if _, err := r.db.Exec(query, key, blob, expiresAt); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}

	return nil
}

// GetIfFresh decodes the row into out only if expires_at > now.
// Returns false, nil when the key doesn't exist or is expired.
func (r *Repository) GetIfFresh(table, key string, out interface{}) (bool, error) {
	if err := validateTable(table); err != nil {
		return false, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE symbol = ? AND expires_at > ?", table)
	return r.scanInto(table, out, query, key, r.now().Unix())
}

// Get decodes the row into out regardless of expiration status.
// Returns false, nil if the key doesn't exist.
func (r *Repository) Get(table, key string, out interface{}) (bool, error) {
	if err := validateTable(table); err != nil {
		return false, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE symbol = ?", table)
	return r.scanInto(table, out, query, key)
}

func (r *Repository) scanInto(table string, out interface{}, query string, args ...interface{}) (bool, error) {
	var blob []byte
	err := r.db.QueryRow(query, args...).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	if err := msgpack.Unmarshal(blob, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal data from %s: %w", table, err)
	}
	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, key string) error {
	if err := validateTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE symbol = ?", table)
	if _, err := r.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)
	result, err := r.db.Exec(query, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}

	return deleted, nil
}

// DeleteAllExpired removes all expired entries from all tables.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, fmt.Errorf("failed to delete expired from %s: %w", table, err)
		}
		results[table] = deleted
	}

	return results, nil
}

// RecordDiscovery persists a discovery outcome. Failures expire sooner than successes.
func (r *Repository) RecordDiscovery(attempt DiscoveryAttempt) error {
	ttl := TTLDiscoverySuccess
	if !attempt.Success {
		ttl = TTLDiscoveryFailure
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = r.now().UTC()
	}
	return r.Store(tableDiscoveryAttempts, attempt.Symbol, attempt, ttl)
}

// RecentDiscovery returns the unexpired discovery attempt for symbol, or nil.
func (r *Repository) RecentDiscovery(symbol string) (*DiscoveryAttempt, error) {
	var attempt DiscoveryAttempt
	found, err := r.GetIfFresh(tableDiscoveryAttempts, symbol, &attempt)
	if err != nil || !found {
		return nil, err
	}
	return &attempt, nil
}
