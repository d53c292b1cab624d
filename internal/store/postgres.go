package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// looseJSON returns a TEXT column as JSON. Values that do not parse are
// returned as a JSON string of the raw text rather than failing the read.
func looseJSON(value sql.NullString) json.RawMessage {
	if !value.Valid {
		return nil
	}
	raw := []byte(value.String)
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	encoded, err := json.Marshal(value.String)
	if err != nil {
		return nil
	}
	return encoded
}

// jsonText is the TEXT form of raw, or NULL when raw is absent or null.
func jsonText(raw json.RawMessage) any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return trimmed
}

func nullableText(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func emptyAsNull(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}
