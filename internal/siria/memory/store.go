package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

const (
	// maxSourceLen bounds the provenance text stored with each fact.
	maxSourceLen = 500

	// recentFactsLimit bounds how many facts are considered when rendering
	// the memory context.
	recentFactsLimit = 30
)

// FactStore persists extracted facts in the memory_facts table of the shared
// SQLite database. Identity keys (first_name, last_name) keep a single live
// value per owner; likes accumulate, de-duplicated on the exact
// (owner, key, value) triple by the table's uniqueness constraint.
type FactStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFactStore creates a FactStore over the given database connection.
// The memory_facts table must exist (created by migration 0001_init.sql).
// If logger is nil, the default slog logger is used.
func NewFactStore(db *sql.DB, logger *slog.Logger) *FactStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FactStore{db: db, logger: logger}
}

// Upsert stores the extracted facts for an owner. Values are normalized
// first and empty values are skipped. For identity keys, existing rows for
// the owner+key are deleted before the insert (latest wins). Repeated
// identical statements are absorbed by INSERT OR IGNORE — no duplicate rows.
func (f *FactStore) Upsert(ctx context.Context, owner Owner, facts []Fact, source string) error {
	if owner.IsZero() || len(facts) == 0 {
		return nil
	}

	source = truncateRunes(source, maxSourceLen)
	ref := owner.Ref()

	for _, fact := range facts {
		value := NormalizeText(fact.Value)
		if value == "" {
			continue
		}

		if fact.Key == KeyFirstName || fact.Key == KeyLastName {
			_, err := f.db.ExecContext(ctx,
				"DELETE FROM memory_facts WHERE owner_ref = ? AND fact_key = ?",
				ref, fact.Key,
			)
			if err != nil {
				return fmt.Errorf("memory: delete stale %s: %w", fact.Key, err)
			}
		}

		_, err := f.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO memory_facts (owner_ref, fact_key, fact_value, source, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, ref, fact.Key, value, source, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("memory: insert fact %s: %w", fact.Key, err)
		}
	}

	f.logger.Debug("memory: upserted facts", "owner", ref, "facts", len(facts))

	return nil
}

// Recent returns up to limit facts for the owner, most recently stored
// first. Rows are ordered by insertion id: identity keys are re-inserted on
// update and accumulated likes never change in place, so insertion order is
// update order.
func (f *FactStore) Recent(ctx context.Context, owner Owner, limit int) ([]Fact, error) {
	if owner.IsZero() || limit <= 0 {
		return nil, nil
	}

	rows, err := f.db.QueryContext(ctx, `
		SELECT fact_key, fact_value
		FROM memory_facts
		WHERE owner_ref = ?
		ORDER BY id DESC
		LIMIT ?
	`, owner.Ref(), limit)
	if err != nil {
		return nil, fmt.Errorf("memory: query facts: %w", err)
	}
	defer rows.Close()

	var facts []Fact
	for rows.Next() {
		var fact Fact
		if err := rows.Scan(&fact.Key, &fact.Value); err != nil {
			return nil, fmt.Errorf("memory: scan fact: %w", err)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: iterate facts: %w", err)
	}

	return facts, nil
}

// ContextFor renders the prompt-injection memory block for an owner.
// Returns the empty string when the owner has no stored facts, which
// signals the caller to omit the block entirely.
func (f *FactStore) ContextFor(ctx context.Context, owner Owner) (string, error) {
	facts, err := f.Recent(ctx, owner, recentFactsLimit)
	if err != nil {
		return "", err
	}
	return RenderContext(facts), nil
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
