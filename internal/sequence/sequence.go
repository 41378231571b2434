// Package sequence hands out per-partition, gap-free event sequence numbers.
package sequence

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

type Queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres keeps counters in the event_sequence table.
type Postgres struct {
	db Queryer
}

func NewPostgres(db Queryer) *Postgres {
	return &Postgres{db: db}
}

// NextSequence increments the partition's counter in one statement and
// returns the new value. The first call for a partition returns 1.
func (p *Postgres) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	var seq int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO event_sequence (partition_key, last_sequence)
		VALUES ($1, 1)
		ON CONFLICT (partition_key)
		DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = now()
		RETURNING last_sequence
	`, partitionKey).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", partitionKey, err)
	}
	return seq, nil
}

// Memory is the process-local counterpart used with the memory store driver.
type Memory struct {
	mu   sync.Mutex
	last map[string]int64
}

func NewMemory() *Memory {
	return &Memory{last: make(map[string]int64)}
}

func (m *Memory) NextSequence(_ context.Context, partitionKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[partitionKey]++
	return m.last[partitionKey], nil
}
