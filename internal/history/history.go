package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skufu/symptom-checker/internal/model"
)

// DefaultRecentLimit is how many entries the history endpoint returns.
const DefaultRecentLimit = 50

// Sink records query log entries. Writes are independent of each other.
type Sink interface {
	Record(ctx context.Context, entry model.QueryLogEntry) error
}

type Reader interface {
	Recent(ctx context.Context, limit int) ([]model.QueryLogEntry, error)
	Count(ctx context.Context) (int, error)
	CountEmergencies(ctx context.Context) (int, error)
}

type Store interface {
	Sink
	Reader
}

// prepare fills the identity and timestamps the caller left empty.
func prepare(entry model.QueryLogEntry, now time.Time) model.QueryLogEntry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	if entry.ClarificationAnswers == nil {
		entry.ClarificationAnswers = []model.ClarificationAnswer{}
	}
	return entry
}

// MemoryLog keeps the most recent entries in process, dropping the oldest
// once capacity is reached.
type MemoryLog struct {
	mu       sync.Mutex
	entries  []model.QueryLogEntry
	capacity int
	total    int
	emerg    int
	now      func() time.Time
}

const DefaultMemoryCapacity = 1000

func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryLog{capacity: capacity, now: time.Now}
}

func (l *MemoryLog) Record(ctx context.Context, entry model.QueryLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry = prepare(entry, l.now().UTC())
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.capacity {
		l.entries = append(l.entries[:0:0], l.entries[len(l.entries)-l.capacity:]...)
	}
	l.total++
	if entry.IsEmergency {
		l.emerg++
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *MemoryLog) Recent(ctx context.Context, limit int) ([]model.QueryLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]model.QueryLogEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

// Count returns every entry ever recorded, including evicted ones.
func (l *MemoryLog) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total, nil
}

func (l *MemoryLog) CountEmergencies(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.emerg, nil
}
