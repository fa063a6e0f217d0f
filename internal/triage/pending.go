package triage

import (
	"context"
	"sort"
	"sync"

	"github.com/nhle/smart-inbox/internal/model"
)

// ErrNoPending is returned when no pending conflict exists for a message.
var ErrNoPending = model.ErrNoPending

// PendingStore keeps conflicts awaiting a decision, keyed by message id.
type PendingStore interface {
	PutPending(ctx context.Context, p model.PendingConflict) error
	// GetPending returns ErrNoPending (possibly wrapped) when id is unknown.
	GetPending(ctx context.Context, messageID string) (*model.PendingConflict, error)
	DeletePending(ctx context.Context, messageID string) error
	ListPending(ctx context.Context) ([]model.PendingConflict, error)
}

// Journal records classification and booking outcomes.
type Journal interface {
	SaveJudgement(ctx context.Context, email model.EmailMessage, j model.Judgement) error
	SaveBooking(ctx context.Context, messageID string, res model.BookingResult) error
}

// MemoryPending is a PendingStore held in process memory.
type MemoryPending struct {
	mu    sync.Mutex
	items map[string]model.PendingConflict
}

// NewMemoryPending returns an empty in-memory store.
func NewMemoryPending() *MemoryPending {
	return &MemoryPending{items: make(map[string]model.PendingConflict)}
}

// PutPending stores p, keeping the creation time of an entry it replaces.
func (m *MemoryPending) PutPending(_ context.Context, p model.PendingConflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.items[p.MessageID]; ok {
		p.CreatedAt = prev.CreatedAt
	}
	m.items[p.MessageID] = p
	return nil
}

func (m *MemoryPending) GetPending(_ context.Context, messageID string) (*model.PendingConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[messageID]
	if !ok {
		return nil, ErrNoPending
	}
	return &p, nil
}

func (m *MemoryPending) DeletePending(_ context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, messageID)
	return nil
}

// ListPending returns conflicts oldest first.
func (m *MemoryPending) ListPending(_ context.Context) ([]model.PendingConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PendingConflict, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
