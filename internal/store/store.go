package store

import (
	"context"
	"time"

	"github.com/nhle/smart-inbox/internal/model"
)

// JudgementRecord is the stored classification of one email.
type JudgementRecord struct {
	MessageID    string          `json:"message_id"`
	ThreadID     string          `json:"thread_id"`
	From         string          `json:"from"`
	Subject      string          `json:"subject"`
	Judgement    model.Judgement `json:"judgement"`
	ClassifiedAt time.Time       `json:"classified_at"`
}

// BookingRecord is one meeting booked for an email.
type BookingRecord struct {
	ID        string              `json:"id"`
	MessageID string              `json:"message_id"`
	Result    model.BookingResult `json:"result"`
	CreatedAt time.Time           `json:"created_at"`
}

// JudgementFilter controls judgement queries.
type JudgementFilter struct {
	Action *model.Action
	Limit  int
	Offset int
}

// Store defines the persistence interface for classification results,
// booked meetings and conflicts awaiting a decision.
type Store interface {
	// === Judgements ===

	SaveJudgement(ctx context.Context, email model.EmailMessage, j model.Judgement) error
	LookupJudgement(ctx context.Context, messageID string) (model.Judgement, bool, error)
	ListJudgements(ctx context.Context, filter JudgementFilter) ([]JudgementRecord, error)

	// === Bookings ===

	SaveBooking(ctx context.Context, messageID string, res model.BookingResult) error
	ListBookings(ctx context.Context, messageID string) ([]BookingRecord, error)

	// === Pending conflicts ===

	PutPending(ctx context.Context, p model.PendingConflict) error
	GetPending(ctx context.Context, messageID string) (*model.PendingConflict, error)
	DeletePending(ctx context.Context, messageID string) error
	ListPending(ctx context.Context) ([]model.PendingConflict, error)

	Close() error
}
