package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/smart-inbox/internal/civiltime"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/scheduler"
	"github.com/nhle/smart-inbox/internal/slot"
	"github.com/nhle/smart-inbox/internal/source"
)

// SlotFinder searches forward for a free slot.
type SlotFinder interface {
	FindNextFreeSlot(ctx context.Context, preferred model.TimeRef, d time.Duration) model.Slot
}

// SessionDeps are the collaborators of a Session. Mail and Journal may be
// nil; Pending defaults to an in-memory store.
type SessionDeps struct {
	Classifier Classifier
	Booker     Booker
	Finder     SlotFinder
	Mail       source.Mail
	Pending    PendingStore
	Journal    Journal
	Normalizer *civiltime.Normalizer
	Log        *zap.Logger
	Now        func() time.Time
}

// Session owns the state of the interactive flows: the last classification
// and the table of conflicts awaiting a decision.
type Session struct {
	classifier Classifier
	booker     Booker
	finder     SlotFinder
	mail       source.Mail
	pending    PendingStore
	journal    Journal
	norm       *civiltime.Normalizer
	log        *zap.Logger
	now        func() time.Time

	mu   sync.Mutex
	last *ItemResult
}

// SingleOutcome is the result of an interactive scheduling action.
type SingleOutcome struct {
	State   slot.State             `json:"state"`
	Result  model.BookingResult    `json:"result"`
	Pending *model.PendingConflict `json:"pending,omitempty"`
	Replied bool                   `json:"replied"`
}

// NewSession returns a Session.
func NewSession(d SessionDeps) *Session {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Normalizer == nil {
		d.Normalizer = civiltime.New(d.Log)
	}
	if d.Pending == nil {
		d.Pending = NewMemoryPending()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Session{
		classifier: d.Classifier,
		booker:     d.Booker,
		finder:     d.Finder,
		mail:       d.Mail,
		pending:    d.Pending,
		journal:    d.Journal,
		norm:       d.Normalizer,
		log:        d.Log,
		now:        d.Now,
	}
}

// Classify classifies email and remembers it as the current item.
func (s *Session) Classify(ctx context.Context, email model.EmailMessage) model.Judgement {
	j := s.classifier.Classify(ctx, email)

	s.mu.Lock()
	s.last = &ItemResult{Email: email, Judgement: j}
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.SaveJudgement(ctx, email, j); err != nil {
			s.log.Warn("saving judgement", zap.String("message_id", email.ID), zap.Error(err))
		}
	}
	return j
}

// Last returns the most recent single-item classification.
func (s *Session) Last() (ItemResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return ItemResult{}, false
	}
	return *s.last, true
}

// ScheduleOne books a meeting for email, checking for conflicts without
// resolving them. On conflict it stores a pending decision offering the
// next free slot. override replaces the slot derived from j.
func (s *Session) ScheduleOne(
	ctx context.Context,
	email model.EmailMessage,
	j model.Judgement,
	override *model.SlotRequest,
) (SingleOutcome, error) {
	req := RequestFor(email, j, true, false)
	if override != nil {
		req.Start = override.Start
		req.End = override.End
	}

	res, err := s.booker.Schedule(ctx, req)
	if err != nil {
		return SingleOutcome{}, fmt.Errorf("scheduling %s: %w", email.ID, err)
	}

	if !res.Booked() && res.HasConflict {
		p, err := s.offer(ctx, email, res)
		if err != nil {
			return SingleOutcome{}, err
		}
		return SingleOutcome{State: slot.ConflictPending, Result: res, Pending: p}, nil
	}

	out := SingleOutcome{State: slot.Confirmed, Result: res}
	out.Replied = s.confirm(ctx, email, res, false)
	return out, nil
}

// offer stores a pending conflict with the next free slot of the default
// duration after the requested start.
func (s *Session) offer(ctx context.Context, email model.EmailMessage, res model.BookingResult) (*model.PendingConflict, error) {
	start, err := civiltime.ParseUTC(res.ScheduledTime)
	if err != nil {
		return nil, fmt.Errorf("reading requested start: %w", err)
	}
	next := s.finder.FindNextFreeSlot(ctx, model.UTC(start), 0)
	now := s.now().UTC()

	p := model.PendingConflict{
		MessageID:         email.ID,
		Email:             email,
		RequestedTime:     res.DateTimeFull,
		ConflictingEvents: res.ConflictingEvents,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.setOffer(&p, next)

	if err := s.pending.PutPending(ctx, p); err != nil {
		return nil, fmt.Errorf("storing pending conflict %s: %w", email.ID, err)
	}
	s.log.Info("conflict pending",
		zap.String("message_id", email.ID),
		zap.Strings("conflicts", p.ConflictingEvents),
		zap.Time("offered_start", next.Start),
	)
	return &p, nil
}

func (s *Session) setOffer(p *model.PendingConflict, next model.Slot) {
	p.NextStart = next.Start.UTC()
	p.NextEnd = next.End.UTC()
	d := s.norm.DisplayTime(next.Start)
	p.NextDate = d.DateFormatted
	p.NextTime = fmt.Sprintf("%s - %s %s", d.Time, s.norm.Clock(next.End), next.Start.In(s.norm.Location()).Format("MST"))
}

// Pending lists conflicts awaiting a decision.
func (s *Session) Pending(ctx context.Context) ([]model.PendingConflict, error) {
	return s.pending.ListPending(ctx)
}

// GetPending returns the pending conflict for messageID.
func (s *Session) GetPending(ctx context.Context, messageID string) (*model.PendingConflict, error) {
	return s.pending.GetPending(ctx, messageID)
}

// AcceptPending books the offered slot without re-checking it, replies with
// a note about the conflict and clears the pending entry.
func (s *Session) AcceptPending(ctx context.Context, messageID string) (SingleOutcome, error) {
	p, err := s.pending.GetPending(ctx, messageID)
	if err != nil {
		return SingleOutcome{}, err
	}

	req := scheduler.Request{
		Subject:     p.Email.Subject,
		Description: p.Email.Body,
		Attendee:    p.Email.From,
		Start:       model.UTC(p.NextStart),
		End:         model.UTC(p.NextEnd),
	}
	res, err := s.booker.Book(ctx, req, p.Offer(), p.ConflictingEvents)
	if err != nil {
		return SingleOutcome{}, fmt.Errorf("booking offered slot for %s: %w", messageID, err)
	}

	out := SingleOutcome{State: slot.Confirmed, Result: res}
	out.Replied = s.confirm(ctx, p.Email, res, true)

	if err := s.pending.DeletePending(ctx, messageID); err != nil {
		s.log.Warn("clearing pending conflict", zap.String("message_id", messageID), zap.Error(err))
	}
	return out, nil
}

// FindAnother replaces the offered slot with the next free slot after it.
func (s *Session) FindAnother(ctx context.Context, messageID string) (*model.PendingConflict, error) {
	p, err := s.pending.GetPending(ctx, messageID)
	if err != nil {
		return nil, err
	}

	next := s.finder.FindNextFreeSlot(ctx, model.UTC(p.NextStart), p.Offer().Duration())
	s.setOffer(p, next)
	p.UpdatedAt = s.now().UTC()

	if err := s.pending.PutPending(ctx, *p); err != nil {
		return nil, fmt.Errorf("updating pending conflict %s: %w", messageID, err)
	}
	return p, nil
}

// CancelPending drops the pending conflict for messageID.
func (s *Session) CancelPending(ctx context.Context, messageID string) error {
	if _, err := s.pending.GetPending(ctx, messageID); err != nil {
		return err
	}
	return s.pending.DeletePending(ctx, messageID)
}

// Reply sends body as a reply to email.
func (s *Session) Reply(ctx context.Context, email model.EmailMessage, body string) error {
	if s.mail == nil {
		return errors.New("no mail transport configured")
	}
	if body == "" {
		return errNoReply
	}
	return s.mail.SendReply(ctx, email, body)
}

// confirm records a booking and mails the confirmation. It reports whether
// the reply was sent.
func (s *Session) confirm(ctx context.Context, email model.EmailMessage, res model.BookingResult, rescheduled bool) bool {
	if s.journal != nil && res.Booked() {
		if err := s.journal.SaveBooking(ctx, email.ID, res); err != nil {
			s.log.Warn("saving booking", zap.String("message_id", email.ID), zap.Error(err))
		}
	}
	if s.mail == nil || !res.Booked() {
		return false
	}
	if err := s.mail.SendReply(ctx, email, MeetingReply(res, rescheduled)); err != nil {
		s.log.Warn("sending confirmation", zap.String("message_id", email.ID), zap.Error(err))
		return false
	}
	return true
}
