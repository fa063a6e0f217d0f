// Package slot checks calendar availability and searches forward for the
// next free meeting slot.
package slot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/smart-inbox/internal/civiltime"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/source"
)

const (
	// DefaultDuration is the meeting length when none is given.
	DefaultDuration = 30 * time.Minute
	// Step is the increment between probed start times.
	Step = 30 * time.Minute
	// MaxProbes bounds the forward search to 24 hours of 30-minute steps.
	MaxProbes = 48
	// Fallback is added to the preferred start when the search finds nothing,
	// and to the current time when the preferred start is unusable.
	Fallback = 24 * time.Hour

	// UntitledEvent names conflicting events with a blank title.
	UntitledEvent = "Untitled Event"
)

// State is the outcome of resolving one requested slot.
type State int

const (
	Requested State = iota
	Confirmed
	ConflictPending
	ConflictAutoResolved
)

func (s State) String() string {
	switch s {
	case Confirmed:
		return "CONFIRMED"
	case ConflictPending:
		return "CONFLICT_PENDING"
	case ConflictAutoResolved:
		return "CONFLICT_AUTO_RESOLVED"
	default:
		return "REQUESTED"
	}
}

// MarshalText encodes s by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a name produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Requested, Confirmed, ConflictPending, ConflictAutoResolved} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown slot state %q", b)
}

// Resolution is the result of Resolve.
type Resolution struct {
	State State

	// Slot is the slot to book: the requested one when confirmed or pending,
	// the searched one when auto-resolved.
	Slot model.Slot

	ConflictingEvents []string
}

// Resolver answers availability questions against a calendar.
type Resolver struct {
	cal       source.Calendar
	norm      *civiltime.Normalizer
	log       *zap.Logger
	now       func() time.Time
	step      time.Duration
	maxProbes int
	duration  time.Duration
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSearch overrides the probe step and count.
func WithSearch(step time.Duration, maxProbes int) Option {
	return func(r *Resolver) {
		if step > 0 {
			r.step = step
		}
		if maxProbes > 0 {
			r.maxProbes = maxProbes
		}
	}
}

// NewResolver returns a Resolver that reads busy time from cal.
func NewResolver(
	cal source.Calendar,
	norm *civiltime.Normalizer,
	log *zap.Logger,
	opts ...Option,
) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if norm == nil {
		norm = civiltime.New(log)
	}
	r := &Resolver{
		cal:       cal,
		norm:      norm,
		log:       log,
		now:       time.Now,
		step:      Step,
		maxProbes: MaxProbes,
		duration:  DefaultDuration,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the resolver clock in UTC.
func (r *Resolver) Now() time.Time { return r.now().UTC() }

// Conflicts returns the titles of events overlapping [start, end), in
// calendar order.
func (r *Resolver) Conflicts(ctx context.Context, start, end time.Time) ([]string, error) {
	events, err := r.cal.ListEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing events %s..%s: %w",
			start.Format(model.UTCLayout), end.Format(model.UTCLayout), err)
	}

	var titles []string
	for _, ev := range events {
		if !overlaps(ev, start, end) {
			continue
		}
		title := strings.TrimSpace(ev.Title)
		if title == "" {
			title = UntitledEvent
		}
		titles = append(titles, title)
	}
	return titles, nil
}

// overlaps reports whether ev intersects [start, end). Events without
// concrete bounds (all-day entries) always count.
func overlaps(ev model.CalendarEvent, start, end time.Time) bool {
	if ev.Start.IsZero() || ev.End.IsZero() {
		return true
	}
	return ev.Start.Before(end) && ev.End.After(start)
}

// IsSlotFree reports whether [start, end) has no overlapping events. A
// failed calendar query counts as free.
func (r *Resolver) IsSlotFree(ctx context.Context, start, end time.Time) bool {
	titles, err := r.Conflicts(ctx, start, end)
	if err != nil {
		r.log.Warn("availability check failed, assuming free",
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Error(err),
		)
		return true
	}
	return len(titles) == 0
}

// WithDefaultDuration overrides the meeting length used when none is given.
func WithDefaultDuration(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.duration = d
		}
	}
}

// DefaultDuration returns the meeting length used when none is given.
func (r *Resolver) DefaultDuration() time.Duration { return r.duration }

// FindNextFreeSlot scans forward from preferred in fixed steps and returns
// the first free slot of length d. The preferred start itself is never
// offered. When the window is exhausted it returns preferred + 24h without
// checking it; when preferred cannot be interpreted it returns now + 24h.
func (r *Resolver) FindNextFreeSlot(ctx context.Context, preferred model.TimeRef, d time.Duration) model.Slot {
	if d <= 0 {
		d = r.duration
	}

	start, err := r.norm.Resolve(preferred)
	if err != nil {
		r.log.Warn("preferred start not usable, falling back",
			zap.String("preferred", preferred.String()),
			zap.Error(err),
		)
		s := r.Now().Add(Fallback)
		return model.Slot{Start: s, End: s.Add(d)}
	}

	return r.NextFreeAfter(ctx, start, d)
}

// NextFreeAfter is FindNextFreeSlot for an already resolved instant.
func (r *Resolver) NextFreeAfter(ctx context.Context, preferred time.Time, d time.Duration) model.Slot {
	if d <= 0 {
		d = r.duration
	}
	preferred = preferred.UTC()

	for i := 1; i <= r.maxProbes; i++ {
		s := preferred.Add(time.Duration(i) * r.step)
		e := s.Add(d)
		if r.IsSlotFree(ctx, s, e) {
			r.log.Debug("free slot found", zap.Int("probe", i), zap.Time("start", s))
			return model.Slot{Start: s, End: e}
		}
	}

	s := preferred.Add(Fallback)
	r.log.Info("no free slot in search window, using fallback",
		zap.Time("preferred", preferred),
		zap.Time("fallback", s),
	)
	return model.Slot{Start: s, End: s.Add(d)}
}

// Resolve checks requested and decides its state. A conflicting slot is
// either handed back as pending or, with autoResolve, replaced by the next
// free slot of the default duration. The replacement is not re-checked
// before booking.
func (r *Resolver) Resolve(ctx context.Context, requested model.Slot, autoResolve bool) Resolution {
	titles, err := r.Conflicts(ctx, requested.Start, requested.End)
	if err != nil {
		r.log.Warn("conflict check failed, assuming free", zap.Error(err))
		return Resolution{State: Confirmed, Slot: requested}
	}
	if len(titles) == 0 {
		return Resolution{State: Confirmed, Slot: requested}
	}

	if !autoResolve {
		return Resolution{
			State:             ConflictPending,
			Slot:              requested,
			ConflictingEvents: titles,
		}
	}

	next := r.NextFreeAfter(ctx, requested.Start, r.duration)
	return Resolution{
		State:             ConflictAutoResolved,
		Slot:              next,
		ConflictingEvents: titles,
	}
}
