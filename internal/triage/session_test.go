package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/slot"
	"github.com/nhle/smart-inbox/internal/source"
	"github.com/nhle/smart-inbox/tests/testutil"
)

type journalSpy struct {
	judgements []string
	bookings   []string
}

func (j *journalSpy) SaveJudgement(_ context.Context, e model.EmailMessage, _ model.Judgement) error {
	j.judgements = append(j.judgements, e.ID)
	return nil
}

func (j *journalSpy) SaveBooking(_ context.Context, id string, _ model.BookingResult) error {
	j.bookings = append(j.bookings, id)
	return nil
}

// busyAt returns a calendar with a meeting at 10:00-10:30 IST on 27 Dec 2025.
func busyAt() (*testutil.FakeCalendar, time.Time) {
	start := time.Date(2025, 12, 27, 4, 30, 0, 0, time.UTC)
	return testutil.NewFakeCalendar(testutil.Event("Standup", start, 30*time.Minute)), start
}

func newSession(cal *testutil.FakeCalendar, mail source.Mail, journal Journal) *Session {
	booker, resolver := newBooker(cal)
	return NewSession(SessionDeps{
		Classifier: classifierFunc(func(model.EmailMessage) model.Judgement {
			return model.Judgement{Action: model.ActionScheduleMeet, Date: "2025-12-27"}
		}),
		Booker:  booker,
		Finder:  resolver,
		Mail:    mail,
		Journal: journal,
		Now:     func() time.Time { return clock },
	})
}

var meetingEmail = model.EmailMessage{
	ID:       "msg-1",
	ThreadID: "thr-1",
	From:     "alice@example.com",
	Subject:  "Roadmap",
	Body:     "Can we meet on 27 December?",
}

func TestSessionClassifyKeepsLast(t *testing.T) {
	cal, _ := busyAt()
	spy := &journalSpy{}
	s := newSession(cal, nil, spy)

	if _, ok := s.Last(); ok {
		t.Fatal("fresh session has a last result")
	}
	j := s.Classify(context.Background(), meetingEmail)
	last, ok := s.Last()
	if !ok || last.Email.ID != "msg-1" || last.Judgement != j {
		t.Fatalf("last = %+v, %v", last, ok)
	}
	if len(spy.judgements) != 1 {
		t.Fatalf("journal = %+v", spy.judgements)
	}
}

func TestSessionConflictFlow(t *testing.T) {
	cal, busy := busyAt()
	mail := &testutil.FakeMail{}
	spy := &journalSpy{}
	s := newSession(cal, mail, spy)
	ctx := context.Background()

	j := s.Classify(ctx, meetingEmail)
	out, err := s.ScheduleOne(ctx, meetingEmail, j, nil)
	if err != nil {
		t.Fatalf("ScheduleOne: %v", err)
	}
	if out.State != slot.ConflictPending || out.Pending == nil {
		t.Fatalf("outcome = %+v", out)
	}
	if cal.InsertCount() != 0 || len(mail.Sent) != 0 {
		t.Fatal("conflicting request must not book or reply")
	}

	p := out.Pending
	if !p.NextStart.Equal(busy.Add(30*time.Minute)) || p.Offer().Duration() != 30*time.Minute {
		t.Fatalf("offer = %v..%v", p.NextStart, p.NextEnd)
	}
	if p.NextDate != "27 December 2025" || p.NextTime != "10:30 AM - 11:00 AM IST" {
		t.Fatalf("display = %q / %q", p.NextDate, p.NextTime)
	}
	if len(p.ConflictingEvents) != 1 || p.ConflictingEvents[0] != "Standup" {
		t.Fatalf("conflicts = %v", p.ConflictingEvents)
	}

	// Find another moves one step past the current offer.
	p2, err := s.FindAnother(ctx, "msg-1")
	if err != nil {
		t.Fatalf("FindAnother: %v", err)
	}
	if !p2.NextStart.Equal(busy.Add(time.Hour)) {
		t.Fatalf("another = %v", p2.NextStart)
	}

	accepted, err := s.AcceptPending(ctx, "msg-1")
	if err != nil {
		t.Fatalf("AcceptPending: %v", err)
	}
	if !accepted.Result.Booked() || !accepted.Replied {
		t.Fatalf("accepted = %+v", accepted)
	}
	if !cal.Inserted[0].Start.Equal(busy.Add(time.Hour)) {
		t.Fatalf("booked at %v", cal.Inserted[0].Start)
	}
	if len(mail.Sent) != 1 || !strings.Contains(mail.Sent[0].Body, conflictNote) {
		t.Fatalf("reply = %+v", mail.Sent)
	}
	if mail.Sent[0].Original.ThreadID != "thr-1" {
		t.Fatalf("reply not threaded: %+v", mail.Sent[0].Original)
	}
	if len(spy.bookings) != 1 {
		t.Fatalf("bookings = %v", spy.bookings)
	}

	if _, err := s.GetPending(ctx, "msg-1"); !errors.Is(err, ErrNoPending) {
		t.Fatalf("pending not cleared: %v", err)
	}
}

func TestSessionScheduleOneFree(t *testing.T) {
	cal, _ := busyAt()
	mail := &testutil.FakeMail{}
	s := newSession(cal, mail, nil)

	override := &model.SlotRequest{
		Start: model.LocalCivil("2025-12-27T14:00:00"),
		End:   model.LocalCivil("2025-12-27T15:00:00"),
	}
	out, err := s.ScheduleOne(context.Background(), meetingEmail, model.Judgement{}, override)
	if err != nil {
		t.Fatalf("ScheduleOne: %v", err)
	}
	if out.State != slot.Confirmed || !out.Replied {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Result.StartTimeLocal != "02:00 PM" || out.Result.EndTimeLocal != "03:00 PM" {
		t.Fatalf("times = %s-%s", out.Result.StartTimeLocal, out.Result.EndTimeLocal)
	}
	if strings.Contains(mail.Sent[0].Body, conflictNote) {
		t.Fatal("unexpected conflict note")
	}
}

func TestSessionOfferUsesDefaultDuration(t *testing.T) {
	cal, busy := busyAt()
	s := newSession(cal, nil, nil)

	hour := &model.SlotRequest{
		Start: model.LocalCivil("2025-12-27T10:00:00"),
		End:   model.LocalCivil("2025-12-27T11:00:00"),
	}
	out, err := s.ScheduleOne(context.Background(), meetingEmail, model.Judgement{}, hour)
	if err != nil || out.Pending == nil {
		t.Fatalf("ScheduleOne = %+v, %v", out, err)
	}
	offer := out.Pending.Offer()
	if !offer.Start.Equal(busy.Add(30*time.Minute)) || offer.Duration() != 30*time.Minute {
		t.Fatalf("offer = %v..%v", offer.Start, offer.End)
	}
}

func TestSessionCancelPending(t *testing.T) {
	cal, _ := busyAt()
	s := newSession(cal, nil, nil)
	ctx := context.Background()

	if err := s.CancelPending(ctx, "missing"); !errors.Is(err, ErrNoPending) {
		t.Fatalf("CancelPending(missing) = %v", err)
	}

	j := s.Classify(ctx, meetingEmail)
	if _, err := s.ScheduleOne(ctx, meetingEmail, j, nil); err != nil {
		t.Fatalf("ScheduleOne: %v", err)
	}
	list, err := s.Pending(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("Pending = %v, %v", list, err)
	}

	if err := s.CancelPending(ctx, "msg-1"); err != nil {
		t.Fatalf("CancelPending: %v", err)
	}
	list, _ = s.Pending(ctx)
	if len(list) != 0 {
		t.Fatalf("pending after cancel = %v", list)
	}
	if cal.InsertCount() != 0 {
		t.Fatal("cancel must not book")
	}
}

func TestSessionReply(t *testing.T) {
	cal, _ := busyAt()
	if err := newSession(cal, nil, nil).Reply(context.Background(), meetingEmail, "hi"); err == nil {
		t.Fatal("expected error without mail transport")
	}

	mail := &testutil.FakeMail{}
	s := newSession(cal, mail, nil)
	if err := s.Reply(context.Background(), meetingEmail, ""); !errors.Is(err, errNoReply) {
		t.Fatalf("empty body: %v", err)
	}
	if err := s.Reply(context.Background(), meetingEmail, "Sounds good"); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(mail.Sent) != 1 {
		t.Fatalf("sent = %d", len(mail.Sent))
	}
}
