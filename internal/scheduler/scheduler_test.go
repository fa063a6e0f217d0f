package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/smart-inbox/internal/fault"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/slot"
	"github.com/nhle/smart-inbox/tests/testutil"
)

var now = time.Date(2025, 12, 1, 6, 0, 0, 0, time.UTC)

func newScheduler(cal *testutil.FakeCalendar) *Scheduler {
	r := slot.NewResolver(cal, nil, nil, slot.WithClock(func() time.Time { return now }))
	return New(cal, r, nil, nil)
}

func TestScheduleDefaultsWithoutTimes(t *testing.T) {
	cal := testutil.NewFakeCalendar(testutil.Event("Busy", now.Add(DefaultLead), time.Hour))
	s := newScheduler(cal)

	res, err := s.Schedule(context.Background(), Request{Subject: "X", Attendee: "a@example.com"})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if cal.ListCalls != 0 {
		t.Fatalf("conflict check performed %d times", cal.ListCalls)
	}
	if cal.InsertCount() != 1 {
		t.Fatalf("inserted %d events", cal.InsertCount())
	}

	ev := cal.Inserted[0]
	wantStart := now.Add(DefaultLead)
	if !ev.Start.Equal(wantStart) || !ev.End.Equal(wantStart.Add(30*time.Minute)) {
		t.Fatalf("booked %v..%v, want %v for 30m", ev.Start, ev.End, wantStart)
	}
	if ev.Summary != "Discussion: X" || ev.Attendee != "a@example.com" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.RequestID != "meet-2025-12-02T06:00:00Z" {
		t.Fatalf("request id = %q", ev.RequestID)
	}
	if res.MeetingLink == "" || res.HasConflict {
		t.Fatalf("result = %+v", res)
	}
	if res.ScheduledTime != "2025-12-02T06:00:00Z" || res.StartTimeLocal != "11:30 AM" || res.EndTimeLocal != "12:00 PM" {
		t.Fatalf("result times = %+v", res)
	}
}

func TestScheduleConflictShortCircuit(t *testing.T) {
	start := time.Date(2025, 12, 27, 4, 30, 0, 0, time.UTC)
	cal := testutil.NewFakeCalendar(testutil.Event("Board review", start, 30*time.Minute))
	s := newScheduler(cal)

	res, err := s.Schedule(context.Background(), Request{
		Subject:        "Sync",
		Start:          model.LocalCivil("2025-12-27T10:00:00"),
		End:            model.LocalCivil("2025-12-27T10:30:00"),
		CheckConflicts: true,
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if cal.InsertCount() != 0 {
		t.Fatal("booking transport called despite conflict")
	}
	if res.MeetingLink != "" || res.Booked() {
		t.Fatalf("expected no booking, got %+v", res)
	}
	if !res.HasConflict || len(res.ConflictingEvents) != 1 || res.ConflictingEvents[0] != "Board review" {
		t.Fatalf("conflict = %+v", res)
	}
	if res.OriginalTime != "2025-12-27T10:00:00" || res.DateFormatted != "27 December 2025" || res.StartTimeLocal != "10:00 AM" {
		t.Fatalf("display = %+v", res)
	}
}

func TestScheduleAutoResolve(t *testing.T) {
	start := time.Date(2025, 12, 27, 4, 30, 0, 0, time.UTC)
	cal := testutil.NewFakeCalendar(testutil.Event("Existing", start, 30*time.Minute))
	s := newScheduler(cal)

	res, err := s.Schedule(context.Background(), Request{
		Subject:        "Sync",
		Start:          model.UTC(start),
		End:            model.UTC(start.Add(30 * time.Minute)),
		CheckConflicts: true,
		AutoResolve:    true,
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if cal.InsertCount() != 1 {
		t.Fatalf("inserted %d", cal.InsertCount())
	}
	ev := cal.Inserted[0]
	wantStart := start.Add(30 * time.Minute)
	if !ev.Start.Equal(wantStart) || !ev.End.Equal(wantStart.Add(30*time.Minute)) {
		t.Fatalf("booked %v..%v, want [10:30, 11:00) IST", ev.Start, ev.End)
	}
	if !res.HasConflict || res.MeetingLink == "" {
		t.Fatalf("result = %+v", res)
	}
	if res.OriginalTime != "2025-12-27T04:30:00Z" || res.ScheduledTime != "2025-12-27T05:00:00Z" {
		t.Fatalf("original/scheduled = %q/%q", res.OriginalTime, res.ScheduledTime)
	}
	if res.StartTimeLocal != "10:30 AM" || res.EndTimeLocal != "11:00 AM" {
		t.Fatalf("local = %s-%s", res.StartTimeLocal, res.EndTimeLocal)
	}
}

func TestScheduleCheckFailureTreatedAsFree(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	cal.ListErr = errors.New("calendar down")
	s := newScheduler(cal)

	res, err := s.Schedule(context.Background(), Request{
		Subject:        "Sync",
		Start:          model.LocalCivil("2025-12-27T16:00:00"),
		CheckConflicts: true,
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if !res.Booked() || res.HasConflict {
		t.Fatalf("result = %+v", res)
	}
	if res.ScheduledTime != "2025-12-27T10:30:00Z" || res.ScheduledEnd != "2025-12-27T11:00:00Z" {
		t.Fatalf("scheduled = %s..%s", res.ScheduledTime, res.ScheduledEnd)
	}
}

func TestScheduleUnparseableStartUsesDefault(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	s := newScheduler(cal)

	res, err := s.Schedule(context.Background(), Request{
		Subject: "Sync",
		Start:   model.LocalCivil("next week sometime"),
		End:     model.LocalCivil("2025-12-27T16:30:00"),
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if want := now.Add(DefaultLead).Format(model.UTCLayout); res.ScheduledTime != want {
		t.Fatalf("scheduled = %s, want %s", res.ScheduledTime, want)
	}
	if res.OriginalTime != "next week sometime" {
		t.Fatalf("original = %q", res.OriginalTime)
	}
}

func TestScheduleEndBeforeStart(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	s := newScheduler(cal)

	res, err := s.Schedule(context.Background(), Request{
		Subject: "Sync",
		Start:   model.LocalCivil("2025-12-27T16:00:00"),
		End:     model.LocalCivil("2025-12-27T15:00:00"),
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if res.ScheduledEnd != "2025-12-27T11:00:00Z" {
		t.Fatalf("end = %s", res.ScheduledEnd)
	}
}

func TestScheduleTwiceBooksTwice(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	s := newScheduler(cal)
	req := Request{Subject: "Sync", Start: model.LocalCivil("2025-12-27T16:00:00")}

	first, err := s.Schedule(context.Background(), req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := s.Schedule(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if cal.InsertCount() != 2 || first.EventID == second.EventID {
		t.Fatalf("expected two separate events, got %d (%s, %s)", cal.InsertCount(), first.EventID, second.EventID)
	}
	if cal.Inserted[0].RequestID != cal.Inserted[1].RequestID {
		t.Fatal("request id should derive from the start time only")
	}
}

func TestScheduleInsertFailure(t *testing.T) {
	cal := testutil.NewFakeCalendar()
	cal.InsertErr = errors.New("googleapi: Error 403: insufficient permissions")
	s := newScheduler(cal)

	_, err := s.Schedule(context.Background(), Request{Subject: "Sync"})

	var fe *fault.Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *fault.Error, got %v", err)
	}
	if fe.Op != "insert event" {
		t.Fatalf("op = %q", fe.Op)
	}
}

func TestBookSkipsCheck(t *testing.T) {
	start := time.Date(2025, 12, 27, 5, 0, 0, 0, time.UTC)
	cal := testutil.NewFakeCalendar(testutil.Event("Busy", start, time.Hour))
	s := newScheduler(cal)

	res, err := s.Book(context.Background(), Request{Subject: "Sync"},
		model.Slot{Start: start, End: start.Add(30 * time.Minute)}, []string{"Busy"})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if cal.ListCalls != 0 || cal.InsertCount() != 1 {
		t.Fatalf("list=%d insert=%d", cal.ListCalls, cal.InsertCount())
	}
	if !res.HasConflict || !res.Booked() {
		t.Fatalf("result = %+v", res)
	}
}
