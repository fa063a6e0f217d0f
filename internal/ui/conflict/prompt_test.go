package conflict

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/slot"
	"github.com/nhle/smart-inbox/internal/triage"
)

type fakeSession struct {
	accepted, cancelled []string
	another             int
}

func (f *fakeSession) AcceptPending(_ context.Context, id string) (triage.SingleOutcome, error) {
	f.accepted = append(f.accepted, id)
	return triage.SingleOutcome{
		State:   slot.Confirmed,
		Result:  model.BookingResult{MeetingLink: "https://meet.google.com/x", DateTimeFull: "27 December 2025 at 11:00 AM IST"},
		Replied: true,
	}, nil
}

func (f *fakeSession) FindAnother(_ context.Context, id string) (*model.PendingConflict, error) {
	f.another++
	start := time.Date(2025, 12, 27, 5, 30, 0, 0, time.UTC)
	return &model.PendingConflict{MessageID: id, NextStart: start, NextEnd: start.Add(30 * time.Minute), NextTime: "11:00 AM - 11:30 AM IST"}, nil
}

func (f *fakeSession) CancelPending(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

// script answers with each decision in turn.
func script(ds ...Decision) (AskFunc, *[]model.PendingConflict) {
	var seen []model.PendingConflict
	return func(p model.PendingConflict) (Decision, error) {
		seen = append(seen, p)
		d := ds[0]
		ds = ds[1:]
		return d, nil
	}, &seen
}

func TestResolveAnotherThenAccept(t *testing.T) {
	s := &fakeSession{}
	ask, seen := script(Another, Accept)
	var out strings.Builder

	d, err := Resolve(context.Background(), s, model.PendingConflict{MessageID: "m1", NextTime: "10:30 AM - 11:00 AM IST"}, ask, &out)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d != Accept || s.another != 1 || len(s.accepted) != 1 {
		t.Fatalf("d=%s another=%d accepted=%v", d, s.another, s.accepted)
	}
	if (*seen)[1].NextTime != "11:00 AM - 11:30 AM IST" {
		t.Fatalf("second prompt showed %q", (*seen)[1].NextTime)
	}
	if !strings.Contains(out.String(), "Meeting booked") {
		t.Fatalf("out:\n%s", out.String())
	}
}

func TestResolveCancelAndSkip(t *testing.T) {
	s := &fakeSession{}
	var out strings.Builder
	p := model.PendingConflict{MessageID: "m1", Email: model.EmailMessage{Subject: "Roadmap"}}

	ask, _ := script(Cancel)
	if d, err := Resolve(context.Background(), s, p, ask, &out); err != nil || d != Cancel {
		t.Fatalf("Resolve = %s, %v", d, err)
	}
	if len(s.cancelled) != 1 || !strings.Contains(out.String(), `"Roadmap"`) {
		t.Fatalf("cancelled=%v out=%q", s.cancelled, out.String())
	}

	ask, _ = script(Skip)
	if d, _ := Resolve(context.Background(), s, p, ask, &out); d != Skip {
		t.Fatalf("d = %s", d)
	}
	if len(s.accepted) != 0 || len(s.cancelled) != 1 {
		t.Fatal("skip must not change state")
	}
}
