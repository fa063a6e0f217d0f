package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/source"
	"github.com/nhle/smart-inbox/internal/triage"
	"github.com/nhle/smart-inbox/tests/testutil"
)

type replyAll struct{}

func (replyAll) Classify(_ context.Context, _ model.EmailMessage) model.Judgement {
	return model.Judgement{Action: model.ActionReply, Priority: model.PriorityNormal}
}

func TestPollClassifiesOnlyNewMail(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	mail := &testutil.FakeMail{Inbox: []model.EmailMessage{
		{ID: "new", From: "a@example.com", Subject: "hi", Body: "hello"},
		{ID: "old", From: "b@example.com", Subject: "re", Body: "again"},
	}}
	if err := s.SaveJudgement(ctx, mail.Inbox[1], model.Judgement{Action: model.ActionIgnore}); err != nil {
		t.Fatalf("SaveJudgement: %v", err)
	}

	runner := triage.NewRunner(replyAll{}, nil, nil, triage.WithJournal(s))
	p := New(mail, runner, s, 10, time.Minute, nil)

	msg := p.Poll(ctx)
	if msg.Error != nil || msg.Fetched != 2 {
		t.Fatalf("msg = %+v", msg)
	}
	if len(msg.Results) != 1 || msg.Results[0].Email.ID != "new" {
		t.Fatalf("results = %+v", msg.Results)
	}
	if len(msg.Stored) != 1 || msg.Stored[0].Judgement.Action != model.ActionIgnore {
		t.Fatalf("stored = %+v", msg.Stored)
	}
	if p.Status().State != SyncIdle {
		t.Fatalf("state = %v", p.Status().State)
	}

	// The journal marks it as seen for the next round.
	if msg := p.Poll(ctx); len(msg.Results) != 0 || len(msg.Stored) != 2 {
		t.Fatalf("second poll = %+v", msg)
	}
}

type countingClassifier struct{ calls int }

func (c *countingClassifier) Classify(_ context.Context, _ model.EmailMessage) model.Judgement {
	c.calls++
	return model.Judgement{Action: model.ActionReply, Priority: model.PriorityNormal}
}

func TestFreshPollerRecallsEarlierBatch(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	mail := &testutil.FakeMail{Inbox: []model.EmailMessage{
		{ID: "m1", From: "a@example.com", Subject: "lunch?", Body: "free on friday?"},
	}}

	first := &countingClassifier{}
	triage.NewRunner(first, nil, nil, triage.WithJournal(s)).ClassifyBatch(ctx, mail.Inbox, nil)

	again := &countingClassifier{}
	p := New(mail, triage.NewRunner(again, nil, nil, triage.WithJournal(s)), s, 10, time.Minute, nil)
	msg := p.Poll(ctx)

	all := msg.All()
	if msg.Fetched != 1 || len(all) != 1 || all[0].Email.ID != "m1" {
		t.Fatalf("delivered = %+v", all)
	}
	if all[0].Judgement.Action != model.ActionReply {
		t.Fatalf("judgement = %+v", all[0].Judgement)
	}
	if again.calls != 0 {
		t.Fatalf("stored message reclassified %d times", again.calls)
	}
}

func TestAllNewestFirst(t *testing.T) {
	day := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	msg := InboxMsg{
		Results: []triage.ItemResult{{Email: model.EmailMessage{ID: "mid", ReceivedAt: day.Add(time.Hour)}}},
		Stored: []triage.ItemResult{
			{Email: model.EmailMessage{ID: "new", ReceivedAt: day.Add(2 * time.Hour)}},
			{Email: model.EmailMessage{ID: "old", ReceivedAt: day}},
		},
	}
	var got []string
	for _, r := range msg.All() {
		got = append(got, r.Email.ID)
	}
	if len(got) != 3 || got[0] != "new" || got[1] != "mid" || got[2] != "old" {
		t.Fatalf("order = %v", got)
	}
}

func TestPollAuthError(t *testing.T) {
	mail := &testutil.FakeMail{ListErr: &source.AuthError{Provider: source.ProviderGmail, Message: "token expired"}}
	p := New(mail, triage.NewRunner(replyAll{}, nil, nil), nil, 10, 0, nil)

	msg := p.Poll(context.Background())
	if msg.Error == nil || msg.AuthError == "" {
		t.Fatalf("msg = %+v", msg)
	}
	if st := p.Status(); st.State != SyncError || st.Error == nil {
		t.Fatalf("status = %+v", st)
	}
}

func TestPollPlainError(t *testing.T) {
	mail := &testutil.FakeMail{ListErr: errors.New("connection reset")}
	p := New(mail, triage.NewRunner(replyAll{}, nil, nil), nil, 10, 0, nil)

	if msg := p.Poll(context.Background()); msg.Error == nil || msg.AuthError != "" {
		t.Fatalf("msg = %+v", msg)
	}
}

func TestStartDeliversFirstPoll(t *testing.T) {
	mail := &testutil.FakeMail{Inbox: []model.EmailMessage{{ID: "1", Body: "x", Subject: "s"}}}
	p := New(mail, triage.NewRunner(replyAll{}, nil, nil), nil, 10, time.Hour, nil)
	t.Cleanup(p.Stop)

	cmd := p.Start()
	if cmd == nil {
		t.Fatal("Start returned nil")
	}
	if p.Start() != nil {
		t.Fatal("second Start should be a no-op")
	}

	msg, ok := cmd().(InboxMsg)
	if !ok || len(msg.Results) != 1 {
		t.Fatalf("msg = %+v", msg)
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	mail := &testutil.FakeMail{}
	p := New(mail, triage.NewRunner(replyAll{}, nil, nil), nil, 10, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	rounds := 0
	err := p.Watch(ctx, func(InboxMsg) {
		rounds++
		cancel()
	})
	if !errors.Is(err, context.Canceled) || rounds != 1 {
		t.Fatalf("Watch = %v after %d rounds", err, rounds)
	}
}
