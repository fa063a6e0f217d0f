package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/scheduler"
	"github.com/nhle/smart-inbox/internal/slot"
	"github.com/nhle/smart-inbox/internal/source"
	"github.com/nhle/smart-inbox/internal/triage"
	"github.com/nhle/smart-inbox/tests/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	clock = time.Date(2025, 12, 1, 6, 0, 0, 0, time.UTC)
	busy  = time.Date(2025, 12, 27, 4, 30, 0, 0, time.UTC) // 10:00 IST
)

type meetAll struct{}

func (meetAll) Classify(_ context.Context, e model.EmailMessage) model.Judgement {
	return model.Judgement{
		Action:    model.ActionScheduleMeet,
		Priority:  model.PriorityNormal,
		Summary:   e.Subject,
		StartTime: "2025-12-27T10:00:00",
	}
}

type fixture struct {
	srv  *Server
	cal  *testutil.FakeCalendar
	mail *testutil.FakeMail
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cal := testutil.NewFakeCalendar(testutil.Event("Standup", busy, 30*time.Minute))
	mail := &testutil.FakeMail{}
	r := slot.NewResolver(cal, nil, nil, slot.WithClock(func() time.Time { return clock }))
	sched := scheduler.New(cal, r, nil, nil)

	runner := triage.NewRunner(meetAll{}, sched, nil, triage.WithMail(mail))
	session := triage.NewSession(triage.SessionDeps{
		Classifier: meetAll{},
		Booker:     sched,
		Finder:     r,
		Mail:       mail,
		Now:        func() time.Time { return clock },
	})
	srv := New(Deps{
		Batch:       runner,
		Session:     session,
		Finder:      r,
		ScheduleOpt: triage.DefaultScheduleOptions(),
	})
	return fixture{srv: srv, cal: cal, mail: mail}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %s: %v", rec.Body.String(), err)
	}
}

var email = model.EmailMessage{ID: "m1", ThreadID: "t1", From: "bob@example.com", Subject: "Sync", Body: "10am on the 27th?"}

func TestHealth(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestClassify(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/classify", email)
	var j model.Judgement
	decode(t, rec, &j)
	if rec.Code != http.StatusOK || j.Action != model.ActionScheduleMeet || j.Summary != "Sync" {
		t.Fatalf("%d %+v", rec.Code, j)
	}

	rec = f.do(t, http.MethodPost, "/classify/batch", map[string]any{"emails": []model.EmailMessage{email, {ID: "empty"}}})
	var batch struct {
		Results []itemResponse `json:"results"`
	}
	decode(t, rec, &batch)
	if len(batch.Results) != 2 || batch.Results[1].Judgement.Action != model.ActionIgnore {
		t.Fatalf("batch = %+v", batch)
	}
}

func TestClassifyBadBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestScheduleConflictThenAccept(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/schedule", scheduleRequest{Email: email, Judgement: meetAll{}.Classify(context.Background(), email)})
	var out triage.SingleOutcome
	decode(t, rec, &out)
	if rec.Code != http.StatusOK || out.State != slot.ConflictPending || out.Pending == nil {
		t.Fatalf("%d %+v", rec.Code, out)
	}

	rec = f.do(t, http.MethodGet, "/pending", nil)
	var list struct {
		Pending []model.PendingConflict `json:"pending"`
	}
	decode(t, rec, &list)
	if len(list.Pending) != 1 || list.Pending[0].MessageID != "m1" {
		t.Fatalf("pending = %+v", list)
	}

	rec = f.do(t, http.MethodPost, "/pending/m1/another", nil)
	var p model.PendingConflict
	decode(t, rec, &p)
	if !p.NextStart.Equal(busy.Add(time.Hour)) {
		t.Fatalf("another = %v", p.NextStart)
	}

	rec = f.do(t, http.MethodPost, "/pending/m1/accept", nil)
	decode(t, rec, &out)
	if rec.Code != http.StatusOK || out.State != slot.Confirmed || !out.Result.HasConflict {
		t.Fatalf("%d %+v", rec.Code, out)
	}
	if f.cal.InsertCount() != 1 || len(f.mail.Sent) != 1 {
		t.Fatalf("inserted=%d sent=%d", f.cal.InsertCount(), len(f.mail.Sent))
	}

	if rec := f.do(t, http.MethodPost, "/pending/m1/accept", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second accept status = %d", rec.Code)
	}
}

func TestCancelPending(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/schedule", scheduleRequest{Email: email, Judgement: meetAll{}.Classify(context.Background(), email)})

	if rec := f.do(t, http.MethodDelete, "/pending/m1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/pending/m1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestScheduleUpstreamStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"quota", errors.New("calendar quota exceeded"), http.StatusTooManyRequests},
		{"auth", &source.AuthError{Provider: source.ProviderGmail, Message: "token revoked"}, http.StatusUnauthorized},
		{"other", errors.New("connection reset"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cal.InsertErr = tt.err

			j := model.Judgement{Action: model.ActionScheduleMeet, StartTime: "2025-12-27T14:00:00"}
			rec := f.do(t, http.MethodPost, "/schedule", scheduleRequest{Email: email, Judgement: j})
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestScheduleBatchAutoResolves(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{"items": []scheduleRequest{
		{Email: email, Judgement: meetAll{}.Classify(context.Background(), email)},
	}}
	rec := f.do(t, http.MethodPost, "/schedule/batch", body)
	var rep struct {
		Succeeded int `json:"succeeded"`
		Conflicts int `json:"conflicts"`
	}
	decode(t, rec, &rep)
	if rep.Succeeded != 1 || rep.Conflicts != 1 {
		t.Fatalf("report = %s", rec.Body.String())
	}
	if !f.cal.Inserted[0].Start.Equal(busy.Add(30 * time.Minute)) {
		t.Fatalf("booked at %v", f.cal.Inserted[0].Start)
	}
}

func TestScheduleBatchOverrides(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{
		"auto_resolve": false,
		"items": []scheduleRequest{
			{Email: email, Judgement: meetAll{}.Classify(context.Background(), email)},
		},
	}
	rec := f.do(t, http.MethodPost, "/schedule/batch", body)
	var rep struct {
		Succeeded int `json:"succeeded"`
		Conflicts int `json:"conflicts"`
	}
	decode(t, rec, &rep)
	if rep.Succeeded != 0 || rep.Conflicts != 1 || f.cal.InsertCount() != 0 {
		t.Fatalf("report = %s", rec.Body.String())
	}
}

func TestNextSlot(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/slots/next", map[string]any{"preferred": "2025-12-27T09:30:00"})
	var got slotResponse
	decode(t, rec, &got)
	// 10:00 is busy, so the first free step after 09:30 is 10:30 IST.
	if !got.Start.Equal(busy.Add(30*time.Minute)) || got.End.Sub(got.Start) != 30*time.Minute {
		t.Fatalf("slot = %+v", got)
	}
	if got.Display.DateFormatted != "27 December 2025" {
		t.Fatalf("display = %+v", got.Display)
	}

	if rec := f.do(t, http.MethodPost, "/slots/next", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing preferred status = %d", rec.Code)
	}
}
