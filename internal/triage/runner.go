// Package triage runs classification and scheduling over batches of emails
// and owns the state of interactive single-item flows.
package triage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/smart-inbox/internal/extract"
	"github.com/nhle/smart-inbox/internal/fault"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/scheduler"
	"github.com/nhle/smart-inbox/internal/source"
)

// Progress observes batch progress after each item.
type Progress func(done, total int)

// Classifier produces a judgement for one email and never fails.
type Classifier interface {
	Classify(ctx context.Context, email model.EmailMessage) model.Judgement
}

// Booker schedules meetings.
type Booker interface {
	Schedule(ctx context.Context, req scheduler.Request) (model.BookingResult, error)
	Book(ctx context.Context, req scheduler.Request, booked model.Slot, hadConflict []string) (model.BookingResult, error)
}

var errNoReply = errors.New("no drafted reply")

// ItemResult is the classification of one email in a batch.
type ItemResult struct {
	Email     model.EmailMessage `json:"email"`
	Judgement model.Judgement    `json:"judgement"`

	// Err is set when classification of this item crashed; Judgement then
	// holds the fallback.
	Err error `json:"-"`
}

// Outcome is the scheduling or reply result for one item.
type Outcome struct {
	MessageID string              `json:"message_id"`
	Subject   string              `json:"subject"`
	Result    model.BookingResult `json:"result"`
	Replied   bool                `json:"replied"`

	Err      error `json:"-"`
	ReplyErr error `json:"-"`
}

// BatchReport aggregates a scheduling or reply run. Items keep input order.
type BatchReport struct {
	Items     []Outcome `json:"items"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`

	// Conflicts counts items whose requested slot was busy, whether they
	// were rescheduled or left unbooked.
	Conflicts int `json:"conflicts"`
}

// ScheduleItem pairs an email with its judgement for scheduling.
type ScheduleItem struct {
	Email     model.EmailMessage
	Judgement model.Judgement
}

// ScheduleOptions controls a scheduling batch.
type ScheduleOptions struct {
	CheckConflicts bool
	AutoResolve    bool

	// SendReplies sends the confirmation for every booked meeting.
	SendReplies bool
}

// DefaultScheduleOptions checks conflicts, moves busy meetings to the next
// free slot and confirms by mail.
func DefaultScheduleOptions() ScheduleOptions {
	return ScheduleOptions{CheckConflicts: true, AutoResolve: true, SendReplies: true}
}

// Runner applies classification and scheduling sequentially.
type Runner struct {
	classifier Classifier
	booker     Booker
	mail       source.Mail
	journal    Journal
	log        *zap.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithMail sets the transport used for replies.
func WithMail(m source.Mail) RunnerOption {
	return func(r *Runner) { r.mail = m }
}

// WithJournal records outcomes as they happen.
func WithJournal(j Journal) RunnerOption {
	return func(r *Runner) { r.journal = j }
}

// NewRunner returns a Runner.
func NewRunner(c Classifier, b Booker, log *zap.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{classifier: c, booker: b, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ClassifyBatch classifies emails in order. A crash on one item is recorded
// on that item and the batch continues.
func (r *Runner) ClassifyBatch(ctx context.Context, emails []model.EmailMessage, progress Progress) []ItemResult {
	results := make([]ItemResult, 0, len(emails))
	for i, email := range emails {
		results = append(results, r.classifyOne(ctx, email))
		report(progress, i+1, len(emails))
	}
	return results
}

func (r *Runner) classifyOne(ctx context.Context, email model.EmailMessage) (res ItemResult) {
	res.Email = email

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("classifying %s: %v", email.ID, p)
			r.log.Error("classification crashed", zap.String("message_id", email.ID), zap.Error(err))
			res.Err = err
			res.Judgement = extract.Fallback(email, fault.Classify("classify", err))
		}
	}()

	if email.IsEmpty() {
		res.Judgement = extract.EmptyEmail()
	} else {
		res.Judgement = r.classifier.Classify(ctx, email)
	}
	r.record(ctx, email, res.Judgement)
	return res
}

func (r *Runner) record(ctx context.Context, email model.EmailMessage, j model.Judgement) {
	if r.journal == nil {
		return
	}
	if err := r.journal.SaveJudgement(ctx, email, j); err != nil {
		r.log.Warn("saving judgement", zap.String("message_id", email.ID), zap.Error(err))
	}
}

// Meetings selects the SCHEDULE_MEET items of a classification batch.
func Meetings(results []ItemResult) []ScheduleItem {
	var out []ScheduleItem
	for _, res := range results {
		if res.Judgement.Action == model.ActionScheduleMeet {
			out = append(out, ScheduleItem{Email: res.Email, Judgement: res.Judgement})
		}
	}
	return out
}

// Replies selects the REPLY items of a classification batch.
func Replies(results []ItemResult) []ScheduleItem {
	var out []ScheduleItem
	for _, res := range results {
		if res.Judgement.Action == model.ActionReply {
			out = append(out, ScheduleItem{Email: res.Email, Judgement: res.Judgement})
		}
	}
	return out
}

// RequestFor builds the scheduling request for an email and its judgement.
func RequestFor(email model.EmailMessage, j model.Judgement, check, auto bool) scheduler.Request {
	req := scheduler.Request{
		Subject:        email.Subject,
		Description:    email.Body,
		Attendee:       email.From,
		CheckConflicts: check,
		AutoResolve:    auto,
	}
	if sr, ok := extract.RequestedSlot(j); ok {
		req.Start = sr.Start
		req.End = sr.End
	}
	return req
}

// ScheduleBatch books a meeting for each item in order.
func (r *Runner) ScheduleBatch(
	ctx context.Context,
	items []ScheduleItem,
	opts ScheduleOptions,
	progress Progress,
) BatchReport {
	rep := BatchReport{Total: len(items), Items: make([]Outcome, 0, len(items))}

	for i, item := range items {
		out := r.scheduleOne(ctx, item, opts)
		rep.Items = append(rep.Items, out)

		switch {
		case out.Err != nil:
			rep.Failed++
		case out.Result.Booked():
			rep.Succeeded++
		}
		if out.Err == nil && out.Result.HasConflict {
			rep.Conflicts++
		}
		report(progress, i+1, len(items))
	}

	r.log.Info("schedule batch finished",
		zap.Int("total", rep.Total),
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("failed", rep.Failed),
		zap.Int("conflicts", rep.Conflicts),
	)
	return rep
}

func (r *Runner) scheduleOne(ctx context.Context, item ScheduleItem, opts ScheduleOptions) (out Outcome) {
	out.MessageID = item.Email.ID
	out.Subject = item.Email.Subject

	defer func() {
		if p := recover(); p != nil {
			out.Err = fmt.Errorf("scheduling %s: %v", item.Email.ID, p)
			r.log.Error("scheduling crashed", zap.String("message_id", item.Email.ID), zap.Error(out.Err))
		}
	}()

	req := RequestFor(item.Email, item.Judgement, opts.CheckConflicts, opts.AutoResolve)
	res, err := r.booker.Schedule(ctx, req)
	if err != nil {
		out.Err = err
		r.log.Warn("scheduling failed", zap.String("message_id", item.Email.ID), zap.Error(err))
		return out
	}
	out.Result = res
	r.saveBooking(ctx, item.Email.ID, res)

	if opts.SendReplies && res.Booked() && r.mail != nil {
		out.ReplyErr = r.mail.SendReply(ctx, item.Email, MeetingReply(res, res.HasConflict))
		out.Replied = out.ReplyErr == nil
		if out.ReplyErr != nil {
			r.log.Warn("sending confirmation", zap.String("message_id", item.Email.ID), zap.Error(out.ReplyErr))
		}
	}
	return out
}

func (r *Runner) saveBooking(ctx context.Context, messageID string, res model.BookingResult) {
	if r.journal == nil || !res.Booked() {
		return
	}
	if err := r.journal.SaveBooking(ctx, messageID, res); err != nil {
		r.log.Warn("saving booking", zap.String("message_id", messageID), zap.Error(err))
	}
}

// SendReplies sends each item's drafted reply in order.
func (r *Runner) SendReplies(ctx context.Context, items []ScheduleItem, progress Progress) BatchReport {
	rep := BatchReport{Total: len(items), Items: make([]Outcome, 0, len(items))}

	for i, item := range items {
		out := Outcome{MessageID: item.Email.ID, Subject: item.Email.Subject}

		switch {
		case r.mail == nil:
			out.Err = errors.New("no mail transport configured")
		case item.Judgement.Reply == "":
			out.Err = errNoReply
		default:
			out.Err = r.mail.SendReply(ctx, item.Email, item.Judgement.Reply)
		}

		if out.Err != nil {
			rep.Failed++
			r.log.Warn("sending reply", zap.String("message_id", item.Email.ID), zap.Error(out.Err))
		} else {
			out.Replied = true
			rep.Succeeded++
		}
		rep.Items = append(rep.Items, out)
		report(progress, i+1, len(items))
	}
	return rep
}

func report(p Progress, done, total int) {
	if p != nil {
		p(done, total)
	}
}
