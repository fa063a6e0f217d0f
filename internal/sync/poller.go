package sync

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/source"
	"github.com/nhle/smart-inbox/internal/triage"
)

// SyncState represents the current state of the inbox poll.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "syncing"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the state of the last poll.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// InboxMsg is a tea.Msg sent when a poll completes. Results holds the
// messages classified in this poll; Stored holds the fetched messages whose
// judgement was recalled from an earlier run.
type InboxMsg struct {
	Results   []triage.ItemResult
	Stored    []triage.ItemResult
	Fetched   int
	Error     error
	AuthError string
}

// All returns the stored and newly classified results together, most
// recently received first.
func (m InboxMsg) All() []triage.ItemResult {
	out := make([]triage.ItemResult, 0, len(m.Stored)+len(m.Results))
	out = append(out, m.Results...)
	out = append(out, m.Stored...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Email.ReceivedAt.After(out[j].Email.ReceivedAt)
	})
	return out
}

// DefaultInterval is used when no poll interval is configured.
const DefaultInterval = 2 * time.Minute

// fetchTimeout bounds a single fetch-and-classify round.
const fetchTimeout = 2 * time.Minute

// Seen recalls judgements made in earlier runs.
type Seen interface {
	LookupJudgement(ctx context.Context, messageID string) (model.Judgement, bool, error)
}

// Classifier classifies a batch of emails.
type Classifier interface {
	ClassifyBatch(ctx context.Context, emails []model.EmailMessage, progress triage.Progress) []triage.ItemResult
}

// Poller watches the inbox in the background and classifies new mail.
type Poller struct {
	mail       source.Mail
	classifier Classifier
	seen       Seen
	fetchMax   int
	interval   time.Duration
	log        *zap.Logger

	status    SyncStatus
	resultCh  chan InboxMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a Poller. seen may be nil, in which case every fetched
// message is classified on every poll.
func New(mail source.Mail, c Classifier, seen Seen, fetchMax int, interval time.Duration, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		mail:       mail,
		classifier: c,
		seen:       seen,
		fetchMax:   fetchMax,
		interval:   interval,
		log:        log,
		resultCh:   make(chan InboxMsg, 16),
		triggerCh:  make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and waits for
// the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.WaitForNextResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate poll.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A poll is already queued.
	}
}

// Status returns the state of the last poll.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Watch polls until ctx is done, calling fn after each round. It is the
// headless counterpart of Start.
func (p *Poller) Watch(ctx context.Context, fn func(InboxMsg)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		fn(p.Poll(ctx))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollAndSend()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollAndSend()
		case <-p.triggerCh:
			p.pollAndSend()
		}
	}
}

func (p *Poller) pollAndSend() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	p.sendResult(p.Poll(ctx))
}

// Poll fetches recent mail once. Messages with a stored judgement are
// returned as they were classified; the rest go to the classifier.
func (p *Poller) Poll(ctx context.Context) InboxMsg {
	p.setStatus(SyncRunning, nil)

	emails, err := p.mail.ListRecent(ctx, p.fetchMax)
	if err != nil {
		p.setStatus(SyncError, err)
		p.log.Warn("inbox poll failed", zap.Error(err))
		msg := InboxMsg{Error: err}
		if source.IsAuthError(err) {
			msg.AuthError = fmt.Sprintf("mail: authentication expired (%v)", err)
		}
		return msg
	}

	stored, fresh := p.recall(ctx, emails)
	var results []triage.ItemResult
	if len(fresh) > 0 {
		results = p.classifier.ClassifyBatch(ctx, fresh, nil)
	}

	p.setStatus(SyncIdle, nil)
	p.log.Info("inbox polled",
		zap.Int("fetched", len(emails)),
		zap.Int("stored", len(stored)),
		zap.Int("new", len(results)),
	)
	return InboxMsg{Results: results, Stored: stored, Fetched: len(emails)}
}

// recall splits emails into those with a stored judgement and those that
// still need classifying. A lookup failure counts as not stored.
func (p *Poller) recall(ctx context.Context, emails []model.EmailMessage) ([]triage.ItemResult, []model.EmailMessage) {
	if p.seen == nil {
		return nil, emails
	}
	var stored []triage.ItemResult
	fresh := make([]model.EmailMessage, 0, len(emails))
	for _, e := range emails {
		j, ok, err := p.seen.LookupJudgement(ctx, e.ID)
		if err != nil {
			p.log.Warn("looking up stored judgement", zap.String("message_id", e.ID), zap.Error(err))
		}
		if ok {
			stored = append(stored, triage.ItemResult{Email: e, Judgement: j})
			continue
		}
		fresh = append(fresh, e)
	}
	return stored, fresh
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends msg on the result channel without blocking.
func (p *Poller) sendResult(msg InboxMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll result.
// Call it again after handling each InboxMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}
