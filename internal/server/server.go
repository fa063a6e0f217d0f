// Package server exposes classification and scheduling over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nhle/smart-inbox/internal/civiltime"
	"github.com/nhle/smart-inbox/internal/fault"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/triage"
)

// Batch runs classification and scheduling over many emails.
type Batch interface {
	ClassifyBatch(ctx context.Context, emails []model.EmailMessage, progress triage.Progress) []triage.ItemResult
	ScheduleBatch(ctx context.Context, items []triage.ScheduleItem, opts triage.ScheduleOptions, progress triage.Progress) triage.BatchReport
}

// Interactive is the single-item flow with pending conflicts.
type Interactive interface {
	Classify(ctx context.Context, email model.EmailMessage) model.Judgement
	ScheduleOne(ctx context.Context, email model.EmailMessage, j model.Judgement, override *model.SlotRequest) (triage.SingleOutcome, error)
	Pending(ctx context.Context) ([]model.PendingConflict, error)
	AcceptPending(ctx context.Context, messageID string) (triage.SingleOutcome, error)
	FindAnother(ctx context.Context, messageID string) (*model.PendingConflict, error)
	CancelPending(ctx context.Context, messageID string) error
}

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Batch       Batch
	Session     Interactive
	Finder      triage.SlotFinder
	Normalizer  *civiltime.Normalizer
	ScheduleOpt triage.ScheduleOptions
	Log         *zap.Logger
}

// Server is the HTTP API.
type Server struct {
	d      Deps
	engine *gin.Engine
}

// New builds the router.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Normalizer == nil {
		d.Normalizer = civiltime.New(d.Log)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(GinLogger(d.Log))

	s := &Server{d: d, engine: r}

	r.GET("/health", s.health)
	r.POST("/classify", s.classify)
	r.POST("/classify/batch", s.classifyBatch)
	r.POST("/schedule", s.schedule)
	r.POST("/schedule/batch", s.scheduleBatch)
	r.POST("/slots/next", s.nextSlot)

	p := r.Group("/pending")
	p.GET("", s.listPending)
	p.POST("/:id/accept", s.acceptPending)
	p.POST("/:id/another", s.anotherPending)
	p.DELETE("/:id", s.cancelPending)

	return s
}

// Handler returns the router for use with http.Server or httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.d.Log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type classifyBatchRequest struct {
	Emails []model.EmailMessage `json:"emails" binding:"required"`
}

type itemResponse struct {
	Email     model.EmailMessage `json:"email"`
	Judgement model.Judgement    `json:"judgement"`
	Error     string             `json:"error,omitempty"`
}

func (s *Server) classify(c *gin.Context) {
	var email model.EmailMessage
	if err := c.ShouldBindJSON(&email); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid email: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, s.d.Session.Classify(c.Request.Context(), email))
}

func (s *Server) classifyBatch(c *gin.Context) {
	var req classifyBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	results := s.d.Batch.ClassifyBatch(c.Request.Context(), req.Emails, nil)
	out := make([]itemResponse, len(results))
	for i, r := range results {
		out[i] = itemResponse{Email: r.Email, Judgement: r.Judgement}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

type scheduleRequest struct {
	Email     model.EmailMessage `json:"email"`
	Judgement model.Judgement    `json:"judgement"`

	// Slot overrides the slot derived from the judgement.
	Slot *model.SlotRequest `json:"slot,omitempty"`
}

func (s *Server) schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	out, err := s.d.Session.ScheduleOne(c.Request.Context(), req.Email, req.Judgement, req.Slot)
	if err != nil {
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type scheduleBatchRequest struct {
	Items []scheduleRequest `json:"items" binding:"required"`

	// Nil fields fall back to the configured policy.
	CheckConflicts *bool `json:"check_conflicts,omitempty"`
	AutoResolve    *bool `json:"auto_resolve,omitempty"`
	SendReplies    *bool `json:"send_replies,omitempty"`
}

func (s *Server) scheduleBatch(c *gin.Context) {
	var req scheduleBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	opts := s.d.ScheduleOpt
	override(&opts.CheckConflicts, req.CheckConflicts)
	override(&opts.AutoResolve, req.AutoResolve)
	override(&opts.SendReplies, req.SendReplies)

	items := make([]triage.ScheduleItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = triage.ScheduleItem{Email: it.Email, Judgement: it.Judgement}
	}
	rep := s.d.Batch.ScheduleBatch(c.Request.Context(), items, opts, nil)

	type outcome struct {
		triage.Outcome
		Error      string `json:"error,omitempty"`
		ReplyError string `json:"reply_error,omitempty"`
	}
	outs := make([]outcome, len(rep.Items))
	for i, o := range rep.Items {
		outs[i] = outcome{Outcome: o}
		if o.Err != nil {
			outs[i].Error = o.Err.Error()
		}
		if o.ReplyErr != nil {
			outs[i].ReplyError = o.ReplyErr.Error()
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     outs,
		"total":     rep.Total,
		"succeeded": rep.Succeeded,
		"failed":    rep.Failed,
		"conflicts": rep.Conflicts,
	})
}

func override(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

type nextSlotRequest struct {
	Preferred   model.TimeRef `json:"preferred"`
	DurationMin int           `json:"duration_min"`
}

type slotResponse struct {
	Start   time.Time         `json:"start"`
	End     time.Time         `json:"end"`
	Display civiltime.Display `json:"display"`
}

func (s *Server) nextSlot(c *gin.Context) {
	var req nextSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Preferred.IsZero() {
		respondWithError(c, http.StatusBadRequest, "preferred is required")
		return
	}

	next := s.d.Finder.FindNextFreeSlot(c.Request.Context(), req.Preferred, time.Duration(req.DurationMin)*time.Minute)
	c.JSON(http.StatusOK, slotResponse{
		Start:   next.Start.UTC(),
		End:     next.End.UTC(),
		Display: s.d.Normalizer.DisplayTime(next.Start),
	})
}

func (s *Server) listPending(c *gin.Context) {
	list, err := s.d.Session.Pending(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		respondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": list})
}

func (s *Server) acceptPending(c *gin.Context) {
	out, err := s.d.Session.AcceptPending(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.pendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) anotherPending(c *gin.Context) {
	p, err := s.d.Session.FindAnother(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.pendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) cancelPending(c *gin.Context) {
	if err := s.d.Session.CancelPending(c.Request.Context(), c.Param("id")); err != nil {
		s.pendingError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) pendingError(c *gin.Context, err error) {
	if errors.Is(err, model.ErrNoPending) {
		respondWithError(c, http.StatusNotFound, err.Error())
		return
	}
	upstreamError(c, err)
}

// upstreamError reports a calendar or mail failure with a status that
// tells the caller whether retrying or re-authorizing helps.
func upstreamError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := http.StatusBadGateway
	switch fault.ClassOf(err) {
	case fault.RateLimit:
		status = http.StatusTooManyRequests
	case fault.Auth:
		status = http.StatusUnauthorized
	}
	respondWithError(c, status, err.Error())
}
