package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/nhle/smart-inbox/internal/ai"
	"github.com/nhle/smart-inbox/internal/fault"
	"github.com/nhle/smart-inbox/internal/model"
)

// Classifier produces a Judgement for an email using an oracle.
type Classifier struct {
	oracle ai.Oracle
	log    *zap.Logger
}

// NewClassifier returns a Classifier that asks oracle.
func NewClassifier(oracle ai.Oracle, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{oracle: oracle, log: log}
}

// Classify never fails: oracle errors and malformed output are mapped to
// IGNORE judgements that explain what went wrong.
func (c *Classifier) Classify(ctx context.Context, email model.EmailMessage) model.Judgement {
	log := c.log.With(zap.String("message_id", email.ID))

	if email.IsEmpty() {
		return EmptyEmail()
	}

	raw, err := c.oracle.Complete(ctx, SystemPrompt, UserPrompt(email))
	if err != nil {
		fe := fault.Classify("oracle complete", err)
		log.Warn("classification call failed",
			zap.Stringer("class", fe.Class),
			zap.Error(err),
		)
		return Fallback(email, fe)
	}

	j, err := Parse(raw)
	if err != nil {
		log.Warn("model output not parseable", zap.Int("raw_len", len(raw)), zap.Error(err))
		return j
	}

	log.Debug("classified",
		zap.String("action", string(j.Action)),
		zap.String("priority", string(j.Priority)),
		zap.String("date", j.Date),
		zap.String("start_time", j.StartTime),
		zap.String("end_time", j.EndTime),
	)
	return j
}
