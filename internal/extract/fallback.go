package extract

import (
	"errors"
	"fmt"

	"github.com/nhle/smart-inbox/internal/fault"
	"github.com/nhle/smart-inbox/internal/model"
)

const (
	// RateLimitReason is used when the oracle rejects a call for quota.
	RateLimitReason = "Rate limit reached. Please wait a few minutes or raise the model provider quota."

	// EmptyEmailReason and EmptyEmailSummary describe a message with no
	// subject and no body.
	EmptyEmailReason  = "Empty email with no content"
	EmptyEmailSummary = "No content to process"

	errTextLimit     = 100
	subjectLimit     = 100
	unknownSender    = "Unknown"
	untitledEmailSub = "No subject"
)

// fallbackPolicy builds the judgement returned when the oracle call fails.
type fallbackPolicy func(email model.EmailMessage, cause error) model.Judgement

var fallbacks = map[fault.Class]fallbackPolicy{
	fault.RateLimit: func(email model.EmailMessage, _ error) model.Judgement {
		return failed(email, RateLimitReason)
	},
	fault.MalformedOutput: func(email model.EmailMessage, _ error) model.Judgement {
		return failed(email, InvalidJSONReason)
	},
}

// Fallback returns the judgement for a failed oracle call, chosen by the
// class of err.
func Fallback(email model.EmailMessage, err *fault.Error) model.Judgement {
	if err == nil {
		return failed(email, "API Error: unknown failure")
	}
	if policy, ok := fallbacks[err.Class]; ok {
		return policy(email, err)
	}
	return failed(email, "API Error: "+truncate(causeText(err), errTextLimit))
}

// EmptyEmail is the fixed judgement for a message with no content.
func EmptyEmail() model.Judgement {
	return model.Judgement{
		Action:   model.ActionIgnore,
		Priority: model.PriorityLow,
		Reason:   EmptyEmailReason,
		Summary:  EmptyEmailSummary,
	}
}

func failed(email model.EmailMessage, reason string) model.Judgement {
	return model.Judgement{
		Action:   model.ActionIgnore,
		Priority: model.PriorityLow,
		Reason:   reason,
		Summary:  senderSummary(email),
	}
}

// senderSummary describes email from its headers only.
func senderSummary(email model.EmailMessage) string {
	from := email.From
	if from == "" {
		from = unknownSender
	}
	subject := email.Subject
	if subject == "" {
		subject = untitledEmailSub
	}
	return fmt.Sprintf("Email from %s: %s", from, truncate(subject, subjectLimit))
}

// causeText is the message of the underlying error without the op prefix.
func causeText(err *fault.Error) string {
	inner := errors.Unwrap(err)
	if inner == nil {
		return err.Error()
	}
	return inner.Error()
}
