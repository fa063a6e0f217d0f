package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/smart-inbox/internal/model"
)

// MaxBodyLength bounds the body handed to the classifier, in runes.
const MaxBodyLength = 3000

// AuthError indicates that authentication has failed or expired for a
// provider. Transports return it on 401/403 responses or a missing token.
type AuthError struct {
	Provider Provider
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Provider, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Provider identifies a transport implementation.
type Provider string

const (
	ProviderGmail    Provider = "gmail"
	ProviderIMAP     Provider = "imap"
	ProviderCalendar Provider = "google-calendar"
)

// Mail lists inbox messages and sends threaded replies.
type Mail interface {
	// ListRecent returns up to max recent inbox messages, newest first.
	ListRecent(ctx context.Context, max int) ([]model.EmailMessage, error)

	// SendReply answers original in its thread, addressed to its sender,
	// with a "Re: " subject.
	SendReply(ctx context.Context, original model.EmailMessage, body string) error
}

// Calendar reads busy time and books events with conferencing.
type Calendar interface {
	// ListEvents returns events overlapping [min, max).
	ListEvents(ctx context.Context, min, max time.Time) ([]model.CalendarEvent, error)

	// InsertEvent books req and requests a conferencing link.
	InsertEvent(ctx context.Context, req model.EventRequest) (*model.CreatedEvent, error)
}

// TruncateBody cuts body to MaxBodyLength runes.
func TruncateBody(body string) string {
	r := []rune(body)
	if len(r) <= MaxBodyLength {
		return body
	}
	return string(r[:MaxBodyLength])
}

// ReplySubject prefixes subject with "Re: " unless it already has one.
func ReplySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if len(trimmed) >= 3 && strings.EqualFold(trimmed[:3], "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}
