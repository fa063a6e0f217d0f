package triage

import (
	"strings"

	"github.com/nhle/smart-inbox/internal/civiltime"
	"github.com/nhle/smart-inbox/internal/model"
)

const conflictNote = "Note: Your requested time had a conflict, so I scheduled it at the next available slot."

// MeetingReply is the confirmation sent after a meeting is booked.
func MeetingReply(res model.BookingResult, rescheduled bool) string {
	var sb strings.Builder

	sb.WriteString("Hi,\n\n")
	sb.WriteString("Thanks for reaching out. I've scheduled a meeting to discuss this further.\n\n")
	if rescheduled {
		sb.WriteString(conflictNote + "\n\n")
	}
	if res.DateTimeFull != "" && res.DateTimeFull != civiltime.NotAvailable {
		sb.WriteString("When: " + res.DateTimeFull + "\n")
	}
	sb.WriteString("Google Meet link: " + res.MeetingLink + "\n\n")
	sb.WriteString("Looking forward to connecting.\n")

	return sb.String()
}
