package extract

import (
	"fmt"
	"strings"

	"github.com/nhle/smart-inbox/internal/model"
)

// SystemPrompt fixes the action and priority taxonomies, the output fields
// and the time conventions the model must follow.
const SystemPrompt = `You triage an email inbox.

For each email:
- Decide one action: IGNORE, REPLY or SCHEDULE_MEET.
- Draft a reply only when the action is REPLY or SCHEDULE_MEET.

Actions:
- IGNORE: newsletters, promotions, shipping notices, FYI messages.
- REPLY: questions, deadlines and requests that can be settled by email.
- SCHEDULE_MEET: requests to talk, call, sync, align or work through a complex issue.

Priority:
- HIGH: urgent requests, hard deadlines, critical issues, important meetings.
- NORMAL: ordinary questions and meetings.
- LOW: newsletters, promotions, FYI and automated mail.

Meeting times:
- Look for dates in the body ("25-12-2025", "December 25", "tomorrow", "next Monday").
- Look for times ("4 pm", "4:00 PM", "16:00", "at 4").
- Write dates as YYYY-MM-DD.
- Write start_time and end_time as YYYY-MM-DDTHH:MM:SS local time using the 24-hour clock.
- A date with no time starts at 10:00.
- A start time with no end lasts 30 minutes.

Output:
- Answer with one JSON object and nothing else: no markdown, no commentary.
- Always include the keys action, priority, reason, summary, reply, date, start_time, end_time.
- Use an empty string for anything that does not apply.`

// UserPrompt renders email into the user turn sent to the oracle.
func UserPrompt(email model.EmailMessage) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "From: %s\n", email.From)
	fmt.Fprintf(&sb, "Subject: %s\n", email.Subject)
	fmt.Fprintf(&sb, "Body: %s\n\n", email.Body)

	sb.WriteString("Return JSON in this shape:\n")
	sb.WriteString("{\n")
	sb.WriteString(`  "action": "IGNORE | REPLY | SCHEDULE_MEET",` + "\n")
	sb.WriteString(`  "priority": "LOW | NORMAL | HIGH",` + "\n")
	sb.WriteString(`  "reason": "",` + "\n")
	sb.WriteString(`  "summary": "",` + "\n")
	sb.WriteString(`  "reply": "",` + "\n")
	sb.WriteString(`  "date": "YYYY-MM-DD",` + "\n")
	sb.WriteString(`  "start_time": "YYYY-MM-DDTHH:MM:SS",` + "\n")
	sb.WriteString(`  "end_time": "YYYY-MM-DDTHH:MM:SS"` + "\n")
	sb.WriteString("}\n\n")

	sb.WriteString("Convert 12-hour times to 24-hour: 4pm is 16:00:00.\n")
	sb.WriteString("Examples:\n")
	sb.WriteString("- '27-12-2025 at 4pm' gives start_time 2025-12-27T16:00:00 and end_time 2025-12-27T16:30:00\n")
	sb.WriteString("- 'December 27 at 2:30 PM' gives start_time 2025-12-27T14:30:00 and end_time 2025-12-27T15:00:00\n")
	sb.WriteString("- 'tomorrow at 10am' gives tomorrow's date with start_time YYYY-MM-DDT10:00:00\n")

	return sb.String()
}
