package model

// Action is the triage decision for a single email.
type Action string

const (
	ActionIgnore       Action = "IGNORE"
	ActionReply        Action = "REPLY"
	ActionScheduleMeet Action = "SCHEDULE_MEET"
)

// Valid reports whether a is one of the three triage actions.
func (a Action) Valid() bool {
	switch a {
	case ActionIgnore, ActionReply, ActionScheduleMeet:
		return true
	}
	return false
}

// Priority is the urgency assigned to an email.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is one of the three priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Judgement is the normalized classification of one email. Every field is
// always present; fields the oracle did not produce are empty strings.
type Judgement struct {
	Action   Action   `json:"action"`
	Priority Priority `json:"priority"`

	// Reason explains the decision. It is never empty on fallback paths.
	Reason string `json:"reason"`

	Summary string `json:"summary"`

	// Reply is the drafted response body; empty unless Action needs one.
	Reply string `json:"reply"`

	// Date is the extracted meeting date (YYYY-MM-DD, local civil time).
	Date string `json:"date"`

	// StartTime and EndTime are civil date-times (YYYY-MM-DDTHH:MM:SS).
	// A trailing Z marks them as already UTC.
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// JudgementFields lists the JSON keys every judgement carries.
var JudgementFields = []string{
	"action", "priority", "reason", "summary",
	"reply", "date", "start_time", "end_time",
}
