package extract

import (
	"strings"
	"time"

	"github.com/nhle/smart-inbox/internal/model"
)

const (
	// DefaultStartClock is the start used when only a date was extracted.
	DefaultStartClock = "10:00:00"
	// DefaultDuration applies when no end was extracted.
	DefaultDuration = 30 * time.Minute

	civilLayout = "2006-01-02T15:04:05"
)

var civilParseLayouts = []string{
	civilLayout,
	"2006-01-02T15:04",
	model.UTCLayout,
}

// RequestedSlot derives the requested meeting interval from j. It reports
// false when j carries neither a date nor a start time, in which case the
// scheduler applies its own default.
func RequestedSlot(j model.Judgement) (model.SlotRequest, bool) {
	date := strings.TrimSpace(j.Date)
	start := strings.TrimSpace(j.StartTime)
	end := strings.TrimSpace(j.EndTime)

	if start != "" && date != "" && !strings.Contains(start, "T") {
		start = date + "T" + start
	}
	if end != "" && date != "" && !strings.Contains(end, "T") {
		end = date + "T" + end
	}

	switch {
	case start == "" && date == "":
		return model.SlotRequest{}, false
	case start == "":
		start = date + "T" + DefaultStartClock
		end = plusDefault(start)
	case end == "":
		end = plusDefault(start)
	}

	return model.SlotRequest{
		Start: model.ParseTimeRef(start),
		End:   model.ParseTimeRef(end),
	}, true
}

// plusDefault returns start + DefaultDuration in the same textual form, or
// "" if start is not a recognizable date-time.
func plusDefault(start string) string {
	for _, layout := range civilParseLayouts {
		t, err := time.Parse(layout, start)
		if err != nil {
			continue
		}
		out := t.Add(DefaultDuration)
		if layout == model.UTCLayout {
			return out.Format(model.UTCLayout)
		}
		return out.Format(civilLayout)
	}
	return ""
}
