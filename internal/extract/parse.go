// Package extract turns raw oracle output into a well-formed Judgement and
// derives the requested meeting slot from it.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/smart-inbox/internal/fault"
	"github.com/nhle/smart-inbox/internal/model"
)

// InvalidJSONReason is the reason recorded when the oracle output cannot be
// parsed.
const InvalidJSONReason = "Model returned invalid JSON"

const rawSummaryLimit = 200

var errNoObject = errors.New("no JSON object in model output")

// Parse converts raw oracle text into a Judgement. It always returns a
// complete judgement; the error is informational and reports that the
// fail-closed default was used.
func Parse(raw string) (model.Judgement, error) {
	trimmed := strings.TrimSpace(raw)

	obj, err := decodeObject(trimmed)
	if err != nil {
		return InvalidOutput(trimmed), fault.New(fault.MalformedOutput, "parse model output", err)
	}

	j := model.Judgement{
		Reason:    field(obj, "reason"),
		Summary:   field(obj, "summary"),
		Reply:     field(obj, "reply"),
		Date:      field(obj, "date"),
		StartTime: field(obj, "start_time"),
		EndTime:   field(obj, "end_time"),
	}
	j.Action, j.Reason = normalizeAction(field(obj, "action"), j.Reason)
	j.Priority = normalizePriority(field(obj, "priority"))

	return j, nil
}

// InvalidOutput is the fail-closed judgement for unparseable output.
func InvalidOutput(raw string) model.Judgement {
	return model.Judgement{
		Action:   model.ActionIgnore,
		Priority: model.PriorityLow,
		Reason:   InvalidJSONReason,
		Summary:  truncate(strings.TrimSpace(raw), rawSummaryLimit),
	}
}

// decodeObject locates and decodes the JSON object in text.
func decodeObject(text string) (map[string]any, error) {
	text = stripFence(text)

	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end < start {
			return nil, errNoObject
		}
		text = text[start : end+1]
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("decoding model output: %w", err)
	}
	if obj == nil {
		return nil, errNoObject
	}
	return obj, nil
}

// stripFence removes a surrounding ```json ... ``` block.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// field returns obj[key] as text. Missing and null values become "".
func field(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return ""
	}

	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func normalizeAction(raw, reason string) (model.Action, string) {
	a := model.Action(strings.ToUpper(strings.TrimSpace(raw)))
	if a.Valid() {
		return a, reason
	}
	note := fmt.Sprintf("Invalid action '%s' normalized to IGNORE. ", a)
	return model.ActionIgnore, note + reason
}

func normalizePriority(raw string) model.Priority {
	p := model.Priority(strings.ToUpper(strings.TrimSpace(raw)))
	if p == "" || p.Valid() {
		return p
	}
	return model.PriorityNormal
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
