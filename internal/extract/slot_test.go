package extract

import (
	"testing"

	"github.com/nhle/smart-inbox/internal/model"
)

func TestRequestedSlot(t *testing.T) {
	tests := []struct {
		name      string
		j         model.Judgement
		ok        bool
		wantStart string
		wantEnd   string
		utc       bool
	}{
		{
			name:      "full civil",
			j:         model.Judgement{Date: "2025-12-27", StartTime: "2025-12-27T16:00:00", EndTime: "2025-12-27T17:00:00"},
			ok:        true,
			wantStart: "2025-12-27T16:00:00",
			wantEnd:   "2025-12-27T17:00:00",
		},
		{
			name:      "date only",
			j:         model.Judgement{Date: "2025-12-27"},
			ok:        true,
			wantStart: "2025-12-27T10:00:00",
			wantEnd:   "2025-12-27T10:30:00",
		},
		{
			name:      "start only",
			j:         model.Judgement{StartTime: "2025-12-27T16:00:00"},
			ok:        true,
			wantStart: "2025-12-27T16:00:00",
			wantEnd:   "2025-12-27T16:30:00",
		},
		{
			name:      "bare clock with date",
			j:         model.Judgement{Date: "2025-12-27", StartTime: "09:15:00"},
			ok:        true,
			wantStart: "2025-12-27T09:15:00",
			wantEnd:   "2025-12-27T09:45:00",
		},
		{
			name:      "utc start only",
			j:         model.Judgement{StartTime: "2025-12-27T10:30:00Z"},
			ok:        true,
			wantStart: "2025-12-27T10:30:00Z",
			wantEnd:   "2025-12-27T11:00:00Z",
			utc:       true,
		},
		{
			name: "nothing",
			j:    model.Judgement{Action: model.ActionScheduleMeet},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RequestedSlot(tt.j)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Start.String() != tt.wantStart || got.End.String() != tt.wantEnd {
				t.Fatalf("slot = [%s, %s), want [%s, %s)", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
			if got.Start.IsUTC() != tt.utc || got.End.IsUTC() != tt.utc {
				t.Fatalf("utc tagging = %v/%v, want %v", got.Start.IsUTC(), got.End.IsUTC(), tt.utc)
			}
		})
	}
}

func TestRequestedSlotUnparseableStart(t *testing.T) {
	got, ok := RequestedSlot(model.Judgement{StartTime: "sometime soon"})
	if !ok {
		t.Fatal("expected a slot request")
	}
	if got.Start.String() != "sometime soon" || !got.End.IsZero() {
		t.Fatalf("slot = %+v", got)
	}
}
