package civiltime

import (
	"testing"
	"time"

	"github.com/nhle/smart-inbox/internal/model"
)

func TestLocalToUTC(t *testing.T) {
	n := New(nil)

	tests := []struct {
		name string
		ref  model.TimeRef
		want string
	}{
		{"civil seconds", model.LocalCivil("2025-12-27T16:00:00"), "2025-12-27T10:30:00Z"},
		{"civil minutes", model.LocalCivil("2025-12-27T16:00"), "2025-12-27T10:30:00Z"},
		{"civil crosses midnight", model.LocalCivil("2025-01-01T02:00:00"), "2024-12-31T20:30:00Z"},
		{"already utc", model.ParseTimeRef("2025-12-27T10:30:00Z"), "2025-12-27T10:30:00Z"},
		{"unparseable", model.LocalCivil("next tuesday"), "next tuesdayZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.LocalToUTC(tt.ref); got != tt.want {
				t.Fatalf("LocalToUTC(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestLocalToUTCIsIdempotent(t *testing.T) {
	n := New(nil)
	inputs := []string{
		"2025-12-27T10:30:00Z",
		"2025-06-01T00:00:00Z",
		"garbageZ",
	}
	for _, in := range inputs {
		once := n.LocalToUTC(model.ParseTimeRef(in))
		twice := n.LocalToUTC(model.ParseTimeRef(once))
		if once != in || twice != in {
			t.Fatalf("conversion of %q not idempotent: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestUTCToLocalDisplay(t *testing.T) {
	n := New(nil)

	got := n.UTCToLocalDisplay("2025-12-27T10:30:00Z")
	want := Display{
		Date:          "2025-12-27",
		DateFormatted: "27 December 2025",
		Time:          "04:00 PM",
		FullText:      "27 December 2025 at 04:00 PM IST",
	}
	if got != want {
		t.Fatalf("UTCToLocalDisplay = %+v, want %+v", got, want)
	}
}

func TestUTCToLocalDisplayFailure(t *testing.T) {
	n := New(nil)

	got := n.UTCToLocalDisplay("not a time")
	if got.Date != NotAvailable || got.DateFormatted != NotAvailable ||
		got.Time != NotAvailable || got.FullText != NotAvailable {
		t.Fatalf("expected N/A in every field, got %+v", got)
	}
}

func TestResolve(t *testing.T) {
	n := New(nil)

	got, err := n.Resolve(model.LocalCivil("2025-12-27T10:00:00"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := time.Date(2025, 12, 27, 4, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Resolve = %v, want %v", got, want)
	}

	if _, err := n.Resolve(model.TimeRef{}); err == nil {
		t.Fatal("expected error for empty reference")
	}
	if _, err := n.Resolve(model.LocalCivil("tomorrow")); err == nil {
		t.Fatal("expected error for unparseable reference")
	}
}

func TestLoadZoneFallsBackToIST(t *testing.T) {
	if loc := LoadZone("IST"); loc != IST {
		t.Fatalf("LoadZone(IST) = %v", loc)
	}
	if loc := LoadZone("Nowhere/Unknown"); loc != IST {
		t.Fatalf("LoadZone(unknown) = %v, want IST", loc)
	}
}
