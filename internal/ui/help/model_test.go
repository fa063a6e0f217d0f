package help

import (
	"strings"
	"testing"

	"github.com/nhle/smart-inbox/internal/keys"
)

func TestViewListsKeysAndLegend(t *testing.T) {
	km := keys.DefaultKeyMap()
	v := New(km, 100, 40).View()

	for _, want := range []string{"Keys", "SCHEDULE_MEET", "HIGH", "booked", km.Accept.Help().Key} {
		if !strings.Contains(v, want) {
			t.Errorf("view lacks %q", want)
		}
	}
}
