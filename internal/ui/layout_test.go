package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	appsync "github.com/nhle/smart-inbox/internal/sync"
)

func TestContentHeight(t *testing.T) {
	if got := NewLayout(80, 24).ContentHeight(); got != 22 {
		t.Fatalf("ContentHeight = %d", got)
	}
}

func TestSyncLabel(t *testing.T) {
	if got := SyncLabel(appsync.SyncStatus{}, 0); got != "not synced" {
		t.Fatalf("zero = %q", got)
	}
	if got := SyncLabel(appsync.SyncStatus{State: appsync.SyncError, Error: errors.New("x")}, 2); got != "sync failed · 2 pending" {
		t.Fatalf("error = %q", got)
	}
	at := time.Date(2025, 12, 1, 15, 4, 0, 0, time.UTC)
	if got := SyncLabel(appsync.SyncStatus{LastSync: at}, 0); !strings.HasSuffix(got, "3:04PM") {
		t.Fatalf("idle = %q", got)
	}
}
