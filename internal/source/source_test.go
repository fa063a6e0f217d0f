package source

import (
	"fmt"
	"strings"
	"testing"
)

func TestReplySubject(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Project sync", "Re: Project sync"},
		{"Re: Project sync", "Re: Project sync"},
		{"RE: Project sync", "RE: Project sync"},
		{"", "Re: "},
	}
	for _, tt := range tests {
		if got := ReplySubject(tt.in); got != tt.want {
			t.Fatalf("ReplySubject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateBody(t *testing.T) {
	short := "hello"
	if got := TruncateBody(short); got != short {
		t.Fatalf("TruncateBody changed short body: %q", got)
	}

	long := strings.Repeat("é", MaxBodyLength+10)
	got := TruncateBody(long)
	if n := len([]rune(got)); n != MaxBodyLength {
		t.Fatalf("truncated length = %d runes, want %d", n, MaxBodyLength)
	}
}

func TestIsAuthError(t *testing.T) {
	err := fmt.Errorf("listing: %w", &AuthError{Provider: ProviderGmail, Message: "token expired"})
	if !IsAuthError(err) {
		t.Fatal("expected wrapped AuthError to be detected")
	}
	if IsAuthError(fmt.Errorf("plain")) {
		t.Fatal("plain error reported as auth error")
	}
}
