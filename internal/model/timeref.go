package model

import (
	"strings"
	"time"
)

// UTCLayout is the wire format for instants that are already UTC.
const UTCLayout = "2006-01-02T15:04:05Z"

// TimeKind tags how a TimeRef must be interpreted.
type TimeKind int

const (
	// TimeLocalCivil is wall-clock time in the configured local zone.
	TimeLocalCivil TimeKind = iota
	// TimeUTC is an instant that is already in UTC.
	TimeUTC
)

func (k TimeKind) String() string {
	if k == TimeUTC {
		return "utc"
	}
	return "local"
}

// TimeRef is one endpoint of a requested slot. It is either a UTC instant or
// a local civil date-time string; the kind is explicit so a value is never
// converted to UTC twice.
type TimeRef struct {
	kind TimeKind
	text string
}

// UTC returns a reference to the instant t.
func UTC(t time.Time) TimeRef {
	return TimeRef{kind: TimeUTC, text: t.UTC().Format(UTCLayout)}
}

// LocalCivil returns a reference to a wall-clock date-time in the local zone.
func LocalCivil(s string) TimeRef {
	return TimeRef{kind: TimeLocalCivil, text: strings.TrimSpace(s)}
}

// ParseTimeRef applies the string convention used by the classification
// output and stored requests: a trailing "Z" means UTC, anything else is
// local civil time.
func ParseTimeRef(s string) TimeRef {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		return TimeRef{kind: TimeUTC, text: s}
	}
	return TimeRef{kind: TimeLocalCivil, text: s}
}

// Kind returns the interpretation tag.
func (r TimeRef) Kind() TimeKind { return r.kind }

// IsUTC reports whether r is already a UTC instant.
func (r TimeRef) IsUTC() bool { return r.kind == TimeUTC }

// IsZero reports whether r carries no value.
func (r TimeRef) IsZero() bool { return r.text == "" }

// String returns the textual form exactly as it was given.
func (r TimeRef) String() string { return r.text }

// MarshalText encodes r using the trailing-Z convention. UTC references
// always carry the marker, so the text is emitted unchanged.
func (r TimeRef) MarshalText() ([]byte, error) {
	return []byte(r.text), nil
}

// UnmarshalText decodes r using the trailing-Z convention.
func (r *TimeRef) UnmarshalText(b []byte) error {
	*r = ParseTimeRef(string(b))
	return nil
}
