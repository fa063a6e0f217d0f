// Package civiltime converts between local wall-clock time and UTC and
// renders UTC instants for display in the local zone.
package civiltime

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/smart-inbox/internal/model"
)

// IST is Indian Standard Time. It has no daylight-saving transitions.
var IST = time.FixedZone("IST", 5*3600+30*60)

// NotAvailable is the sentinel used for every display field on failure.
const NotAvailable = "N/A"

const (
	dateLayout          = "2006-01-02"
	dateFormattedLayout = "02 January 2006"
	clockLayout         = "03:04 PM"
)

// civilLayouts are tried in order when parsing local wall-clock input.
var civilLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Display holds the local-zone rendering of one instant.
type Display struct {
	Date          string `json:"date"`
	DateFormatted string `json:"date_formatted"`
	Time          string `json:"time"`
	FullText      string `json:"full_text"`
}

func unavailable() Display {
	return Display{
		Date:          NotAvailable,
		DateFormatted: NotAvailable,
		Time:          NotAvailable,
		FullText:      NotAvailable,
	}
}

// Normalizer converts civil time in a single fixed local zone.
type Normalizer struct {
	loc *time.Location
	log *zap.Logger
}

// New returns a Normalizer for IST.
func New(log *zap.Logger) *Normalizer {
	return NewIn(IST, log)
}

// NewIn returns a Normalizer for loc.
func NewIn(loc *time.Location, log *zap.Logger) *Normalizer {
	if loc == nil {
		loc = IST
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{loc: loc, log: log}
}

// LoadZone resolves a configured zone name. "IST" and any name the host
// tzdata cannot resolve map to the fixed IST offset.
func LoadZone(name string) *time.Location {
	if name == "" || strings.EqualFold(name, "IST") {
		return IST
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return IST
	}
	return loc
}

// Location returns the local zone.
func (n *Normalizer) Location() *time.Location { return n.loc }

// ParseCivil parses wall-clock text in the local zone. Text with an explicit
// RFC 3339 offset is honoured as written.
func (n *Normalizer) ParseCivil(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range civilLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized civil time %q", s)
}

// LocalToUTC converts ref to the UTC wire form. UTC references come back
// unchanged, so converting twice never shifts twice. Input that cannot be
// parsed is tagged with the UTC marker as-is and logged.
func (n *Normalizer) LocalToUTC(ref model.TimeRef) string {
	if ref.IsUTC() {
		return ref.String()
	}

	t, err := n.ParseCivil(ref.String())
	if err != nil {
		n.log.Warn("civil time not parseable, passing through",
			zap.String("input", ref.String()),
			zap.Error(err),
		)
		return ref.String() + "Z"
	}

	return t.UTC().Format(model.UTCLayout)
}

// Resolve returns ref as an instant. Unlike LocalToUTC it reports failure.
func (n *Normalizer) Resolve(ref model.TimeRef) (time.Time, error) {
	if ref.IsZero() {
		return time.Time{}, fmt.Errorf("empty time reference")
	}
	if ref.IsUTC() {
		return ParseUTC(ref.String())
	}
	t, err := n.ParseCivil(ref.String())
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ParseUTC parses the UTC wire form, tolerating fractional seconds and
// RFC 3339 offsets.
func ParseUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(model.UTCLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing UTC time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// UTCToLocalDisplay renders a UTC wire string in the local zone. Any parse
// failure yields the N/A sentinel in every field.
func (n *Normalizer) UTCToLocalDisplay(s string) Display {
	t, err := ParseUTC(s)
	if err != nil {
		n.log.Debug("display of unparseable time", zap.String("input", s))
		return unavailable()
	}
	return n.DisplayTime(t)
}

// DisplayTime renders t in the local zone.
func (n *Normalizer) DisplayTime(t time.Time) Display {
	local := t.In(n.loc)
	return Display{
		Date:          local.Format(dateLayout),
		DateFormatted: local.Format(dateFormattedLayout),
		Time:          local.Format(clockLayout),
		FullText:      local.Format(dateFormattedLayout + " at " + clockLayout + " MST"),
	}
}

// Clock formats only the local 12-hour time of t.
func (n *Normalizer) Clock(t time.Time) string {
	return t.In(n.loc).Format(clockLayout)
}
