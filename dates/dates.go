// Package dates normalizes the timestamp formats found in upstream feeds into
// epoch milliseconds.
//
// Parsing never fails: empty or unrecognised input yields 0, which callers
// cannot tell apart from the epoch itself. Items with unknown dates therefore
// sort as the oldest entries.
package dates

import (
	"strings"
	"time"
)

// Layouts tried in order by ParseRFC822. Go layouts use fixed English month
// and weekday names, so parsing does not depend on the host locale.
var rfc822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 02 Jan 06 15:04:05 -0700",
}

// Zone names allowed by RFC 822. time.Parse gives unknown names a zero
// offset, so these are applied explicitly.
var rfc822Zones = map[string]int{
	"UT":  0,
	"UTC": 0,
	"GMT": 0,
	"EST": -5 * 60 * 60,
	"EDT": -4 * 60 * 60,
	"CST": -6 * 60 * 60,
	"CDT": -5 * 60 * 60,
	"MST": -7 * 60 * 60,
	"MDT": -6 * 60 * 60,
	"PST": -8 * 60 * 60,
	"PDT": -7 * 60 * 60,
}

// Layouts tried in order by ParseISO8601. Layouts without a zone are UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseRFC822 parses RSS style dates such as "Mon, 02 Jan 2006 15:04:05 -0700".
func ParseRFC822(text string) int64 {
	text = strings.TrimSpace(text)
	// Go zone abbreviations need at least three letters
	if strings.HasSuffix(text, " UT") {
		text += "C"
	}
	return parseFirst(text, rfc822Layouts)
}

// ParseISO8601 parses dates such as "2006-01-02T15:04:05Z".
func ParseISO8601(text string) int64 {
	return parseFirst(text, isoLayouts)
}

func parseFirst(text string, layouts []string) int64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			if strings.Contains(layout, "MST") {
				parsed = withRFC822Zone(parsed)
			}
			return parsed.UnixMilli()
		}
	}
	return 0
}

func withRFC822Zone(t time.Time) time.Time {
	name, _ := t.Zone()
	offset, ok := rfc822Zones[name]
	if !ok {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.FixedZone(name, offset))
}
