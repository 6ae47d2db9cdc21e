package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// booleanWords maps the accepted boolean spellings (lower-cased) to their value.
var booleanWords = map[string]bool{
	"true":  true,
	"false": false,
	"yes":   true,
	"no":    false,
	"نعم":   true,
	"لا":    false,
	"صح":    true,
	"خطأ":   false,
}

// ParseBoolean matches s against the boolean lexicon, case-insensitively.
func ParseBoolean(s string) (bool, bool) {
	v, ok := booleanWords[strings.ToLower(strings.TrimSpace(s))]
	return v, ok
}

// ParseNumber reports whether s is a complete decimal number. Infinity and
// NaN spellings are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// dateLayouts are tried in order. Day-first slashed dates are not accepted so
// that 03/04/2024 always reads as March 4th.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
	time.RFC1123Z,
}

// ParseDate tries the known layouts and returns the first successful parse.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
