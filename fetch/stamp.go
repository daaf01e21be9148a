package fetch

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Photo backends are inconsistent about how they stamp modification times:
// a proper HTTP date, bare unix seconds, or an ISO 8601 string have all been
// observed in the wild. Instead of probing a value until something parses,
// the raw string is classified once into a tagged representation and
// resolved by a single conversion function.

type stampKind int

const (
	stampNone stampKind = iota
	stampUnixSeconds
	stampISO
	stampHTTPDate
)

// originStamp is the tagged union over the known representations.
type originStamp struct {
	kind stampKind
	raw  string
}

// classifyStamp tags a raw header value with its representation.
func classifyStamp(raw string) originStamp {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return originStamp{kind: stampNone}
	case isDigits(raw):
		return originStamp{kind: stampUnixSeconds, raw: raw}
	case looksISO(raw):
		return originStamp{kind: stampISO, raw: raw}
	default:
		return originStamp{kind: stampHTTPDate, raw: raw}
	}
}

// looksISO matches the YYYY-MM-DD prefix of an ISO 8601 stamp. Checking for
// a 'T' alone would misfire on HTTP dates, which end in "GMT".
func looksISO(s string) bool {
	return len(s) >= 10 && isDigits(s[:4]) && s[4] == '-' && s[7] == '-'
}

// Resolve converts the stamp to a time.Time. The second return is false for
// absent or unparsable stamps.
func (s originStamp) Resolve() (time.Time, bool) {
	switch s.kind {
	case stampUnixSeconds:
		sec, err := strconv.ParseInt(s.raw, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(sec, 0).UTC(), true
	case stampISO:
		t, err := time.Parse(time.RFC3339, s.raw)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case stampHTTPDate:
		t, err := http.ParseTime(s.raw)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	default:
		return time.Time{}, false
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
