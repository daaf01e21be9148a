package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		kind stampKind
	}{
		{"", stampNone},
		{"   ", stampNone},
		{"1136214245", stampUnixSeconds},
		{"2006-01-02T15:04:05Z", stampISO},
		{"Mon, 02 Jan 2006 15:04:05 GMT", stampHTTPDate},
		{"02 Jan 2006 15:04:05 GMT", stampHTTPDate},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, classifyStamp(tt.raw).kind, "raw=%q", tt.raw)
	}
}

func TestResolveStamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)

	for _, raw := range []string{
		"1136214245",
		"2006-01-02T15:04:05Z",
		"Mon, 02 Jan 2006 15:04:05 GMT",
	} {
		got, ok := classifyStamp(raw).Resolve()
		assert.True(t, ok, "raw=%q", raw)
		assert.True(t, got.Equal(want), "raw=%q got=%v", raw, got)
	}

	_, ok := classifyStamp("").Resolve()
	assert.False(t, ok)
	_, ok = classifyStamp("not a date at all").Resolve()
	assert.False(t, ok)
}

// Arbitrary header values must classify and resolve without panicking, and
// digit strings must never be mistaken for anything but unix seconds.
func FuzzResolveStamp(f *testing.F) {
	f.Add("Mon, 02 Jan 2006 15:04:05 GMT")
	f.Add("1136214245")
	f.Add("2006-01-02T15:04:05+07:00")
	f.Add("")
	f.Add("0")
	f.Add("九")
	f.Fuzz(func(t *testing.T, raw string) {
		s := classifyStamp(raw)
		if _, ok := s.Resolve(); ok && s.kind == stampNone {
			t.Fatal("absent stamp must not resolve")
		}
		if s.kind == stampUnixSeconds && !isDigits(s.raw) {
			t.Fatalf("unix stamp with non-digits: %q", s.raw)
		}
	})
}
