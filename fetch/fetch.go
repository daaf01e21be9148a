// Package fetch retrieves and decodes remote images.
//
// A Load is one or two attempts: the primary locator, then — only on
// Timeout or decode failure, and only when a different fallback locator was
// supplied — exactly one fallback attempt. There are no automatic retries
// beyond that; bounding retries is a deliberate resource-use guard.
//
// Each attempt settles exactly once. A completion detector observes the
// settlement; the event-driven strategy waits on the attempt's done channel,
// while the poll-driven strategy (for engines whose native completion
// signals are unreliable) cross-checks completion on a ticker. Both deliver
// the same settled outcome, so downstream handlers fire once per attempt.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	// Decoders for the formats photo backends actually serve.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Error taxonomy. ErrLoad wraps the terminal attempt error, so callers can
// still test errors.Is(err, ErrTimeout) after fallback exhaustion.
var (
	// ErrDecode — the resource was unreachable or not a parsable image.
	ErrDecode = errors.New("fetch: decode failure")
	// ErrTimeout — no completion signal arrived within the bound.
	ErrTimeout = errors.New("fetch: timed out")
	// ErrLoad — the attempt (and any fallback) is exhausted.
	ErrLoad = errors.New("fetch: load failed")
)

// DefaultTimeout bounds a single fetch+decode attempt.
const DefaultTimeout = 10 * time.Second

// Result is a settled successful attempt.
type Result struct {
	// Bitmap is the decoded image.
	Bitmap image.Image
	// Locator is the locator that actually produced the bitmap.
	Locator string
	// UsedFallback marks results recovered via the fallback locator.
	UsedFallback bool
	// ModifiedAt is the origin's modification stamp, zero when absent.
	ModifiedAt time.Time
}

// Options configures a Fetcher. Zero values are safe.
type Options struct {
	// Client performs the HTTP requests. Nil => http.DefaultClient.
	// Attempt deadlines come from the per-attempt context, not the client.
	Client *http.Client

	// Timeout bounds one attempt. 0 => DefaultTimeout.
	Timeout time.Duration

	// PollCompletion selects the poll-driven completion detector.
	PollCompletion bool
	// PollInterval is the poll period. 0 => 250ms.
	PollInterval time.Duration

	// UserAgent overrides the request User-Agent header.
	UserAgent string

	// Logger for per-attempt diagnostics. Nil => no output.
	Logger *zerolog.Logger
}

const defaultUserAgent = "previewcache/1.0"

// Fetcher loads and decodes remote images. Safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	detector  completionDetector
	log       zerolog.Logger
}

// New constructs a Fetcher.
func New(opt Options) *Fetcher {
	client := opt.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := opt.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	var det completionDetector = eventDetector{}
	if opt.PollCompletion {
		interval := opt.PollInterval
		if interval <= 0 {
			interval = 250 * time.Millisecond
		}
		det = pollDetector{interval: interval}
	}
	logger := zerolog.Nop()
	if opt.Logger != nil {
		logger = *opt.Logger
	}
	return &Fetcher{
		client:    client,
		timeout:   timeout,
		userAgent: ua,
		detector:  det,
		log:       logger,
	}
}

// Load fetches and decodes the image at locator. On Timeout or decode
// failure it retries once against fallback when one was supplied and
// differs from the primary; otherwise the Load fails with ErrLoad wrapping
// the terminal attempt error.
func (f *Fetcher) Load(ctx context.Context, locator, fallback string) (*Result, error) {
	res, err := f.attempt(ctx, locator)
	if err == nil {
		return res, nil
	}
	if fallback != "" && fallback != locator && (errors.Is(err, ErrTimeout) || errors.Is(err, ErrDecode)) {
		f.log.Warn().Str("locator", locator).Err(err).Msg("primary attempt failed, trying fallback")
		fres, ferr := f.attempt(ctx, fallback)
		if ferr == nil {
			fres.UsedFallback = true
			return fres, nil
		}
		return nil, fmt.Errorf("%w: %w (primary: %v)", ErrLoad, ferr, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrLoad, err)
}

// attempt runs one bounded fetch+decode, delivered through the configured
// completion detector.
func (f *Fetcher) attempt(parent context.Context, locator string) (*Result, error) {
	ctx, cancel := context.WithTimeout(parent, f.timeout)
	defer cancel()

	a := newAttempt()
	go func() {
		a.settle(f.fetchDecode(ctx, locator))
	}()
	res, err := f.detector.await(ctx, a)
	if err != nil {
		f.log.Debug().Str("locator", locator).Err(err).Msg("attempt failed")
		return nil, err
	}
	f.log.Debug().Str("locator", locator).
		Int("width", res.Bitmap.Bounds().Dx()).
		Int("height", res.Bitmap.Bounds().Dy()).
		Time("modified_at", res.ModifiedAt).
		Msg("decoded")
	return res, nil
}

// fetchDecode performs the HTTP request and decodes the body.
func (f *Fetcher) fetchDecode(ctx context.Context, locator string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrDecode, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: reading body: %v", ErrDecode, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	res := &Result{Bitmap: img, Locator: locator}
	if t, ok := classifyStamp(resp.Header.Get("Last-Modified")).Resolve(); ok {
		res.ModifiedAt = t
	}
	return res, nil
}
