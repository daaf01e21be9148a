// Command watermark fetches a remote image, renders the watermarked preview
// artifact, and writes it out as a PNG. Handy for eyeballing the overlay
// pattern and the clamp bounds.
package main

import (
	"context"
	"flag"
	"image/png"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/IvanBrykalov/previewcache/fetch"
	"github.com/IvanBrykalov/previewcache/platform"
	"github.com/IvanBrykalov/previewcache/render"
)

func main() {
	var (
		url         = flag.String("url", "", "image URL to fetch (required)")
		fallback    = flag.String("fallback", "", "fallback URL on timeout/decode failure")
		label       = flag.String("label", "PREVIEW", "watermark label text")
		out         = flag.String("o", "preview.png", "output PNG path")
		constrained = flag.Bool("constrained", false, "use the constrained-engine profile")
		timeout     = flag.Duration("timeout", 10*time.Second, "fetch timeout")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}
	if *url == "" {
		logger.Fatal().Msg("-url is required")
	}

	profile := platform.Default(*constrained)
	profile.FetchTimeout = *timeout

	f := fetch.New(fetch.Options{
		Timeout:        profile.FetchTimeout,
		PollCompletion: profile.PollCompletion,
		Logger:         &logger,
	})
	res, err := f.Load(context.Background(), *url, *fallback)
	if err != nil {
		logger.Fatal().Err(err).Msg("fetch failed")
	}
	if res.UsedFallback {
		logger.Warn().Str("locator", res.Locator).Msg("primary failed, used fallback")
	}

	r := render.New(render.DefaultConfig(profile))
	art, err := r.Render(res.Bitmap, *label)
	if err != nil {
		logger.Fatal().Err(err).Msg("render failed")
	}

	fh, err := os.Create(*out)
	if err != nil {
		logger.Fatal().Err(err).Msg("create output")
	}
	defer fh.Close()
	if err := png.Encode(fh, art.Clone()); err != nil {
		logger.Fatal().Err(err).Msg("encode output")
	}
	logger.Info().
		Str("out", *out).
		Int("width", art.Bounds().Dx()).
		Int("height", art.Bounds().Dy()).
		Msg("wrote watermarked preview")
}
