// Package platform classifies the running engine and derives the resource
// profile the rest of the pipeline is tuned by: cache capacity, preload
// breadth, raster clamp bounds, fetch timeout, and the completion-detector
// strategy. The classification happens once; every component reads the same
// Profile value afterwards.
package platform

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Profile is the capability classification of the running engine.
// Zero values are replaced by the defaults of the matching tier in Detect
// and Default; a Profile built by hand is used as-is.
type Profile struct {
	// Constrained marks engines with materially smaller safe raster and
	// memory limits. It gates reduced capacity, reduced preload breadth,
	// tiered pressure eviction, and the polling completion detector.
	Constrained bool `env:"PREVIEW_CONSTRAINED"`

	// CacheCapacity is the rendered-artifact cache entry limit.
	CacheCapacity int `env:"PREVIEW_CACHE_CAPACITY"`

	// PreloadBreadth is how many upcoming keys the preloader works ahead.
	PreloadBreadth int `env:"PREVIEW_PRELOAD_BREADTH"`

	// FetchTimeout bounds a single fetch+decode attempt.
	FetchTimeout time.Duration `env:"PREVIEW_FETCH_TIMEOUT"`

	// PollCompletion selects the poll-driven completion detector instead of
	// the event-driven one. Defaults to Constrained.
	PollCompletion bool `env:"PREVIEW_POLL_COMPLETION"`

	// MaxEdge and MaxArea clamp rendered raster surfaces.
	MaxEdge int `env:"PREVIEW_MAX_EDGE"`
	MaxArea int `env:"PREVIEW_MAX_AREA"`
}

// Tier defaults. Constrained bounds follow the smallest limits known to be
// safe on mobile browser engines; desktop bounds are the upper end.
const (
	desktopCapacity     = 30
	constrainedCapacity = 10

	desktopBreadth     = 5
	constrainedBreadth = 1

	desktopMaxEdge     = 2048
	constrainedMaxEdge = 1024

	desktopMaxArea     = 4 << 20 // 4 MP
	constrainedMaxArea = 1 << 20 // 1 MP

	defaultFetchTimeout = 10 * time.Second
)

// Default returns the profile for the given classification with every knob
// at its tier default.
func Default(constrained bool) Profile {
	p := Profile{Constrained: constrained}
	p.fill()
	return p
}

// Detect builds a Profile from the process environment. Unset variables fall
// back to the tier defaults of the resulting classification.
func Detect() (Profile, error) {
	p, err := env.ParseAs[Profile]()
	if err != nil {
		return Profile{}, err
	}
	p.fill()
	return p, nil
}

// fill replaces zero knobs with tier defaults.
func (p *Profile) fill() {
	if p.CacheCapacity <= 0 {
		p.CacheCapacity = desktopCapacity
		if p.Constrained {
			p.CacheCapacity = constrainedCapacity
		}
	}
	if p.PreloadBreadth <= 0 {
		p.PreloadBreadth = desktopBreadth
		if p.Constrained {
			p.PreloadBreadth = constrainedBreadth
		}
	}
	if p.FetchTimeout <= 0 {
		p.FetchTimeout = defaultFetchTimeout
	}
	if p.MaxEdge <= 0 {
		p.MaxEdge = desktopMaxEdge
		if p.Constrained {
			p.MaxEdge = constrainedMaxEdge
		}
	}
	if p.MaxArea <= 0 {
		p.MaxArea = desktopMaxArea
		if p.Constrained {
			p.MaxArea = constrainedMaxArea
		}
	}
	if p.Constrained && !p.PollCompletion {
		p.PollCompletion = true
	}
}
