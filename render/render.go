// Package render turns decoded bitmaps into watermarked raster artifacts.
//
// Rendering is CPU-bound and synchronous: the bitmap is downscaled into a
// size-clamped RGBA surface, then a repeating diagonal label pattern is
// composited on top. Identical bitmap + identical label always produce a
// pixel-identical artifact; nothing here reads clocks or randomness.
package render

import (
	"errors"
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/IvanBrykalov/previewcache/platform"
)

// ErrRenderFailure marks a surface allocation or drawing failure that
// persists even after size clamping.
var ErrRenderFailure = errors.New("render: surface failure")

// Config bounds the raster surface and shapes the watermark pattern.
// Zero values are replaced with defaults in New.
type Config struct {
	// MaxEdge clamps the longest surface edge, in pixels.
	MaxEdge int
	// MaxArea clamps the total surface area, in pixels.
	MaxArea int

	// FontFraction sizes the label relative to surface width.
	FontFraction float64
	// MinFontPx is the absolute font size floor.
	MinFontPx int

	// LineSpacingFraction spaces the parallel pattern lines relative to
	// surface height; MinLineSpacingPx is the absolute floor.
	LineSpacingFraction float64
	MinLineSpacingPx    int

	// CullMarginPx drops placements whose anchor falls further than this
	// outside the surface bounds.
	CullMarginPx int

	// AngleDeg is the pattern rotation. Negative tilts up to the right.
	AngleDeg float64
}

// DefaultConfig returns the watermark configuration for a platform profile.
// Raster bounds come from the profile; pattern shape is fixed policy.
func DefaultConfig(p platform.Profile) Config {
	return Config{
		MaxEdge:             p.MaxEdge,
		MaxArea:             p.MaxArea,
		FontFraction:        0.05,
		MinFontPx:           12,
		LineSpacingFraction: 0.15,
		MinLineSpacingPx:    48,
		CullMarginPx:        100,
		AngleDeg:            -30,
	}
}

// Artifact is an immutable rendered surface owned by the cache.
// Consumers take copies via Clone and never hold a live reference to the
// backing pixels.
type Artifact struct {
	img *image.RGBA
}

// Bounds returns the artifact dimensions.
func (a *Artifact) Bounds() image.Rectangle { return a.img.Bounds() }

// Clone returns an independent copy of the artifact pixels for a display
// surface. Mutating the copy cannot corrupt the cached artifact.
func (a *Artifact) Clone() *image.RGBA {
	dst := image.NewRGBA(a.img.Bounds())
	copy(dst.Pix, a.img.Pix)
	return dst
}

// Pix exposes the raw pixel buffer for equality checks and encoding.
// Callers must treat it as read-only.
func (a *Artifact) Pix() []byte { return a.img.Pix }

// Renderer draws watermarked artifacts with one fixed Config.
// It is stateless after construction and safe for concurrent use.
type Renderer struct {
	cfg Config
}

// New constructs a Renderer, filling zero Config fields with the desktop
// profile defaults.
func New(cfg Config) *Renderer {
	def := DefaultConfig(platform.Default(false))
	if cfg.MaxEdge <= 0 {
		cfg.MaxEdge = def.MaxEdge
	}
	if cfg.MaxArea <= 0 {
		cfg.MaxArea = def.MaxArea
	}
	if cfg.FontFraction <= 0 {
		cfg.FontFraction = def.FontFraction
	}
	if cfg.MinFontPx <= 0 {
		cfg.MinFontPx = def.MinFontPx
	}
	if cfg.LineSpacingFraction <= 0 {
		cfg.LineSpacingFraction = def.LineSpacingFraction
	}
	if cfg.MinLineSpacingPx <= 0 {
		cfg.MinLineSpacingPx = def.MinLineSpacingPx
	}
	if cfg.CullMarginPx <= 0 {
		cfg.CullMarginPx = def.CullMarginPx
	}
	if cfg.AngleDeg == 0 {
		cfg.AngleDeg = def.AngleDeg
	}
	return &Renderer{cfg: cfg}
}

// Render draws src into a size-clamped surface and overlays the repeating
// label pattern. The source is downscaled only when it exceeds the clamp
// bounds; aspect ratio is preserved within rounding.
func (r *Renderer) Render(src image.Image, label string) (*Artifact, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil bitmap", ErrRenderFailure)
	}
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw <= 0 || sh <= 0 {
		return nil, fmt.Errorf("%w: empty bitmap %dx%d", ErrRenderFailure, sw, sh)
	}

	tw, th := clampSize(sw, sh, r.cfg.MaxEdge, r.cfg.MaxArea)
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	if dst == nil || len(dst.Pix) == 0 {
		return nil, fmt.Errorf("%w: allocation of %dx%d surface", ErrRenderFailure, tw, th)
	}

	if tw == sw && th == sh {
		xdraw.Copy(dst, image.Point{}, src, sb, xdraw.Src, nil)
	} else {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	}

	if label != "" {
		r.overlay(dst, label)
	}
	return &Artifact{img: dst}, nil
}

// clampSize computes target dimensions that preserve aspect ratio while
// respecting the max edge and max area bounds. It never upscales.
func clampSize(w, h, maxEdge, maxArea int) (int, int) {
	scale := 1.0
	if longest := max(w, h); longest > maxEdge {
		scale = float64(maxEdge) / float64(longest)
	}
	if area := float64(w) * float64(h) * scale * scale; area > float64(maxArea) {
		scale *= math.Sqrt(float64(maxArea) / area)
	}
	if scale >= 1 {
		return w, h
	}
	tw := int(math.Round(float64(w) * scale))
	th := int(math.Round(float64(h) * scale))
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}
