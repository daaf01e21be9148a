package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// Watermark colors: a semi-transparent light fill over a darker stroke
// outline keeps the mark legible over both light and dark image regions.
var (
	markFill   = color.RGBA{R: 255, G: 255, B: 255, A: 136}
	markStroke = color.RGBA{R: 32, G: 32, B: 32, A: 112}
)

// strokeOffsets are the 1px outline passes drawn under the fill.
var strokeOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// lineReach extends each pattern line beyond the diagonal so rotated rows
// still cross the whole surface.
const lineReach = 1.5

// labelTile is one horizontal run of the label, pre-drawn at the base face
// size with stroke and fill. Placements scale and rotate it onto the surface.
type labelTile struct {
	img *image.RGBA
	// advance is the run width in base-face pixels, before scaling.
	advance int
}

// renderTile draws the label once at the base face size.
func renderTile(label string) *labelTile {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	adv := d.MeasureString(label).Ceil()
	if adv <= 0 {
		adv = 1
	}

	const pad = 2 // room for the 1px stroke offsets
	m := face.Metrics()
	w := adv + 2*pad
	h := m.Ascent.Ceil() + m.Descent.Ceil() + 2*pad
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	baseline := pad + m.Ascent.Ceil()

	// Stroke passes first, then the fill on top.
	d.Dst = img
	d.Src = image.NewUniform(markStroke)
	for _, off := range strokeOffsets {
		d.Dot = fixed.P(pad+off[0], baseline+off[1])
		d.DrawString(label)
	}
	d.Src = image.NewUniform(markFill)
	d.Dot = fixed.P(pad, baseline)
	d.DrawString(label)

	return &labelTile{img: img, advance: adv}
}

// overlay tiles the rotated label pattern across dst edge-to-edge.
//
// The pattern is a family of parallel lines through the surface center,
// spaced by max(LineSpacingFraction*height, MinLineSpacingPx); the line
// count comes from the surface diagonal so the whole surface is covered.
// Along each line the label repeats at its measured width until the line,
// extended to lineReach times the diagonal, is filled.
func (r *Renderer) overlay(dst *image.RGBA, label string) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()

	fontPx := float64(w) * r.cfg.FontFraction
	if fontPx < float64(r.cfg.MinFontPx) {
		fontPx = float64(r.cfg.MinFontPx)
	}
	tile := renderTile(label)
	// basicfont glyphs are 13px tall; scale them up to the target size.
	glyphScale := fontPx / float64(basicfont.Face7x13.Height)

	spacing := r.cfg.LineSpacingFraction * float64(h)
	if spacing < float64(r.cfg.MinLineSpacingPx) {
		spacing = float64(r.cfg.MinLineSpacingPx)
	}

	diag := math.Hypot(float64(w), float64(h))
	nLines := int(diag/spacing) + 2

	theta := r.cfg.AngleDeg * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)
	// u runs along a pattern line, v steps between lines.
	ux, uy := cos, sin
	vx, vy := -sin, cos

	// Repeat step along the line: the scaled run width plus a small gap.
	step := float64(tile.advance)*glyphScale + fontPx
	reach := lineReach * diag / 2

	cx, cy := float64(w)/2, float64(h)/2
	margin := float64(r.cfg.CullMarginPx)

	for i := 0; i < nLines; i++ {
		// Lines fan out from the center: 0, +1, -1, +2, -2, …
		k := float64((i+1)/2)
		if i%2 == 0 {
			k = -k
		}
		ox, oy := cx+k*spacing*vx, cy+k*spacing*vy

		// Stagger alternate lines by half a step for denser coverage.
		phase := 0.0
		if i%2 == 1 {
			phase = step / 2
		}
		for t := -reach + phase; t < reach; t += step {
			ax, ay := ox+t*ux, oy+t*uy
			// Cull placements well outside the surface for throughput.
			if ax < -margin || ax > float64(w)+margin || ay < -margin || ay > float64(h)+margin {
				continue
			}
			r.placeTile(dst, tile, glyphScale, sin, cos, ax, ay)
		}
	}
}

// placeTile composites one scaled, rotated label run centered on (ax, ay).
func (r *Renderer) placeTile(dst *image.RGBA, tile *labelTile, scale, sin, cos, ax, ay float64) {
	tb := tile.img.Bounds()
	pcx, pcy := float64(tb.Dx())/2, float64(tb.Dy())/2

	// Affine: src point p -> anchor + R(theta)*S(scale)*(p - center).
	m := f64.Aff3{
		scale * cos, -scale * sin, ax - scale*(cos*pcx-sin*pcy),
		scale * sin, scale * cos, ay - scale*(sin*pcx+cos*pcy),
	}
	xdraw.ApproxBiLinear.Transform(dst, m, tile.img, tb, xdraw.Over, nil)
}
