// Package render composes finished images from a layout result: it
// duplicates the background per page, applies a readability overlay, draws
// every line at its computed position with justification spacing, and
// optionally stamps the date in a corner.
//
// The composer is the only place aware of text direction. Layout keeps
// words in logical order; for right-to-left text the word sequence is
// reversed here, at draw time, via [visualOrder]. The reversal never feeds
// back into layout measurements.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"github.com/negar-bot/negar/internal/fontset"
	"github.com/negar-bot/negar/internal/layout"
)

// overlayAlpha is the opacity of the white layer composited over the
// background so dark text stays readable on busy photographs.
const overlayAlpha = 100

// textColor is the ink used for all body text.
var textColor = color.NRGBA{0, 0, 0, 255}

// stampColor is deliberately softer than the body ink.
var stampColor = color.NRGBA{64, 64, 64, 255}

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// StampOptions configures the corner date stamp.
type StampOptions struct {
	// Enabled toggles the stamp entirely.
	Enabled bool
	// Corner is one of "bottom-left", "bottom-right", "top-left", "top-right".
	Corner string
	// Size is the stamp font size in pixels.
	Size float64
	// Now supplies the stamp time; nil means time.Now. Injected for tests.
	Now func() time.Time
}

// Options configures a render run. Paddings are pixel values already
// resolved against the background dimensions by the caller.
type Options struct {
	// Background is the image each page is drawn onto a copy of.
	Background image.Image
	// Fonts supplies the faces used for drawing and measuring.
	Fonts *fontset.Set
	// PadTop, PadLeft, PadRight position the text block, in pixels.
	PadTop   int
	PadLeft  int
	PadRight int
	// EmphasisScale multiplies the font size on emphasized lines. It must
	// match the value the layout ran with. Values <= 0 mean no scaling.
	EmphasisScale float64
	// RTL selects right-to-left presentation: words reversed at draw time
	// and unjustified lines aligned to the right edge.
	RTL bool
	// Stamp configures the corner date stamp.
	Stamp StampOptions
	// JPEGQuality is the encoder quality (1-100).
	JPEGQuality int
}

// ///////////////////////////////////////////////
// Entry Point
// ///////////////////////////////////////////////

// Render produces one encoded JPEG per page, in page order. A failure to
// draw the date stamp is logged and swallowed; any other failure aborts
// with an error. A layout with a single empty page yields a single
// background-only image.
func Render(res *layout.Result, opts Options) ([][]byte, error) {
	if opts.Background == nil {
		return nil, fmt.Errorf("render: nil background")
	}
	if opts.Fonts == nil {
		return nil, fmt.Errorf("render: nil font set")
	}

	images := make([][]byte, 0, len(res.Pages))
	for i, page := range res.Pages {
		img, err := renderPage(page, res, opts)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}

		var buf bytes.Buffer
		quality := opts.JPEGQuality
		if quality <= 0 {
			quality = 90
		}
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		images = append(images, buf.Bytes())
	}
	return images, nil
}

// renderPage draws one page's lines onto a fresh copy of the background.
func renderPage(page layout.Page, res *layout.Result, opts Options) (image.Image, error) {
	canvas := imaging.Clone(opts.Background)
	bounds := canvas.Bounds()

	// Readability overlay.
	overlay := image.NewUniform(color.NRGBA{255, 255, 255, overlayAlpha})
	draw.Draw(canvas, bounds, overlay, image.Point{}, draw.Over)

	for i, ln := range page.Lines {
		if len(ln.Words) == 0 {
			continue // blank line: advances position only
		}
		lineTop := float64(opts.PadTop) + float64(i)*res.LineHeight
		if err := drawLine(canvas, ln, lineTop, res.FontSize, opts); err != nil {
			return nil, err
		}
	}

	if opts.Stamp.Enabled {
		if err := drawStamp(canvas, opts); err != nil {
			// The stamp is decoration; the page still ships without it.
			slog.Warn("date stamp skipped", "error", err)
		}
	}

	return canvas, nil
}

// ///////////////////////////////////////////////
// Line Drawing
// ///////////////////////////////////////////////

// drawLine draws one line of words with the layout's justification spacing
// applied between them.
//
// Positioning rules: justified lines span the full text width starting at
// the left padding. Natural (unjustified) lines hug the right padding edge
// in RTL mode and the left padding edge otherwise.
func drawLine(canvas draw.Image, ln layout.Line, lineTop float64, baseSize float64, opts Options) error {
	size := baseSize
	role := fontset.RoleBody
	if ln.Emphasis {
		role = fontset.RoleEmphasis
		if opts.EmphasisScale > 0 {
			size = baseSize * opts.EmphasisScale
		}
	}

	face, err := opts.Fonts.Face(role, size)
	if err != nil {
		return err
	}
	ascent, err := opts.Fonts.Ascent(role, size)
	if err != nil {
		return err
	}

	width := canvas.Bounds().Dx()
	renderedWidth := ln.Width + ln.Spacing*float64(len(ln.Words)-1)

	x := float64(opts.PadLeft)
	if ln.Spacing == 0 && opts.RTL {
		x = float64(width-opts.PadRight) - renderedWidth
		if x < float64(opts.PadLeft) {
			x = float64(opts.PadLeft)
		}
	}

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(textColor),
		Face: face,
	}

	space := opts.Fonts.SpaceWidth(size)
	for _, word := range visualOrder(ln.Words, opts.RTL) {
		d.Dot = fixed.Point26_6{
			X: floatToFixed(x),
			Y: floatToFixed(lineTop + ascent),
		}
		d.DrawString(word)
		x += opts.Fonts.WordWidth(word, size, ln.Emphasis) + space + ln.Spacing
	}
	return nil
}

// visualOrder returns the draw-time word order: logical order for
// left-to-right text, reversed for right-to-left. Pure function; the input
// slice is never mutated.
func visualOrder(words []string, rtl bool) []string {
	if !rtl {
		return words
	}
	out := make([]string, len(words))
	for i, w := range words {
		out[len(words)-1-i] = w
	}
	return out
}

// IsRTL reports whether text reads right to left, judged by its first
// strong directional character. Text with no strong character counts as
// left-to-right.
func IsRTL(text string) bool {
	for i := 0; i < len(text); {
		prop, size := bidi.LookupString(text[i:])
		switch prop.Class() {
		case bidi.R, bidi.AL:
			return true
		case bidi.L:
			return false
		}
		i += size
	}
	return false
}

// floatToFixed converts float pixels to 26.6 fixed point.
func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
