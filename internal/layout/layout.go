// Package layout computes the line layout for a block of text: word
// wrapping against a maximum width, full justification, font-size fitting
// over a descending candidate list, and pagination against a maximum height.
//
// The engine works purely on measurements supplied through the [Measurer]
// interface and never touches pixels. Words are kept in logical order
// throughout — right-to-left presentation is a draw-time concern of the
// composer, so the wrap and justify math here stays direction-agnostic.
package layout

import (
	"errors"
	"fmt"
	"strings"
)

// ///////////////////////////////////////////////
// Contracts
// ///////////////////////////////////////////////

// Measurer answers glyph metric queries for a font set. The production
// implementation is fontset.Set; tests use a fixed-advance fake.
type Measurer interface {
	// WordWidth returns the advance width in pixels of word at the given
	// size. Emphasis selects the bold face.
	WordWidth(word string, size float64, emphasis bool) float64
	// SpaceWidth returns the advance width in pixels of one space at size.
	SpaceWidth(size float64) float64
}

// Params configures a layout run.
type Params struct {
	// MaxWidth is the usable text width in pixels.
	MaxWidth float64
	// MaxHeight is the usable text height in pixels per page.
	MaxHeight float64
	// Sizes lists candidate font sizes in descending order. The first size
	// whose layout fits within MaxPages pages wins; if none does, the last
	// (smallest) size is used with as many pages as needed.
	Sizes []float64
	// LineFactor multiplies the font size to obtain the line height.
	LineFactor float64
	// MaxPages is the page budget a candidate size must respect.
	MaxPages int
	// EmphasisScale multiplies the font size for the emphasized first line.
	// Values <= 0 mean no scaling.
	EmphasisScale float64
	// Measurer supplies glyph metrics.
	Measurer Measurer
}

// Line is one visual line of text. Words are in logical order; Spacing is
// the extra width in pixels inserted between adjacent words on top of the
// natural space, zero for unjustified lines.
type Line struct {
	Words []string
	// Width is the natural measured width: word widths plus single spaces.
	Width float64
	// Spacing is the extra per-gap width distributed by justification.
	Spacing float64
	// Emphasis marks the first line of the whole text, drawn bold.
	Emphasis bool
	// ParagraphEnd marks the last line of a source paragraph. Such lines
	// are never justified. A blank source line is an empty ParagraphEnd line.
	ParagraphEnd bool
}

// Page is one rendered image's worth of lines.
type Page struct {
	Lines []Line
}

// Result is a finished layout: the pages plus the metrics they were built
// with, which the composer needs to reproduce the same positions.
type Result struct {
	Pages      []Page
	FontSize   float64
	LineHeight float64
}

// ///////////////////////////////////////////////
// Entry Point
// ///////////////////////////////////////////////

// ErrNoSizes is returned when Params.Sizes is empty; an empty candidate
// list is a configuration error, not a degenerate input.
var ErrNoSizes = errors.New("no candidate font sizes")

// Layout wraps, fits, justifies, and paginates text.
//
// Empty or whitespace-only text yields a single page with no lines rather
// than an error. Long text never fails on size alone: when even the
// smallest candidate exceeds the page budget, the page count grows instead.
func Layout(text string, p Params) (*Result, error) {
	if p.Measurer == nil {
		return nil, errors.New("layout: nil measurer")
	}
	if len(p.Sizes) == 0 {
		return nil, ErrNoSizes
	}
	if p.MaxWidth <= 0 || p.MaxHeight <= 0 {
		return nil, fmt.Errorf("layout: invalid canvas %gx%g", p.MaxWidth, p.MaxHeight)
	}
	if p.LineFactor <= 0 {
		return nil, fmt.Errorf("layout: invalid line factor %g", p.LineFactor)
	}

	if strings.TrimSpace(text) == "" {
		size := p.Sizes[0]
		return &Result{
			Pages:      []Page{{}},
			FontSize:   size,
			LineHeight: size * p.LineFactor,
		}, nil
	}

	size, lines, perPage := fitSize(text, p)

	justify(lines, p.MaxWidth)

	return &Result{
		Pages:      paginate(lines, perPage),
		FontSize:   size,
		LineHeight: size * p.LineFactor,
	}, nil
}

// ///////////////////////////////////////////////
// Font-Size Fitting
// ///////////////////////////////////////////////

// fitSize tries each candidate size in order and returns the first whose
// wrapped layout fits within the page budget, together with its wrapped
// lines and lines-per-page. The smallest candidate is accepted
// unconditionally so long text always lays out.
func fitSize(text string, p Params) (size float64, lines []Line, perPage int) {
	for i, candidate := range p.Sizes {
		lines = wrap(text, candidate, p)
		perPage = linesPerPage(candidate, p)
		pages := (len(lines) + perPage - 1) / perPage
		if pages <= p.MaxPages || i == len(p.Sizes)-1 {
			return candidate, lines, perPage
		}
	}
	// Unreachable: the loop always returns on the last candidate.
	return p.Sizes[len(p.Sizes)-1], lines, perPage
}

// linesPerPage returns how many lines of the given size fit in MaxHeight,
// never less than one.
func linesPerPage(size float64, p Params) int {
	n := int(p.MaxHeight / (size * p.LineFactor))
	if n < 1 {
		n = 1
	}
	return n
}

// ///////////////////////////////////////////////
// Wrapping
// ///////////////////////////////////////////////

// wrap splits text into paragraphs on newlines and greedily wraps each
// paragraph's words at MaxWidth. Blank source lines are preserved as empty
// lines. The first content line of the text is flagged for emphasis and
// measured at the emphasized size so it wraps correctly.
func wrap(text string, size float64, p Params) []Line {
	m := p.Measurer
	emphSize := size
	if p.EmphasisScale > 0 {
		emphSize = size * p.EmphasisScale
	}

	wordWidth := func(w string, emphasis bool) float64 {
		if emphasis {
			return m.WordWidth(w, emphSize, true)
		}
		return m.WordWidth(w, size, false)
	}
	spaceWidth := func(emphasis bool) float64 {
		if emphasis {
			return m.SpaceWidth(emphSize)
		}
		return m.SpaceWidth(size)
	}

	var lines []Line
	emphasisPending := true

	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, Line{ParagraphEnd: true})
			continue
		}

		var cur []string
		var curWidth float64
		var emph bool

		closeLine := func(end bool) {
			lines = append(lines, Line{
				Words:        cur,
				Width:        curWidth,
				Emphasis:     emph,
				ParagraphEnd: end,
			})
			cur = nil
			curWidth = 0
			emphasisPending = false
		}

		for _, w := range words {
			if len(cur) == 0 {
				emph = emphasisPending
				cur = []string{w}
				curWidth = wordWidth(w, emph)
				// An overlong word sits alone on its line, never split.
				if curWidth > p.MaxWidth {
					closeLine(false)
				}
				continue
			}

			ww := wordWidth(w, emph)
			if curWidth+spaceWidth(emph)+ww <= p.MaxWidth {
				cur = append(cur, w)
				curWidth += spaceWidth(emph) + ww
				continue
			}

			closeLine(false)
			emph = emphasisPending
			cur = []string{w}
			curWidth = wordWidth(w, emph)
			if curWidth > p.MaxWidth {
				closeLine(false)
			}
		}

		if len(cur) > 0 {
			closeLine(true)
		} else if len(lines) > 0 {
			// The paragraph ended on an overlong word that already closed
			// its line; retag it as the paragraph's final line.
			lines[len(lines)-1].ParagraphEnd = true
		}
	}

	return lines
}

// ///////////////////////////////////////////////
// Justification
// ///////////////////////////////////////////////

// justify distributes the leftover width of every non-final multi-word line
// evenly between its word gaps so the line spans maxWidth exactly.
// Paragraph-final lines (which include the final line of the whole text)
// and single-word lines keep natural spacing.
func justify(lines []Line, maxWidth float64) {
	for i := range lines {
		ln := &lines[i]
		if ln.ParagraphEnd || len(ln.Words) < 2 {
			continue
		}
		extra := maxWidth - ln.Width
		if extra <= 0 {
			continue
		}
		ln.Spacing = extra / float64(len(ln.Words)-1)
	}
}

// ///////////////////////////////////////////////
// Pagination
// ///////////////////////////////////////////////

// paginate chunks lines into pages of perPage lines, preserving order.
func paginate(lines []Line, perPage int) []Page {
	if len(lines) == 0 {
		return []Page{{}}
	}
	pages := make([]Page, 0, (len(lines)+perPage-1)/perPage)
	for start := 0; start < len(lines); start += perPage {
		end := min(start+perPage, len(lines))
		pages = append(pages, Page{Lines: lines[start:end]})
	}
	return pages
}
