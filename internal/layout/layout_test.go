// Tests for the layout engine: wrapping, justification, font-size fitting,
// pagination, and the word-preservation invariant.

package layout

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

// fakeMeasurer gives every rune an advance of exactly size pixels and every
// space an advance of size pixels, making expected widths easy to compute
// by hand: "abc" at size 10 is 30px wide.
type fakeMeasurer struct{}

func (fakeMeasurer) WordWidth(w string, size float64, _ bool) float64 {
	return float64(utf8.RuneCountInString(w)) * size
}

func (fakeMeasurer) SpaceWidth(size float64) float64 { return size }

// params returns a baseline Params for tests: 100px wide, 3 lines of 10px
// text per page, single candidate size, generous page budget.
func params() Params {
	return Params{
		MaxWidth:   100,
		MaxHeight:  30,
		Sizes:      []float64{10},
		LineFactor: 1,
		MaxPages:   100,
		Measurer:   fakeMeasurer{},
	}
}

// allWords flattens the words of every line of every page, in order.
func allWords(r *Result) []string {
	var words []string
	for _, pg := range r.Pages {
		for _, ln := range pg.Lines {
			words = append(words, ln.Words...)
		}
	}
	return words
}

// ///////////////////////////////////////////////
// Invariants
// ///////////////////////////////////////////////

func TestWordPreservation(t *testing.T) {
	inputs := []string{
		"hello world",
		"one two three four five six seven eight nine ten",
		"first paragraph here\nsecond paragraph follows\n\nthird after a blank",
		"tiny",
		"a aa aaa aaaa aaaaa aaaaaa aaaaaaa aaaaaaaa aaaaaaaaa aaaaaaaaaa",
		"wordlongerthanthewholeline plus some short ones",
	}
	for _, text := range inputs {
		res, err := Layout(text, params())
		if err != nil {
			t.Fatalf("Layout(%q) failed: %v", text, err)
		}
		got := allWords(res)
		want := strings.Fields(text)
		if len(got) != len(want) {
			t.Fatalf("Layout(%q): %d words out, %d in", text, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Layout(%q): word %d = %q, want %q", text, i, got[i], want[i])
			}
		}
	}
}

func TestJustifiedLinesSpanMaxWidth(t *testing.T) {
	// Words of 4 runes at size 10: two per line (40+10+40=90 <= 100),
	// so 8 words make 4 lines and only the last is paragraph-final.
	text := strings.TrimSpace(strings.Repeat("wxyz ", 8))
	res, err := Layout(text, params())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	var lines []Line
	for _, pg := range res.Pages {
		lines = append(lines, pg.Lines...)
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}

	for i, ln := range lines[:3] {
		rendered := ln.Width + ln.Spacing*float64(len(ln.Words)-1)
		if math.Abs(rendered-100) > 1 {
			t.Errorf("line %d rendered width = %g, want 100 within 1px", i, rendered)
		}
		if ln.Spacing <= 0 {
			t.Errorf("line %d spacing = %g, want > 0", i, ln.Spacing)
		}
	}
	if last := lines[3]; last.Spacing != 0 {
		t.Errorf("final line spacing = %g, want 0", last.Spacing)
	}
}

func TestPageFinalLineStillJustified(t *testing.T) {
	// 4 lines with 3 lines per page: line index 2 ends page one but is not
	// paragraph-final, so it keeps its justification.
	text := strings.TrimSpace(strings.Repeat("wxyz ", 8))
	res, err := Layout(text, params())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if len(res.Pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(res.Pages))
	}
	pageFinal := res.Pages[0].Lines[len(res.Pages[0].Lines)-1]
	if pageFinal.ParagraphEnd {
		t.Fatal("page-final line unexpectedly paragraph-final")
	}
	if pageFinal.Spacing <= 0 {
		t.Errorf("page-final line spacing = %g, want > 0", pageFinal.Spacing)
	}
}

func TestOverlongWordAloneUnsplit(t *testing.T) {
	text := "aaaaaaaaaaaaaaaaaaaaaaaa bb cc" // 24 runes = 240px > 100px
	res, err := Layout(text, params())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	first := res.Pages[0].Lines[0]
	if len(first.Words) != 1 {
		t.Fatalf("first line has %d words, want the overlong word alone", len(first.Words))
	}
	if first.Words[0] != "aaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("first line word = %q, want the overlong word intact", first.Words[0])
	}
	if first.Spacing != 0 {
		t.Errorf("single-word line spacing = %g, want 0", first.Spacing)
	}
}

// ///////////////////////////////////////////////
// Pagination
// ///////////////////////////////////////////////

func TestPaginationSplitsThreeThreeOne(t *testing.T) {
	// Seven 10-rune words, each exactly 100px: one word per line, 7 lines,
	// 3 lines per page.
	text := strings.TrimSpace(strings.Repeat("abcdefghij ", 7))
	p := params()
	p.MaxPages = 1 // forces the only candidate into fallback mode

	res, err := Layout(text, p)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	wantCounts := []int{3, 3, 1}
	if len(res.Pages) != len(wantCounts) {
		t.Fatalf("got %d pages, want %d", len(res.Pages), len(wantCounts))
	}
	for i, want := range wantCounts {
		if got := len(res.Pages[i].Lines); got != want {
			t.Errorf("page %d has %d lines, want %d", i, got, want)
		}
	}
}

func TestBlankSourceLinesPreserved(t *testing.T) {
	res, err := Layout("aa\n\nbb", params())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	var lines []Line
	for _, pg := range res.Pages {
		lines = append(lines, pg.Lines...)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (content, blank, content)", len(lines))
	}
	if len(lines[1].Words) != 0 {
		t.Errorf("middle line has words %v, want blank", lines[1].Words)
	}
}

// ///////////////////////////////////////////////
// Degenerate Inputs
// ///////////////////////////////////////////////

func TestEmptyTextSingleEmptyPage(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n", " \t \n "} {
		res, err := Layout(text, params())
		if err != nil {
			t.Fatalf("Layout(%q) failed: %v", text, err)
		}
		if len(res.Pages) != 1 {
			t.Fatalf("Layout(%q): %d pages, want 1", text, len(res.Pages))
		}
		if len(res.Pages[0].Lines) != 0 {
			t.Errorf("Layout(%q): %d lines, want 0", text, len(res.Pages[0].Lines))
		}
		if res.FontSize != 10 {
			t.Errorf("Layout(%q): FontSize = %g, want largest candidate", text, res.FontSize)
		}
	}
}

func TestHelloWorldSingleNaturalLine(t *testing.T) {
	p := params()
	p.MaxWidth = 120 // "hello world" measures 110px under fakeMeasurer
	res, err := Layout("hello world", p)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if len(res.Pages) != 1 || len(res.Pages[0].Lines) != 1 {
		t.Fatalf("got %d pages / %d lines, want 1/1",
			len(res.Pages), len(res.Pages[0].Lines))
	}
	ln := res.Pages[0].Lines[0]
	if ln.Spacing != 0 {
		t.Errorf("spacing = %g, want 0 (first line is also the last)", ln.Spacing)
	}
	if !ln.Emphasis {
		t.Error("first line not flagged for emphasis")
	}
	if !ln.ParagraphEnd {
		t.Error("only line not flagged paragraph-final")
	}
}

func TestHelloWorldWrapsWhenWidthTooNarrow(t *testing.T) {
	// At 100px the pair measures 110px and must break into two lines.
	res, err := Layout("hello world", params())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if len(res.Pages) != 1 || len(res.Pages[0].Lines) != 2 {
		t.Fatalf("got %d pages / %d lines, want 1/2",
			len(res.Pages), len(res.Pages[0].Lines))
	}
}

// ///////////////////////////////////////////////
// Emphasis
// ///////////////////////////////////////////////

func TestOnlyFirstLineEmphasized(t *testing.T) {
	text := "title line\nbody text follows with more words here"
	res, err := Layout(text, params())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	var lines []Line
	for _, pg := range res.Pages {
		lines = append(lines, pg.Lines...)
	}
	if !lines[0].Emphasis {
		t.Error("first line not emphasized")
	}
	for i, ln := range lines[1:] {
		if ln.Emphasis {
			t.Errorf("line %d emphasized, want only line 0", i+1)
		}
	}
}

func TestEmphasisSkipsLeadingBlankLines(t *testing.T) {
	res, err := Layout("\ncontent here", params())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	var lines []Line
	for _, pg := range res.Pages {
		lines = append(lines, pg.Lines...)
	}
	if len(lines) < 2 {
		t.Fatalf("got %d lines, want blank + content", len(lines))
	}
	if lines[0].Emphasis {
		t.Error("blank line emphasized")
	}
	if !lines[1].Emphasis {
		t.Error("first content line not emphasized")
	}
}

func TestEmphasisScaleAffectsWrapping(t *testing.T) {
	// At scale 2 the first line's words measure double, so fewer fit.
	p := params()
	p.EmphasisScale = 2
	text := "wxyz wxyz wxyz" // 40px words; at 80px each only one fits per 100px line

	res, err := Layout(text, p)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	first := res.Pages[0].Lines[0]
	if len(first.Words) != 1 {
		t.Errorf("emphasized first line has %d words, want 1", len(first.Words))
	}
}

// ///////////////////////////////////////////////
// Font-Size Fitting
// ///////////////////////////////////////////////

func TestFitPicksLargestFittingSize(t *testing.T) {
	// At size 20, words are 80px: one per line, 6 lines, 1 line per page
	// (line height 20, max height 30) = 6 pages. At size 10 they are 40px:
	// two per line, 3 lines, 3 per page = 1 page.
	p := params()
	p.Sizes = []float64{20, 10}
	p.MaxPages = 2
	text := strings.TrimSpace(strings.Repeat("wxyz ", 6))

	res, err := Layout(text, p)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if res.FontSize != 10 {
		t.Errorf("FontSize = %g, want 10", res.FontSize)
	}
	if res.LineHeight != 10 {
		t.Errorf("LineHeight = %g, want 10", res.LineHeight)
	}
}

func TestFitKeepsLargestWhenItFits(t *testing.T) {
	p := params()
	p.Sizes = []float64{10, 5}
	p.MaxPages = 2

	res, err := Layout("hi there", p)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if res.FontSize != 10 {
		t.Errorf("FontSize = %g, want largest candidate 10", res.FontSize)
	}
}

func TestFallbackGrowsPagesInsteadOfFailing(t *testing.T) {
	p := params()
	p.Sizes = []float64{10}
	p.MaxPages = 1
	// 70 one-word lines at 3 lines per page: way over budget.
	text := strings.TrimSpace(strings.Repeat("abcdefghij ", 70))

	res, err := Layout(text, p)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if len(res.Pages) <= p.MaxPages {
		t.Errorf("got %d pages, want page count to exceed the budget", len(res.Pages))
	}
	if got := len(allWords(res)); got != 70 {
		t.Errorf("got %d words, want all 70 preserved", got)
	}
}

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

func TestLayoutErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"nil measurer", func(p *Params) { p.Measurer = nil }},
		{"no sizes", func(p *Params) { p.Sizes = nil }},
		{"zero width", func(p *Params) { p.MaxWidth = 0 }},
		{"zero height", func(p *Params) { p.MaxHeight = 0 }},
		{"zero line factor", func(p *Params) { p.LineFactor = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params()
			tt.mutate(&p)
			if _, err := Layout("some text", p); err == nil {
				t.Error("Layout succeeded, want error")
			}
		})
	}
}

// ///////////////////////////////////////////////
// Determinism
// ///////////////////////////////////////////////

func TestLayoutDeterministic(t *testing.T) {
	text := "some moderately long text that wraps across a few lines and pages\nwith a second paragraph"
	a, err := Layout(text, params())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	b, err := Layout(text, params())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	if len(a.Pages) != len(b.Pages) || a.FontSize != b.FontSize {
		t.Fatal("repeated layout differs in shape")
	}
	for i := range a.Pages {
		if len(a.Pages[i].Lines) != len(b.Pages[i].Lines) {
			t.Fatalf("page %d line count differs", i)
		}
		for j := range a.Pages[i].Lines {
			la, lb := a.Pages[i].Lines[j], b.Pages[i].Lines[j]
			if la.Width != lb.Width || la.Spacing != lb.Spacing {
				t.Errorf("page %d line %d metrics differ", i, j)
			}
		}
	}
}
