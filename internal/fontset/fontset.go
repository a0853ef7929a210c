// Package fontset loads the fonts used for rendering and answers glyph
// metric queries for the layout engine.
//
// Fonts are keyed by logical role: "body" for regular text and "emphasis"
// for the bolded first line. When no font files are configured the embedded
// Go fonts are used so the daemon always starts, though they lack Arabic
// script coverage — Persian deployments should configure real font files.
//
// A [Set] caches one font.Face per (role, size) pair. Faces returned by
// opentype are not safe for concurrent use, which is fine here: the daemon
// processes one message at a time.
package fontset

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Role identifies a logical font slot.
type Role string

const (
	// RoleBody is the regular-weight font used for most text.
	RoleBody Role = "body"
	// RoleEmphasis is the bold-weight font used for the first line.
	RoleEmphasis Role = "emphasis"
)

// fontDPI keeps one font unit equal to one pixel, so layout math can treat
// font sizes as pixel heights.
const fontDPI = 72

// ///////////////////////////////////////////////
// Set
// ///////////////////////////////////////////////

// faceKey identifies a cached face by role and size.
type faceKey struct {
	role Role
	size float64
}

// Set holds the parsed fonts for every role plus a face cache.
type Set struct {
	fonts map[Role]*opentype.Font
	faces map[faceKey]font.Face
}

// Load parses the configured font files into a Set. Empty paths fall back
// to the embedded Go fonts (regular for body, bold for emphasis). A path
// that is set but unreadable or unparseable is a configuration error.
func Load(bodyPath, emphasisPath string) (*Set, error) {
	body, err := loadFont(bodyPath, goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load body font: %w", err)
	}
	emphasis, err := loadFont(emphasisPath, gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("load emphasis font: %w", err)
	}
	return &Set{
		fonts: map[Role]*opentype.Font{
			RoleBody:     body,
			RoleEmphasis: emphasis,
		},
		faces: make(map[faceKey]font.Face),
	}, nil
}

// loadFont reads and parses the font at path, or parses fallback when path
// is empty.
func loadFont(path string, fallback []byte) (*opentype.Font, error) {
	data := fallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font file: %w", err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return f, nil
}

// Face returns a font.Face for the given role at size, creating and caching
// it on first use.
func (s *Set) Face(role Role, size float64) (font.Face, error) {
	key := faceKey{role: role, size: size}
	if f, ok := s.faces[key]; ok {
		return f, nil
	}

	otf, ok := s.fonts[role]
	if !ok {
		return nil, fmt.Errorf("no font loaded for role %q", role)
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    size,
		DPI:     fontDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s face at %g: %w", role, size, err)
	}
	s.faces[key] = face
	return face, nil
}

// ///////////////////////////////////////////////
// Measurement
// ///////////////////////////////////////////////

// WordWidth returns the advance width in pixels of word drawn at size.
// Emphasis selects the bold face. Implements the layout engine's Measurer.
//
// A face that cannot be created (corrupt size, role missing) measures as
// zero width; the fatal-config cases are already rejected in [Load].
func (s *Set) WordWidth(word string, size float64, emphasis bool) float64 {
	face, err := s.Face(roleFor(emphasis), size)
	if err != nil {
		return 0
	}
	return fixedToPixels(font.MeasureString(face, word))
}

// SpaceWidth returns the advance width in pixels of a single space at size.
func (s *Set) SpaceWidth(size float64) float64 {
	face, err := s.Face(RoleBody, size)
	if err != nil {
		return 0
	}
	return fixedToPixels(font.MeasureString(face, " "))
}

// Ascent returns the ascent in pixels of the role's face at size, used by
// the composer to place the text baseline inside each line box.
func (s *Set) Ascent(role Role, size float64) (float64, error) {
	face, err := s.Face(role, size)
	if err != nil {
		return 0, err
	}
	return fixedToPixels(face.Metrics().Ascent), nil
}

// roleFor maps the emphasis flag used by the layout engine to a Role.
func roleFor(emphasis bool) Role {
	if emphasis {
		return RoleEmphasis
	}
	return RoleBody
}

// fixedToPixels converts a 26.6 fixed-point value to float pixels.
func fixedToPixels(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
