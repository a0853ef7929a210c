package fontset

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	s, err := Load("", "")
	if err != nil {
		t.Fatalf("Load with embedded fonts failed: %v", err)
	}
	for _, role := range []Role{RoleBody, RoleEmphasis} {
		if _, err := s.Face(role, 24); err != nil {
			t.Errorf("Face(%s, 24) failed: %v", role, err)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "body.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatalf("write font file: %v", err)
	}

	s, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load from file failed: %v", err)
	}
	if w := s.WordWidth("hello", 24, false); w <= 0 {
		t.Errorf("WordWidth = %g, want > 0", w)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("/nonexistent/font.ttf", ""); err == nil {
		t.Error("Load with missing body path succeeded, want error")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.ttf")
	if err := os.WriteFile(bad, []byte("not a font"), 0o644); err != nil {
		t.Fatalf("write bad font: %v", err)
	}
	if _, err := Load("", bad); err == nil {
		t.Error("Load with corrupt emphasis font succeeded, want error")
	}
}

func TestWordWidthGrowsWithText(t *testing.T) {
	s, err := Load("", "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	short := s.WordWidth("hi", 24, false)
	long := s.WordWidth("hippopotamus", 24, false)
	if short <= 0 || long <= 0 {
		t.Fatalf("widths must be positive, got %g and %g", short, long)
	}
	if long <= short {
		t.Errorf("longer word measured narrower: %g <= %g", long, short)
	}
}

func TestWordWidthGrowsWithSize(t *testing.T) {
	s, err := Load("", "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	small := s.WordWidth("word", 12, false)
	big := s.WordWidth("word", 48, false)
	if big <= small {
		t.Errorf("larger size measured narrower: %g <= %g", big, small)
	}
}

func TestSpaceWidthAndAscent(t *testing.T) {
	s, err := Load("", "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if w := s.SpaceWidth(24); w <= 0 {
		t.Errorf("SpaceWidth = %g, want > 0", w)
	}
	asc, err := s.Ascent(RoleBody, 24)
	if err != nil {
		t.Fatalf("Ascent failed: %v", err)
	}
	if asc <= 0 || asc > 24*1.5 {
		t.Errorf("Ascent = %g, want within (0, 36]", asc)
	}
}

func TestFaceCaching(t *testing.T) {
	s, err := Load("", "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	f1, err := s.Face(RoleBody, 24)
	if err != nil {
		t.Fatalf("Face failed: %v", err)
	}
	f2, err := s.Face(RoleBody, 24)
	if err != nil {
		t.Fatalf("Face failed: %v", err)
	}
	if f1 != f2 {
		t.Error("expected cached face on second call")
	}
}
