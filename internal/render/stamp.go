package render

import (
	"fmt"
	"image"
	"image/draw"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/negar-bot/negar/internal/fontset"
)

// jalaliMonths holds the Solar Hijri month names, Farvardin first.
var jalaliMonths = [12]string{
	"فروردین", "اردیبهشت", "خرداد", "تیر", "مرداد", "شهریور",
	"مهر", "آبان", "آذر", "دی", "بهمن", "اسفند",
}

// stampMargin is the gap between the stamp and the canvas edge, in pixels.
const stampMargin = 16.0

// ///////////////////////////////////////////////
// Calendar Conversion
// ///////////////////////////////////////////////

// toJalali converts a Gregorian civil date to the Solar Hijri calendar
// using the arithmetic 33-year cycle.
func toJalali(gy, gm, gd int) (jy, jm, jd int) {
	monthDays := [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

	y := gy - 1600
	days := 365*y + (y+3)/4 - (y+99)/100 + (y+399)/400 + monthDays[gm-1] + gd - 1
	if gm > 2 && gregorianLeap(gy) {
		days++
	}

	days -= 79 // days since 1 Farvardin 979
	jy = 979 + 33*(days/12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days >= 366 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}

	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		jm = 7 + (days-186)/30
		jd = 1 + (days-186)%30
	}
	return jy, jm, jd
}

func gregorianLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// persianDigits rewrites ASCII digits as Eastern Arabic-Indic digits.
func persianDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune('۰' + (r - '0'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// jalaliStamp formats a Gregorian date as a Persian date string, for
// example "۴ شهریور ۱۴۰۵".
func jalaliStamp(gy, gm, gd int) string {
	jy, jm, jd := toJalali(gy, gm, gd)
	return persianDigits(fmt.Sprintf("%d %s %d", jd, jalaliMonths[jm-1], jy))
}

// ///////////////////////////////////////////////
// Drawing
// ///////////////////////////////////////////////

// drawStamp draws the current Solar Hijri date in the configured corner.
func drawStamp(canvas draw.Image, opts Options) error {
	size := opts.Stamp.Size
	if size <= 0 {
		return fmt.Errorf("stamp size %.1f out of range", size)
	}

	now := opts.Stamp.Now
	if now == nil {
		now = time.Now
	}
	y, m, d := now().Date()
	text := jalaliStamp(y, int(m), d)

	face, err := opts.Fonts.Face(fontset.RoleBody, size)
	if err != nil {
		return err
	}
	ascent, err := opts.Fonts.Ascent(fontset.RoleBody, size)
	if err != nil {
		return err
	}
	width := opts.Fonts.WordWidth(text, size, false)

	bounds := canvas.Bounds()
	var x, top float64
	switch opts.Stamp.Corner {
	case "top-left":
		x, top = stampMargin, stampMargin
	case "top-right":
		x, top = float64(bounds.Dx())-stampMargin-width, stampMargin
	case "bottom-right":
		x = float64(bounds.Dx()) - stampMargin - width
		top = float64(bounds.Dy()) - stampMargin - size
	case "bottom-left", "":
		x = stampMargin
		top = float64(bounds.Dy()) - stampMargin - size
	default:
		return fmt.Errorf("unknown stamp corner %q", opts.Stamp.Corner)
	}

	d2 := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(stampColor),
		Face: face,
	}
	d2.Dot = fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(top + ascent)}
	d2.DrawString(text)
	return nil
}
