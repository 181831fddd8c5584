// Package textnorm canonicalizes Arabic text so that user input and corpus
// text can be compared regardless of diacritics, elongation and letter
// variant spelling.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// marks covers the Quranic annotation signs, harakat, superscript alef and
// the tatweel (U+0640) elongation character.
var marks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0610, Hi: 0x061A, Stride: 1},
		{Lo: 0x0640, Hi: 0x0640, Stride: 1},
		{Lo: 0x064B, Hi: 0x065F, Stride: 1},
		{Lo: 0x0670, Hi: 0x0670, Stride: 1},
		{Lo: 0x06D6, Hi: 0x06DC, Stride: 1},
		{Lo: 0x06DF, Hi: 0x06E8, Stride: 1},
		{Lo: 0x06EA, Hi: 0x06ED, Stride: 1},
	},
}

// foldLetter maps letters with several written forms onto their base letter.
func foldLetter(r rune) rune {
	switch r {
	case 'آ', 'أ', 'إ', 'ٱ': // alef with madda, hamza above/below, wasla
		return 'ا'
	case 'ة': // ta marbuta
		return 'ه'
	case 'ى', 'ی': // alef maqsura, farsi yeh
		return 'ي'
	}
	return r
}

// Normalize returns the comparison form of text. It never fails, returns ""
// for empty input and is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	// Composing first lets a hamza seat typed as letter plus combining
	// hamza match the precomposed letter. transform.Chain keeps state, so a
	// fresh chain is built per call.
	t := transform.Chain(norm.NFC, runes.Remove(runes.In(marks)), runes.Map(foldLetter))
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return ""
	}
	return cases.Fold().String(out)
}

// Contains reports whether the normalized form of s contains the normalized
// form of substr.
func Contains(s, substr string) bool {
	return strings.Contains(Normalize(s), Normalize(substr))
}

const (
	indicZero  = '۰' // extended arabic-indic digit zero
	arabicZero = '٠' // arabic-indic digit zero
)

// IndicDigits replaces ASCII digits with extended Arabic-Indic digits for display.
func IndicDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return indicZero + (r - '0')
		}
		return r
	}, s)
}

// ASCIIDigits replaces Arabic-Indic and extended Arabic-Indic digits with
// their ASCII counterparts so numeric references parse uniformly.
func ASCIIDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= arabicZero && r <= arabicZero+9:
			return '0' + (r - arabicZero)
		case r >= indicZero && r <= indicZero+9:
			return '0' + (r - indicZero)
		}
		return r
	}, s)
}
