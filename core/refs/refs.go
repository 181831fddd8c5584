// Package refs resolves free-form chapter names and verse references against
// the chapter table.
package refs

import (
	"strings"
	"unicode/utf8"

	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/textnorm"
)

// minContainsLen is the shortest normalized query allowed to match a chapter
// name by substring. Single letters would match almost every name.
const minContainsLen = 2

// NamedVerse maps a well-known verse name to its reference.
type NamedVerse struct {
	Name string
	Ref  quran.VerseRef
}

// DefaultNamedVerses is the table of verses commonly asked for by name.
// Lookup follows table order.
var DefaultNamedVerses = []NamedVerse{
	{Name: "آية الكرسي", Ref: quran.VerseRef{ChapterID: "2", Verse: 255}},
	{Name: "اية الكرسي", Ref: quran.VerseRef{ChapterID: "2", Verse: 255}},
	{Name: "آية الدين", Ref: quran.VerseRef{ChapterID: "2", Verse: 282}},
	{Name: "آية النور", Ref: quran.VerseRef{ChapterID: "24", Verse: 35}},
}

type chapterEntry struct {
	meta      quran.ChapterMeta
	names     []string // normalized canonical name followed by variants
	canonical string
}

type namedEntry struct {
	name string // normalized
	ref  quran.VerseRef
}

// Resolver resolves references against an immutable chapter table.
// It is safe for concurrent use.
type Resolver struct {
	chapters []chapterEntry
	byID     map[string]int
	named    []namedEntry
}

// New creates a resolver over chapters, kept in the given order, using
// DefaultNamedVerses.
func New(chapters []quran.ChapterMeta) *Resolver {
	return NewWithNamedVerses(chapters, DefaultNamedVerses)
}

// NewWithNamedVerses creates a resolver with a custom named-verse table.
// Entries pointing outside the chapter table are dropped.
func NewWithNamedVerses(chapters []quran.ChapterMeta, named []NamedVerse) *Resolver {
	r := &Resolver{
		chapters: make([]chapterEntry, 0, len(chapters)),
		byID:     make(map[string]int, len(chapters)),
	}
	for _, m := range chapters {
		e := chapterEntry{meta: m, canonical: textnorm.Normalize(m.CanonicalName)}
		e.names = append(e.names, e.canonical)
		for _, v := range m.NameVariants {
			if n := textnorm.Normalize(v); n != "" {
				e.names = append(e.names, n)
			}
		}
		r.byID[m.ID] = len(r.chapters)
		r.chapters = append(r.chapters, e)
	}
	for _, nv := range named {
		m, ok := r.Meta(nv.Ref.ChapterID)
		if !ok || !m.Contains(nv.Ref.Verse) {
			continue
		}
		r.named = append(r.named, namedEntry{name: textnorm.Normalize(nv.Name), ref: nv.Ref})
	}
	return r
}

// Meta returns the chapter with the exact ID.
func (r *Resolver) Meta(id string) (quran.ChapterMeta, bool) {
	i, ok := r.byID[id]
	if !ok {
		return quran.ChapterMeta{}, false
	}
	return r.chapters[i].meta, true
}

// Chapter resolves a chapter number or name. A numeral in 1..114 matches by
// ID. Anything else is normalized and matched exactly against every
// canonical name and variant, then by substring of the canonical name.
// Ties go to the earliest table entry.
func (r *Resolver) Chapter(identifier string) (quran.ChapterMeta, bool) {
	cleaned := strings.TrimSpace(textnorm.ASCIIDigits(identifier))
	if isChapterNumeral(cleaned) {
		return r.Meta(cleaned)
	}

	query := textnorm.Normalize(cleaned)
	if query == "" {
		return quran.ChapterMeta{}, false
	}
	for _, e := range r.chapters {
		for _, name := range e.names {
			if name == query {
				return e.meta, true
			}
		}
	}
	if utf8.RuneCountInString(query) < minContainsLen {
		return quran.ChapterMeta{}, false
	}
	for _, e := range r.chapters {
		if strings.Contains(e.canonical, query) {
			return e.meta, true
		}
	}
	return quran.ChapterMeta{}, false
}

// NamedVerse reports the first well-known verse whose name occurs in the
// utterance.
func (r *Resolver) NamedVerse(utterance string) (quran.VerseRef, bool) {
	text := textnorm.Normalize(utterance)
	if text == "" {
		return quran.VerseRef{}, false
	}
	for _, nv := range r.named {
		if strings.Contains(text, nv.name) {
			return nv.ref, true
		}
	}
	return quran.VerseRef{}, false
}

// ChapterVersePair resolves expressions such as "البقرة 255",
// "سورة البقرة آية 5" or "2:255". Only the leftmost match of the pattern is
// considered. The chapter must resolve and the verse must lie within it;
// anything else is a miss.
func (r *Resolver) ChapterVersePair(utterance string) (quran.VerseRef, bool) {
	chapter, verse, ok := parsePair(textnorm.ASCIIDigits(utterance))
	if !ok {
		return quran.VerseRef{}, false
	}
	m, ok := r.Chapter(chapter)
	if !ok || !m.Contains(verse) {
		return quran.VerseRef{}, false
	}
	return quran.VerseRef{ChapterID: m.ID, Verse: verse}, true
}

// isChapterNumeral matches 1..114 written without leading zeros.
func isChapterNumeral(s string) bool {
	if s == "" || len(s) > 3 || s[0] == '0' {
		return false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return n >= 1 && n <= quran.ChapterCount
}
