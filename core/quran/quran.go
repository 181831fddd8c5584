// Package quran defines the corpus data model: chapter metadata, chapter
// text and verse references.
package quran

import (
	"fmt"
	"sort"
	"strconv"
)

// ChapterCount is the number of chapters in the corpus.
const ChapterCount = 114

// ChapterMeta describes one chapter. Values are immutable once loaded.
type ChapterMeta struct {
	// ID is the numeric string identifier "1".."114".
	ID string `json:"index"`

	// CanonicalName is the Arabic chapter name (e.g. "البقرة").
	CanonicalName string `json:"name"`

	// NameVariants holds alternative names in lookup order (transliteration, English, ...).
	NameVariants []string `json:"variants,omitempty"`

	// VerseCount is the number of verses, always >= 1.
	VerseCount int `json:"verses"`
}

// Number returns the chapter ID as an integer, or 0 if the ID is not numeric.
func (m ChapterMeta) Number() int {
	n, err := strconv.Atoi(m.ID)
	if err != nil {
		return 0
	}
	return n
}

// Contains reports whether verse is a valid verse number for the chapter.
func (m ChapterMeta) Contains(verse int) bool {
	return verse >= 1 && verse <= m.VerseCount
}

// HasInvocation reports whether the chapter is displayed with the opening
// invocation. Chapter 1 carries it as its first verse and chapter 9 has none.
func (m ChapterMeta) HasInvocation() bool {
	return m.ID != "1" && m.ID != "9"
}

// VerseRef identifies a single verse.
type VerseRef struct {
	ChapterID string `json:"surahIndex"`
	Verse     int    `json:"ayahNumber"`
}

// String returns the reference as "chapter:verse".
func (r VerseRef) String() string {
	return fmt.Sprintf("%s:%d", r.ChapterID, r.Verse)
}

// ChapterText holds the verses of one chapter as fetched from the corpus.
type ChapterText struct {
	ChapterID string

	// Verses maps verse number (1..VerseCount) to text.
	Verses map[int]string

	// Invocation is the corpus verse-0 slot, the opening formula. Empty when absent.
	Invocation string
}

// Verse returns the text of verse n.
func (c *ChapterText) Verse(n int) (string, bool) {
	if c == nil || n < 1 {
		return "", false
	}
	text, ok := c.Verses[n]
	return text, ok
}

// Numbers returns the verse numbers in ascending order. Verse 0 is never included.
func (c *ChapterText) Numbers() []int {
	nums := make([]int, 0, len(c.Verses))
	for n := range c.Verses {
		if n > 0 {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}
