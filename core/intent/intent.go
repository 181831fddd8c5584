// Package intent maps one chat utterance to exactly one outcome.
//
// Interpreters are tried in a fixed order and the first one that claims the
// utterance wins. Routing is pure: it reads the chapter table through a
// refs.Resolver but performs no I/O and keeps no state between calls.
package intent

import (
	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/textnorm"
)

// Kind identifies what the chat engine should do with an utterance.
type Kind string

const (
	KindContinue       Kind = "continue"
	KindSingleVerse    Kind = "single_verse"
	KindFullChapter    Kind = "full_chapter"
	KindSearch         Kind = "search_results"
	KindAcknowledgment Kind = "acknowledgement"
	KindFallback       Kind = "fallback"
)

// Input is a single utterance plus the reading position of its session.
type Input struct {
	Raw        string
	Normalized string
	LastRead   *quran.VerseRef
}

// NewInput builds an Input, normalizing raw once for every interpreter.
func NewInput(raw string, lastRead *quran.VerseRef) Input {
	return Input{Raw: raw, Normalized: textnorm.Normalize(raw), LastRead: lastRead}
}

// Outcome is the result of routing. Which fields are set depends on Kind:
//
//	continue        Chapter, From (the last read verse), Ref (next verse) or ChapterComplete
//	single_verse    Chapter, Ref
//	full_chapter    Chapter
//	search_results  Keyword, Limit
//	acknowledgement Reply
//	fallback        Reply
type Outcome struct {
	Kind            Kind              `json:"kind"`
	Interpreter     string            `json:"interpreter"`
	Chapter         quran.ChapterMeta `json:"chapter,omitempty"`
	Ref             quran.VerseRef    `json:"ref,omitempty"`
	From            quran.VerseRef    `json:"from,omitempty"`
	ChapterComplete bool              `json:"chapter_complete,omitempty"`
	Keyword         string            `json:"keyword,omitempty"`
	Limit           int               `json:"limit,omitempty"`
	Reply           string            `json:"reply,omitempty"`
}

// Interpreter claims an utterance or passes. Implementations must not
// perform I/O.
type Interpreter interface {
	Name() string
	Attempt(in Input) (Outcome, bool)
}
