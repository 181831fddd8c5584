package intent

import (
	"regexp"
	"strings"

	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/refs"
	"github.com/qurani-maai/quranchat/core/textnorm"
)

// Fixed replies.
const (
	GreetingReply = "وعليكم السلام ورحمة الله وبركاته. أهلاً بك. 🙏"
	ThanksReply   = "وإياكم، بارك الله فيكم. في الخدمة دائمًا. 😊"
	FallbackReply = "عفواً، لم أفهم طلبك. 😅 جرب طلب سورة (مثل 'البقرة')، أو آية ('البقرة 255')، أو ابحث عن موضوع ('آيات عن الصبر')."
)

// DefaultSearchLimit caps keyword search results.
const DefaultSearchLimit = 7

var continueKeywords = normalizeAll("تابع", "اكمل", "متابعة")

func normalizeAll(words ...string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = textnorm.Normalize(w)
	}
	return out
}

// Continue claims follow-up commands when the session has a reading
// position in a known chapter.
type Continue struct {
	Resolver *refs.Resolver
}

func (Continue) Name() string { return "continue" }

func (c Continue) Attempt(in Input) (Outcome, bool) {
	if in.LastRead == nil || !containsAny(in.Normalized, continueKeywords) {
		return Outcome{}, false
	}
	meta, ok := c.Resolver.Meta(in.LastRead.ChapterID)
	if !ok {
		return Outcome{}, false
	}
	out := Outcome{Kind: KindContinue, Chapter: meta, From: *in.LastRead}
	next := in.LastRead.Verse + 1
	if next > meta.VerseCount {
		out.ChapterComplete = true
		return out, true
	}
	out.Ref = quran.VerseRef{ChapterID: meta.ID, Verse: next}
	return out, true
}

// DirectReference claims named verses and chapter+verse pairs.
type DirectReference struct {
	Resolver *refs.Resolver
}

func (DirectReference) Name() string { return "direct_reference" }

func (d DirectReference) Attempt(in Input) (Outcome, bool) {
	ref, ok := d.Resolver.NamedVerse(in.Raw)
	if !ok {
		ref, ok = d.Resolver.ChapterVersePair(in.Raw)
	}
	if !ok {
		return Outcome{}, false
	}
	meta, _ := d.Resolver.Meta(ref.ChapterID)
	return Outcome{Kind: KindSingleVerse, Chapter: meta, Ref: ref}, true
}

var chapterMarker = regexp.MustCompile(`^سور[ةه]\s*`)

// FullChapter claims utterances that name a whole chapter, with or without
// a leading "سورة".
type FullChapter struct {
	Resolver *refs.Resolver
}

func (FullChapter) Name() string { return "full_chapter" }

func (f FullChapter) Attempt(in Input) (Outcome, bool) {
	rest := chapterMarker.ReplaceAllString(strings.TrimSpace(in.Raw), "")
	meta, ok := f.Resolver.Chapter(rest)
	if !ok {
		return Outcome{}, false
	}
	return Outcome{Kind: KindFullChapter, Chapter: meta}, true
}

var searchPrefix = regexp.MustCompile(`^(?:آيات عن|ابحث عن|ماذا يقول القرآن عن)\s*(.+)`)

// KeywordSearch claims topic requests such as "آيات عن الصبر".
type KeywordSearch struct {
	// Limit caps the number of results; zero means DefaultSearchLimit.
	Limit int
}

func (KeywordSearch) Name() string { return "keyword_search" }

func (k KeywordSearch) Attempt(in Input) (Outcome, bool) {
	m := searchPrefix.FindStringSubmatch(strings.TrimSpace(in.Raw))
	if m == nil {
		return Outcome{}, false
	}
	keyword := strings.TrimSpace(m[1])
	if keyword == "" {
		return Outcome{}, false
	}
	limit := k.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return Outcome{Kind: KindSearch, Keyword: keyword, Limit: limit}, true
}

var (
	greetingPhrases = []string{"السلام عليكم", "مرحبا", "اهلا"}
	thanksPhrases   = []string{"شكرا", "جزاك الله خيرا"}
)

// Greeting answers salutations and thanks with fixed replies. Matching is
// literal on the raw utterance.
type Greeting struct{}

func (Greeting) Name() string { return "greeting" }

func (Greeting) Attempt(in Input) (Outcome, bool) {
	switch {
	case containsAny(in.Raw, greetingPhrases):
		return Outcome{Kind: KindAcknowledgment, Reply: GreetingReply}, true
	case containsAny(in.Raw, thanksPhrases):
		return Outcome{Kind: KindAcknowledgment, Reply: ThanksReply}, true
	}
	return Outcome{}, false
}

// Fallback always claims the utterance.
type Fallback struct{}

func (Fallback) Name() string { return "fallback" }

func (Fallback) Attempt(Input) (Outcome, bool) {
	return Outcome{Kind: KindFallback, Reply: FallbackReply}, true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
