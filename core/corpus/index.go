// Package corpus owns the chapter table and on-demand access to chapter
// text and commentary from a Source.
package corpus

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/textnorm"
	"github.com/qurani-maai/quranchat/internal/cache"
	"github.com/qurani-maai/quranchat/internal/logging"
)

// Hit is a single search match.
type Hit struct {
	Ref  quran.VerseRef `json:"ref"`
	Text string         `json:"text"`
}

// Options configures Open.
type Options struct {
	// RequireManifest makes a missing manifest fatal instead of falling
	// back to the built-in table.
	RequireManifest bool

	// CacheTTL bounds how long a chapter text is kept before it is fetched
	// again. Zero keeps texts for the life of the index.
	CacheTTL time.Duration
}

// Index serves chapter metadata and caches chapter text. It is safe for
// concurrent use.
type Index struct {
	src      Source
	chapters []quran.ChapterMeta
	byID     map[string]int
	texts    *cache.Cache[*quran.ChapterText]
}

// Open loads the chapter table from src. A missing manifest selects the
// built-in table unless opts.RequireManifest is set; a malformed one is
// always an error.
func Open(ctx context.Context, src Source, opts Options) (*Index, error) {
	start := time.Now()
	data, err := src.Manifest(ctx)
	logging.CorpusFetch(ctx, "manifest", "", time.Since(start), err)

	var table []quran.ChapterMeta
	switch {
	case err == nil:
		table, err = DecodeManifest(data)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, errors.ErrNotFound) && !opts.RequireManifest:
		logging.InfoContext(ctx, "manifest not found, using built-in chapter table")
		table = quran.Builtin()
	case errors.Is(err, errors.ErrNotFound):
		return nil, errors.Wrap(err, "corpus manifest required")
	default:
		return nil, err
	}
	idx := NewIndex(src, table)
	if opts.CacheTTL > 0 {
		idx.texts = cache.New[*quran.ChapterText](opts.CacheTTL)
	}
	return idx, nil
}

// NewIndex creates an index over an already validated table. Chapter texts
// are cached without expiry.
func NewIndex(src Source, table []quran.ChapterMeta) *Index {
	idx := &Index{
		src:      src,
		chapters: table,
		byID:     make(map[string]int, len(table)),
		texts:    cache.New[*quran.ChapterText](0),
	}
	for i, m := range table {
		idx.byID[m.ID] = i
	}
	return idx
}

// Cached returns how many chapter texts are held in memory, expired ones
// included until they are reloaded.
func (idx *Index) Cached() int {
	return idx.texts.Len()
}

// Chapters returns the chapter table in canonical order. The slice must
// not be modified.
func (idx *Index) Chapters() []quran.ChapterMeta {
	return idx.chapters
}

// Meta looks up a chapter without fetching anything.
func (idx *Index) Meta(id string) (quran.ChapterMeta, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return quran.ChapterMeta{}, false
	}
	return idx.chapters[i], true
}

// ChapterText returns the chapter's verses, fetching them on first use.
// Fetch failures are *errors.FetchError, bad payloads
// *errors.MalformedDataError. Failures are not cached.
func (idx *Index) ChapterText(ctx context.Context, id string) (*quran.ChapterText, error) {
	meta, ok := idx.Meta(id)
	if !ok {
		return nil, errors.NewNotFound("chapter", id)
	}
	return idx.texts.Load(id, func() (*quran.ChapterText, error) {
		start := time.Now()
		data, err := idx.src.Chapter(ctx, id)
		logging.CorpusFetch(ctx, "chapter", id, time.Since(start), err)
		if err != nil {
			if errors.Is(err, errors.ErrFetch) || errors.Is(err, errors.ErrMalformed) {
				return nil, err
			}
			return nil, errors.NewFetch("chapter", id, 0, err)
		}
		return DecodeChapter(meta, data)
	})
}

// Verse returns the text of a single verse.
func (idx *Index) Verse(ctx context.Context, ref quran.VerseRef) (string, error) {
	text, err := idx.ChapterText(ctx, ref.ChapterID)
	if err != nil {
		return "", err
	}
	v, ok := text.Verse(ref.Verse)
	if !ok {
		return "", errors.NewNotFound("verse", ref.String())
	}
	return v, nil
}

// SearchError lists the chapters a search could not read. Err is the first
// chapter failure, so errors.Is(err, errors.ErrFetch) holds for a
// transport failure.
type SearchError struct {
	Chapters []string
	Err      error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search skipped %d chapters (first %s): %v", len(e.Chapters), e.Chapters[0], e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Search scans chapters in table order and verses in ascending order for
// the normalized keyword, stopping once limit hits are collected. An empty
// keyword matches nothing. Chapters that cannot be loaded are passed over
// and reported in a *SearchError returned together with the hits found in
// the others.
func (idx *Index) Search(ctx context.Context, keyword string, limit int) ([]Hit, error) {
	needle := textnorm.Normalize(keyword)
	if needle == "" || limit <= 0 {
		return nil, nil
	}

	var (
		hits    []Hit
		skipped *SearchError
	)
	done := func() ([]Hit, error) {
		if skipped != nil {
			return hits, skipped
		}
		return hits, nil
	}
	for _, meta := range idx.chapters {
		if err := ctx.Err(); err != nil {
			return hits, err
		}
		text, err := idx.ChapterText(ctx, meta.ID)
		if err != nil {
			if ctx.Err() != nil {
				return hits, ctx.Err()
			}
			if skipped == nil {
				skipped = &SearchError{Err: err}
			}
			skipped.Chapters = append(skipped.Chapters, meta.ID)
			continue
		}
		for _, n := range text.Numbers() {
			if !textnorm.Contains(text.Verses[n], needle) {
				continue
			}
			hits = append(hits, Hit{Ref: quran.VerseRef{ChapterID: meta.ID, Verse: n}, Text: text.Verses[n]})
			if len(hits) >= limit {
				return done()
			}
		}
	}
	return done()
}

// Commentary returns the commentary for a verse. A missing resource or a
// blank text is reported as absent with a nil error.
func (idx *Index) Commentary(ctx context.Context, chapterID string, verse int) (string, bool, error) {
	meta, ok := idx.Meta(chapterID)
	if !ok || !meta.Contains(verse) {
		return "", false, nil
	}
	ref := quran.VerseRef{ChapterID: chapterID, Verse: verse}

	start := time.Now()
	data, err := idx.src.Commentary(ctx, chapterID, verse)
	logging.CorpusFetch(ctx, "commentary", ref.String(), time.Since(start), err)
	if errors.Is(err, errors.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		if errors.Is(err, errors.ErrFetch) || errors.Is(err, errors.ErrMalformed) {
			return "", false, err
		}
		return "", false, errors.NewFetch("commentary", ref.String(), 0, err)
	}
	return DecodeCommentary(data)
}

// Adjacent returns the verse step positions away from ref (step is -1 or
// +1 in practice). Moving past the last verse of a chapter enters the next
// chapter, and the table wraps around at both ends.
func (idx *Index) Adjacent(ref quran.VerseRef, step int) (quran.VerseRef, bool) {
	i, ok := idx.byID[ref.ChapterID]
	if !ok || !idx.chapters[i].Contains(ref.Verse) || len(idx.chapters) == 0 {
		return quran.VerseRef{}, false
	}
	n := len(idx.chapters)
	verse := ref.Verse + step
	for verse < 1 {
		i = (i - 1 + n) % n
		verse += idx.chapters[i].VerseCount
	}
	for verse > idx.chapters[i].VerseCount {
		verse -= idx.chapters[i].VerseCount
		i = (i + 1) % n
	}
	return quran.VerseRef{ChapterID: idx.chapters[i].ID, Verse: verse}, true
}

// Random picks a chapter uniformly, then a verse uniformly within it.
func (idx *Index) Random(rng *rand.Rand) quran.VerseRef {
	m := idx.chapters[rng.IntN(len(idx.chapters))]
	return quran.VerseRef{ChapterID: m.ID, Verse: 1 + rng.IntN(m.VerseCount)}
}
