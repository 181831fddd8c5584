// Package chat runs a chat utterance end to end: routing, corpus access and
// session persistence. It produces Result values that the CLI renders and
// the HTTP server serializes.
package chat

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/qurani-maai/quranchat/core/corpus"
	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/intent"
	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/refs"
	"github.com/qurani-maai/quranchat/core/session"
	"github.com/qurani-maai/quranchat/internal/logging"
)

// KindError marks a Result that carries only a failure notice.
const KindError intent.Kind = "error"

// Verse is one displayed verse.
type Verse struct {
	Ref     quran.VerseRef `json:"ref"`
	Text    string         `json:"text"`
	Number  string         `json:"number"`
	Caption string         `json:"caption,omitempty"`
}

// Chapter heads a full-chapter display.
type Chapter struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Invocation string `json:"invocation,omitempty"`
}

// Result is the response to one utterance. Notices are shown before verses.
type Result struct {
	Kind            intent.Kind `json:"kind"`
	SessionID       string      `json:"sessionId"`
	Notices         []string    `json:"notices,omitempty"`
	Verses          []Verse     `json:"verses,omitempty"`
	Chapter         *Chapter    `json:"chapter,omitempty"`
	ChapterComplete bool        `json:"chapterComplete,omitempty"`
	Tools           []Tool      `json:"tools,omitempty"`
}

// Engine is safe for concurrent use. Utterances for the same session are
// processed one at a time.
type Engine struct {
	index  *corpus.Index
	store  *session.Store
	router *intent.Router

	mu    sync.Mutex
	locks map[string]*sessionLock

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	searchLimit int
	rng         *rand.Rand
}

// WithSearchLimit caps keyword search results.
func WithSearchLimit(n int) Option {
	return func(o *engineOptions) { o.searchLimit = n }
}

// WithRand sets the source used to pick a focus verse when a session has
// no reading position.
func WithRand(rng *rand.Rand) Option {
	return func(o *engineOptions) { o.rng = rng }
}

// New creates an Engine over an opened corpus index and a session store.
func New(index *corpus.Index, store *session.Store, opts ...Option) *Engine {
	o := engineOptions{searchLimit: intent.DefaultSearchLimit}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{
		index:  index,
		store:  store,
		router: intent.New(refs.New(index.Chapters()), intent.WithSearchLimit(o.searchLimit)),
		locks:  make(map[string]*sessionLock),
		rng:    o.rng,
	}
}

// Chapters returns the chapter table.
func (e *Engine) Chapters() []quran.ChapterMeta {
	return e.index.Chapters()
}

// CachedChapters returns how many chapter texts the corpus index holds.
func (e *Engine) CachedChapters() int {
	return e.index.Cached()
}

// Start creates a session and makes it current. With greet set, the new
// chat greeting is its first message.
func (e *Engine) Start(greet bool) (*session.Session, error) {
	s, err := e.store.Create()
	if err != nil {
		return nil, err
	}
	logging.SessionEvent("created", s.ID)
	if greet {
		if _, err := e.store.Append(s.ID, session.Message{Sender: session.SenderSystem, Content: NewChatGreeting}); err != nil {
			return nil, err
		}
	}
	return e.Session(s.ID)
}

// Resume returns the current session. When there is none a session is
// created with the initial greeting.
func (e *Engine) Resume() (*session.Session, error) {
	id, ok, err := e.store.Current()
	if err != nil {
		return nil, err
	}
	if ok {
		logging.SessionEvent("resumed", id)
		return e.Session(id)
	}

	s, err := e.store.Create()
	if err != nil {
		return nil, err
	}
	logging.SessionEvent("created", s.ID)
	if _, err := e.store.Append(s.ID, session.Message{Sender: session.SenderSystem, Content: InitialGreeting}); err != nil {
		return nil, err
	}
	return e.Session(s.ID)
}

// Session loads a session by ID.
func (e *Engine) Session(id string) (*session.Session, error) {
	s, ok, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewNotFound("session", id)
	}
	return s, nil
}

// Switch makes an existing session the current one.
func (e *Engine) Switch(id string) (*session.Session, error) {
	if err := e.store.SetCurrent(id); err != nil {
		return nil, err
	}
	logging.SessionEvent("switched", id)
	return e.Session(id)
}

// Recent returns the recent-sessions index.
func (e *Engine) Recent() ([]session.RecentEntry, error) {
	return e.store.Recent()
}

// Handle records utterance in the session, routes it and records the
// response. Corpus failures come back as a Result of KindError with a nil
// error; the error return is reserved for an unknown session and
// persistence failures.
func (e *Engine) Handle(ctx context.Context, sessionID, utterance string) (Result, error) {
	unlock, err := e.lock(sessionID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	ctx = logging.WithSessionID(ctx, sessionID)
	if _, err := e.store.Append(sessionID, session.Message{Sender: session.SenderUser, Content: utterance}); err != nil {
		return Result{}, err
	}
	last, err := e.store.LastRead(sessionID)
	if err != nil {
		return Result{}, err
	}

	out := e.router.RouteText(utterance, last)
	res, err := e.execute(ctx, out)
	if err != nil {
		logging.WarnContext(ctx, "utterance failed", "kind", string(out.Kind), "error", err)
		res = failure(err, out.Chapter.ID)
	}
	res.SessionID = sessionID
	logging.IntentResolved(ctx, string(res.Kind), len(res.Verses), "interpreter", out.Interpreter)

	if err := e.record(sessionID, res); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) execute(ctx context.Context, out intent.Outcome) (Result, error) {
	res := Result{Kind: out.Kind}
	switch out.Kind {
	case intent.KindContinue:
		res.Notices = []string{continueNotice(out.Chapter, out.From.Verse)}
		if out.ChapterComplete {
			res.ChapterComplete = true
			res.Notices = append(res.Notices, completeNotice(out.Chapter))
			return res, nil
		}
		v, err := e.verse(ctx, out.Chapter, out.Ref.Verse, verseInfo)
		if err != nil {
			return res, err
		}
		res.Verses = []Verse{v}
		res.Tools = VerseTools

	case intent.KindSingleVerse:
		v, err := e.verse(ctx, out.Chapter, out.Ref.Verse, verseInfo)
		if err != nil {
			return res, err
		}
		res.Verses = []Verse{v}
		res.Tools = VerseTools

	case intent.KindFullChapter:
		text, err := e.index.ChapterText(ctx, out.Chapter.ID)
		if err != nil {
			return res, err
		}
		res.Notices = []string{fullChapterNotice(out.Chapter)}
		res.Chapter = &Chapter{ID: out.Chapter.ID, Name: out.Chapter.CanonicalName}
		if out.Chapter.HasInvocation() {
			res.Chapter.Invocation = text.Invocation
			if res.Chapter.Invocation == "" {
				res.Chapter.Invocation = DefaultInvocation
			}
		}
		for _, n := range text.Numbers() {
			res.Verses = append(res.Verses, Verse{
				Ref:    quran.VerseRef{ChapterID: out.Chapter.ID, Verse: n},
				Text:   text.Verses[n],
				Number: indic(n),
			})
		}
		res.ChapterComplete = true
		res.Tools = VerseTools

	case intent.KindSearch:
		res.Notices = []string{searchingNotice(out.Keyword)}
		hits, err := e.index.Search(ctx, out.Keyword, out.Limit)
		var skipped *corpus.SearchError
		if errors.As(err, &skipped) {
			// Without any hit, "nothing found" would hide the failure.
			if len(hits) == 0 {
				logging.WarnContext(ctx, "search failed", "keyword", out.Keyword, "skipped", len(skipped.Chapters), "error", skipped.Err)
				return failure(err, skipped.Chapters[0]), nil
			}
			logging.WarnContext(ctx, "search skipped chapters", "keyword", out.Keyword, "skipped", len(skipped.Chapters), "error", skipped.Err)
			err = nil
		}
		if err != nil {
			return res, err
		}
		if len(hits) == 0 {
			res.Notices = append(res.Notices, noHitsNotice(out.Keyword))
			return res, nil
		}
		res.Notices = append(res.Notices, foundNotice(len(hits)))
		for _, h := range hits {
			meta, _ := e.index.Meta(h.Ref.ChapterID)
			res.Verses = append(res.Verses, Verse{
				Ref:     h.Ref,
				Text:    h.Text,
				Number:  indic(h.Ref.Verse),
				Caption: hitInfo(meta, h.Ref.Verse),
			})
		}
		res.Tools = VerseTools

	default:
		res.Notices = []string{out.Reply}
	}
	return res, nil
}

func (e *Engine) verse(ctx context.Context, m quran.ChapterMeta, n int, caption func(quran.ChapterMeta, int) string) (Verse, error) {
	ref := quran.VerseRef{ChapterID: m.ID, Verse: n}
	text, err := e.index.Verse(ctx, ref)
	if err != nil {
		return Verse{}, err
	}
	return Verse{Ref: ref, Text: text, Number: indic(n), Caption: caption(m, n)}, nil
}

// failure maps an execution error to the notice shown in its place.
func failure(err error, chapterID string) Result {
	notice := UnexpectedErrorNotice
	if chapterID != "" && (errors.Is(err, errors.ErrFetch) || errors.Is(err, errors.ErrMalformed) || errors.Is(err, errors.ErrNotFound)) {
		notice = fetchFailedNotice(chapterID)
	}
	return Result{Kind: KindError, Notices: []string{notice}}
}

// record persists the response: notices as system messages, then the
// verses as quran messages. A full chapter is one message and every other
// verse display is one message per verse. The last displayed verse becomes
// the reading position.
func (e *Engine) record(id string, res Result) error {
	for _, n := range res.Notices {
		if _, err := e.store.Append(id, session.Message{Sender: session.SenderSystem, Content: n}); err != nil {
			return err
		}
	}
	if len(res.Verses) == 0 {
		return nil
	}

	var msgs []session.Message
	if res.Kind == intent.KindFullChapter {
		msgs = append(msgs, chapterMessage(res))
	} else {
		for _, v := range res.Verses {
			msgs = append(msgs, session.Message{
				Sender:  session.SenderQuran,
				Content: verseLine(v) + "\n" + v.Caption,
				Refs:    []quran.VerseRef{v.Ref},
			})
		}
	}
	for _, m := range msgs {
		if _, err := e.store.Append(id, m); err != nil {
			return err
		}
	}

	if err := e.store.SetLastRead(id, res.Verses[len(res.Verses)-1].Ref); err != nil {
		return err
	}
	if res.Kind == intent.KindFullChapter {
		added, err := e.store.MarkChapterComplete(res.Chapter.ID)
		if err != nil {
			return err
		}
		if added {
			logging.SessionEvent("chapter_completed", id, "chapter", res.Chapter.ID)
		}
	}
	return nil
}

func verseLine(v Verse) string {
	return v.Text + " ﴿" + v.Number + "﴾"
}

func chapterMessage(res Result) session.Message {
	var b strings.Builder
	if res.Chapter.Invocation != "" {
		b.WriteString(res.Chapter.Invocation)
		b.WriteByte('\n')
	}
	b.WriteString(res.Chapter.Name)
	b.WriteByte('\n')
	shown := make([]quran.VerseRef, len(res.Verses))
	for i, v := range res.Verses {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(verseLine(v))
		shown[i] = v.Ref
	}
	return session.Message{Sender: session.SenderQuran, Content: b.String(), Refs: shown}
}

// sessionLock serializes one session's work. refs counts the holders and
// waiters so the entry can be dropped when the last one leaves.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lock takes the session's lock, failing with a not-found error for a
// session that was never created. Only sessions with work in progress have
// an entry in e.locks.
func (e *Engine) lock(id string) (func(), error) {
	ok, err := e.store.Exists(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewNotFound("session", id)
	}

	e.mu.Lock()
	l := e.locks[id]
	if l == nil {
		l = &sessionLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(e.locks, id)
		}
		e.mu.Unlock()
	}, nil
}

// Progress is the reading-completion summary.
type Progress struct {
	Chapters []string `json:"chapters"`
	Percent  float64  `json:"percent"`
	Display  string   `json:"display"`
}

// Progress reports which chapters have been displayed in full.
func (e *Engine) Progress() (Progress, error) {
	c, err := e.store.Completion()
	if err != nil {
		return Progress{}, err
	}
	return Progress{Chapters: c.Chapters, Percent: c.Percent, Display: PercentText(c.Percent)}, nil
}
