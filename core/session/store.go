package session

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/quran"
)

const (
	// DefaultRecentCapacity bounds the recent-sessions index.
	DefaultRecentCapacity = 7

	// PreviewLength is the number of runes kept in a preview before "...".
	PreviewLength = 35

	// NewSessionPreview labels a session with no user message yet.
	NewSessionPreview = "محادثة جديدة"
)

// Store owns session persistence. All read-modify-write sequences are
// serialized, so a Store is safe for concurrent use.
type Store struct {
	kv       KV
	mu       sync.Mutex
	capacity int
	now      func() time.Time
	newID    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithRecentCapacity overrides DefaultRecentCapacity.
func WithRecentCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator injects the session ID source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// NewStore creates a Store over kv.
func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		capacity: DefaultRecentCapacity,
		now:      time.Now,
		newID:    newSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newSessionID returns a time-ordered UUIDv7, falling back to a random
// UUID if the clock sequence cannot be read.
func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Create starts an empty session and makes it the active one. No greeting
// is added.
func (s *Store) Create() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	if err := s.kv.Set(chatKey(id), "[]"); err != nil {
		return nil, errors.Wrap(err, "create session")
	}
	if err := s.kv.Set(keyActive, id); err != nil {
		return nil, errors.Wrap(err, "set active session")
	}
	return &Session{ID: id, Messages: []Message{}}, nil
}

// Load returns the session, or false if it was never persisted.
func (s *Store) Load(id string) (*Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok, err := s.messages(id)
	if err != nil || !ok {
		return nil, false, err
	}
	last, err := s.lastRead(id)
	if err != nil {
		return nil, false, err
	}
	return &Session{ID: id, Messages: msgs, LastRead: last}, true, nil
}

// IDs returns every stored session ID in lexical order, which for the
// default UUIDv7 IDs is creation order. The KV must implement Lister.
func (s *Store) IDs() ([]string, error) {
	lister, ok := s.kv.(Lister)
	if !ok {
		return nil, errors.NewValidation("store", "session listing is not supported by this store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := lister.Keys(chatPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, chatPrefix)
	}
	return ids, nil
}

// Exists reports whether the session was ever persisted.
func (s *Store) Exists(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok, err := s.kv.Get(chatKey(id))
	if err != nil {
		return false, errors.Wrapf(err, "read %s", chatKey(id))
	}
	return ok, nil
}

// Append adds msg to the session's history and updates the recent index.
// A zero Timestamp is set to the current time.
func (s *Store) Append(id string, msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok, err := s.messages(id)
	if err != nil {
		return msg, err
	}
	if !ok {
		return msg, errors.NewNotFound("session", id)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	msgs = append(msgs, msg)
	if err := s.putJSON(chatKey(id), msgs); err != nil {
		return msg, err
	}

	users := 0
	for _, m := range msgs {
		if m.Sender == SenderUser {
			users++
		}
	}
	var preview string
	switch {
	case msg.Sender == SenderUser && users == 1:
		preview = msg.Content
		if msg.IsMarkup {
			preview = StripMarkup(preview)
		}
	case len(msgs) == 1:
		preview = NewSessionPreview
	}
	return msg, s.touchRecent(id, preview, msg.Timestamp)
}

// touchRecent moves id to the front of the recent index. An empty preview
// keeps the existing one.
func (s *Store) touchRecent(id, preview string, at time.Time) error {
	recent, err := s.recent()
	if err != nil {
		return err
	}
	entry := RecentEntry{SessionID: id, LastActivity: at, Preview: NewSessionPreview}
	kept := recent[:0]
	for _, e := range recent {
		if e.SessionID == id {
			entry.Preview = e.Preview
			continue
		}
		kept = append(kept, e)
	}
	if preview != "" {
		entry.Preview = Truncate(preview)
	}
	list := append([]RecentEntry{entry}, kept...)
	if len(list) > s.capacity {
		list = list[:s.capacity]
	}
	return s.putJSON(keyRecent, list)
}

// Recent returns the recent index, most recent first.
func (s *Store) Recent() ([]RecentEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent()
}

// SetLastRead records the session's reading position. Last write wins.
func (s *Store) SetLastRead(id string, ref quran.VerseRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putJSON(lastReadKey(id), ref)
}

// LastRead returns the session's reading position, nil if none.
func (s *Store) LastRead(id string) (*quran.VerseRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRead(id)
}

// MarkChapterComplete adds chapterID to the completion set and reports
// whether it was new.
func (s *Store) MarkChapterComplete(chapterID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.completed()
	if err != nil {
		return false, err
	}
	if set[chapterID] {
		return false, nil
	}
	set[chapterID] = true
	if err := s.putJSON(keyCompleted, set); err != nil {
		return false, err
	}
	return true, nil
}

// Completion returns the completed chapters in numeric order and the
// percentage of the corpus they cover.
func (s *Store) Completion() (Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.completed()
	if err != nil {
		return Completion{}, err
	}
	ids := make([]string, 0, len(set))
	for id, done := range set {
		if done {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return Completion{
		Chapters: ids,
		Percent:  float64(len(ids)) / quran.ChapterCount * 100,
	}, nil
}

// Current returns the active session ID if that session still exists.
func (s *Store) Current() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.kv.Get(keyActive)
	if err != nil || !ok || id == "" {
		return "", false, err
	}
	_, exists, err := s.kv.Get(chatKey(id))
	if err != nil || !exists {
		return "", false, err
	}
	return id, true, nil
}

// SetCurrent makes an existing session the active one.
func (s *Store) SetCurrent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok, err := s.kv.Get(chatKey(id)); err != nil {
		return err
	} else if !ok {
		return errors.NewNotFound("session", id)
	}
	return s.kv.Set(keyActive, id)
}

func (s *Store) messages(id string) ([]Message, bool, error) {
	var msgs []Message
	ok, err := s.getJSON(chatKey(id), &msgs)
	if err != nil || !ok {
		return nil, ok, err
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, true, nil
}

func (s *Store) lastRead(id string) (*quran.VerseRef, error) {
	var ref *quran.VerseRef
	if _, err := s.getJSON(lastReadKey(id), &ref); err != nil {
		return nil, err
	}
	if ref != nil && (ref.ChapterID == "" || ref.Verse < 1) {
		return nil, nil
	}
	return ref, nil
}

func (s *Store) recent() ([]RecentEntry, error) {
	var list []RecentEntry
	if _, err := s.getJSON(keyRecent, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) completed() (map[string]bool, error) {
	set := map[string]bool{}
	if _, err := s.getJSON(keyCompleted, &set); err != nil {
		return nil, err
	}
	if set == nil {
		set = map[string]bool{}
	}
	return set, nil
}

func (s *Store) getJSON(key string, v any) (bool, error) {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		return false, errors.Wrapf(err, "read %s", key)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, &errors.MalformedDataError{Resource: key, Message: "invalid stored JSON", Err: err}
	}
	return true, nil
}

func (s *Store) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := s.kv.Set(key, string(data)); err != nil {
		return errors.Wrapf(err, "write %s", key)
	}
	return nil
}

var (
	markupTag  = regexp.MustCompile(`<[^>]+>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// StripMarkup replaces tags with spaces and collapses whitespace.
func StripMarkup(s string) string {
	s = markupTag.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Truncate shortens s to PreviewLength runes, appending "..." when cut.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= PreviewLength {
		return s
	}
	return string([]rune(s)[:PreviewLength]) + "..."
}
