package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/qurani-maai/quranchat/core/corpus"
	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/intent"
	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/session"
)

const invocation = "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ"

func chapterFile(t *testing.T, id string, verses map[int]string) *fstest.MapFile {
	t.Helper()
	v := map[string]string{}
	for n, text := range verses {
		v[fmt.Sprintf("verse_%d", n)] = text
	}
	data, err := json.Marshal(map[string]any{"index": id, "verse": v})
	if err != nil {
		t.Fatal(err)
	}
	return &fstest.MapFile{Data: data}
}

func newEngine(t *testing.T) (*Engine, *session.Store) {
	t.Helper()
	return newEngineOver(t, fixtureCorpus(t), quran.Builtin())
}

func fixtureCorpus(t *testing.T) fstest.MapFS {
	t.Helper()
	return fstest.MapFS{
		corpus.ChapterPath("1"): chapterFile(t, "1", map[int]string{
			1: invocation,
			2: "الْحَمْدُ لِلَّهِ رَبِّ الْعَالَمِينَ",
			3: "الرَّحْمَٰنِ الرَّحِيمِ",
			4: "مَالِكِ يَوْمِ الدِّينِ",
			5: "إِيَّاكَ نَعْبُدُ وَإِيَّاكَ نَسْتَعِينُ",
			6: "اهْدِنَا الصِّرَاطَ الْمُسْتَقِيمَ",
			7: "صِرَاطَ الَّذِينَ أَنْعَمْتَ عَلَيْهِمْ",
		}),
		corpus.ChapterPath("2"): chapterFile(t, "2", map[int]string{
			0:   invocation,
			45:  "وَاسْتَعِينُوا بِالصَّبْرِ وَالصَّلَاةِ",
			153: "يَا أَيُّهَا الَّذِينَ آمَنُوا اسْتَعِينُوا بِالصَّبْرِ وَالصَّلَاةِ",
			255: "اللَّهُ لَا إِلَٰهَ إِلَّا هُوَ الْحَيُّ الْقَيُّومُ",
		}),
		corpus.ChapterPath("112"): chapterFile(t, "112", map[int]string{
			1: "قُلْ هُوَ اللَّهُ أَحَدٌ",
			2: "اللَّهُ الصَّمَدُ",
			3: "لَمْ يَلِدْ وَلَمْ يُولَدْ",
			4: "وَلَمْ يَكُن لَّهُ كُفُوًا أَحَدٌ",
		}),
		corpus.CommentaryPath("2", 255): {Data: []byte(`{"text":"آية الكرسي أعظم آية"}`)},
	}
}

// newEngineOver builds an engine over fsys with the given chapter table.
func newEngineOver(t *testing.T, fsys fstest.MapFS, table []quran.ChapterMeta) (*Engine, *session.Store) {
	t.Helper()
	n := 0
	store := session.NewStore(session.NewMemoryKV(),
		session.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }),
		session.WithIDGenerator(func() string { n++; return fmt.Sprintf("s%d", n) }),
	)
	idx := corpus.NewIndex(corpus.NewFileSource(fsys), table)
	return New(idx, store, WithRand(rand.New(rand.NewPCG(1, 2)))), store
}

func start(t *testing.T, e *Engine) string {
	t.Helper()
	s, err := e.Start(false)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return s.ID
}

func handle(t *testing.T, e *Engine, id, utterance string) Result {
	t.Helper()
	res, err := e.Handle(context.Background(), id, utterance)
	if err != nil {
		t.Fatalf("Handle(%q) error = %v", utterance, err)
	}
	return res
}

func senders(s *session.Session) []session.Sender {
	out := make([]session.Sender, len(s.Messages))
	for i, m := range s.Messages {
		out[i] = m.Sender
	}
	return out
}

func TestHandleSingleVerse(t *testing.T) {
	e, store := newEngine(t)
	id := start(t, e)

	got := handle(t, e, id, "البقرة 255")
	want := Result{
		Kind:      intent.KindSingleVerse,
		SessionID: id,
		Verses: []Verse{{
			Ref:     quran.VerseRef{ChapterID: "2", Verse: 255},
			Text:    "اللَّهُ لَا إِلَٰهَ إِلَّا هُوَ الْحَيُّ الْقَيُّومُ",
			Number:  "۲۵۵",
			Caption: "سورة البقرة - الآية ۲۵۵",
		}},
		Tools: VerseTools,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Handle() mismatch (-want +got):\n%s", diff)
	}

	s, _ := e.Session(id)
	if diff := cmp.Diff([]session.Sender{session.SenderUser, session.SenderQuran}, senders(s)); diff != "" {
		t.Errorf("senders mismatch (-want +got):\n%s", diff)
	}
	if refs := s.Messages[1].Refs; len(refs) != 1 || refs[0] != want.Verses[0].Ref {
		t.Errorf("quran message Refs = %v", refs)
	}
	last, _ := store.LastRead(id)
	if last == nil || *last != want.Verses[0].Ref {
		t.Errorf("LastRead = %v, want 2:255", last)
	}
}

func TestHandleNamedVerseAgrees(t *testing.T) {
	e, _ := newEngine(t)
	id := start(t, e)
	a := handle(t, e, id, "آية الكرسي")
	b := handle(t, e, id, "البقرة 255")
	if diff := cmp.Diff(a.Verses, b.Verses); diff != "" {
		t.Errorf("named verse and pair differ:\n%s", diff)
	}
}

func TestHandleContinue(t *testing.T) {
	e, _ := newEngine(t)
	id := start(t, e)
	handle(t, e, id, "الفاتحة 6")

	got := handle(t, e, id, "تابع")
	if got.Kind != intent.KindContinue || len(got.Verses) != 1 || got.Verses[0].Ref.Verse != 7 {
		t.Fatalf("first continue = %+v", got)
	}
	if want := []string{"حسناً، لنتابع من بعد الآية ۶ من سورة الفاتحة."}; !cmp.Equal(want, got.Notices) {
		t.Errorf("Notices = %q, want %q", got.Notices, want)
	}

	got = handle(t, e, id, "أكمل")
	want := Result{
		Kind:            intent.KindContinue,
		SessionID:       id,
		ChapterComplete: true,
		Notices: []string{
			"حسناً، لنتابع من بعد الآية ۷ من سورة الفاتحة.",
			"ما شاء الله، لقد أتممت سورة الفاتحة. 🌸",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("second continue mismatch (-want +got):\n%s", diff)
	}

	p, _ := e.Progress()
	if len(p.Chapters) != 0 {
		t.Errorf("continue to the end marked chapters complete: %v", p.Chapters)
	}
}

func TestHandleContinueWithoutPosition(t *testing.T) {
	e, _ := newEngine(t)
	id := start(t, e)
	got := handle(t, e, id, "تابع")
	if got.Kind != intent.KindFallback || got.Notices[0] != intent.FallbackReply {
		t.Errorf("got %+v, want fallback", got)
	}
}

func TestHandleFullChapter(t *testing.T) {
	e, store := newEngine(t)
	id := start(t, e)

	got := handle(t, e, id, "سورة الاخلاص")
	if got.Kind != intent.KindFullChapter || !got.ChapterComplete {
		t.Fatalf("got %+v", got)
	}
	wantChapter := &Chapter{ID: "112", Name: "الإخلاص", Invocation: DefaultInvocation}
	if diff := cmp.Diff(wantChapter, got.Chapter); diff != "" {
		t.Errorf("Chapter mismatch (-want +got):\n%s", diff)
	}
	if len(got.Verses) != 4 || got.Verses[3].Number != "۴" {
		t.Errorf("Verses = %+v", got.Verses)
	}
	if want := []string{"جاري عرض سورة الإخلاص كاملة..."}; !cmp.Equal(want, got.Notices) {
		t.Errorf("Notices = %q", got.Notices)
	}

	s, _ := e.Session(id)
	if diff := cmp.Diff([]session.Sender{session.SenderUser, session.SenderSystem, session.SenderQuran}, senders(s)); diff != "" {
		t.Errorf("senders mismatch (-want +got):\n%s", diff)
	}
	if n := len(s.Messages[2].Refs); n != 4 {
		t.Errorf("chapter message has %d refs, want 4", n)
	}
	last, _ := store.LastRead(id)
	if last == nil || *last != (quran.VerseRef{ChapterID: "112", Verse: 4}) {
		t.Errorf("LastRead = %v, want 112:4", last)
	}

	handle(t, e, id, "112")
	p, err := e.Progress()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"112"}, p.Chapters); diff != "" {
		t.Errorf("Chapters mismatch (-want +got):\n%s", diff)
	}
	if p.Display != "۰.۹%" {
		t.Errorf("Display = %q", p.Display)
	}
}

func TestHandleFullChapterWithoutInvocation(t *testing.T) {
	e, _ := newEngine(t)
	id := start(t, e)
	got := handle(t, e, id, "الفاتحة")
	if got.Chapter == nil || got.Chapter.Invocation != "" {
		t.Errorf("Chapter = %+v, want no invocation", got.Chapter)
	}
	if len(got.Verses) != 7 {
		t.Errorf("len(Verses) = %d, want 7", len(got.Verses))
	}
}

func TestHandleSearch(t *testing.T) {
	e, store := newEngine(t)
	id := start(t, e)

	got := handle(t, e, id, "آيات عن الصبر")
	if got.Kind != intent.KindSearch {
		t.Fatalf("Kind = %q", got.Kind)
	}
	wantNotices := []string{`جاري البحث عن آيات تتعلق بـ "الصبر"... ⏳`, "وجدت ۲ آية. إليك أبرزها:"}
	if diff := cmp.Diff(wantNotices, got.Notices); diff != "" {
		t.Errorf("Notices mismatch (-want +got):\n%s", diff)
	}
	var refs []quran.VerseRef
	for _, v := range got.Verses {
		refs = append(refs, v.Ref)
	}
	wantRefs := []quran.VerseRef{{ChapterID: "2", Verse: 45}, {ChapterID: "2", Verse: 153}}
	if diff := cmp.Diff(wantRefs, refs); diff != "" {
		t.Errorf("refs mismatch (-want +got):\n%s", diff)
	}
	if got.Verses[0].Caption != "البقرة: ۴۵" {
		t.Errorf("Caption = %q", got.Verses[0].Caption)
	}

	s, _ := e.Session(id)
	want := []session.Sender{session.SenderUser, session.SenderSystem, session.SenderSystem, session.SenderQuran, session.SenderQuran}
	if diff := cmp.Diff(want, senders(s)); diff != "" {
		t.Errorf("senders mismatch (-want +got):\n%s", diff)
	}
	last, _ := store.LastRead(id)
	if last == nil || *last != wantRefs[1] {
		t.Errorf("LastRead = %v, want 2:153", last)
	}
}

// fixtureTable limits the chapter table to the chapters in fixtureCorpus.
func fixtureTable() []quran.ChapterMeta {
	var table []quran.ChapterMeta
	for _, m := range quran.Builtin() {
		if m.ID == "1" || m.ID == "2" || m.ID == "112" {
			table = append(table, m)
		}
	}
	return table
}

func TestHandleSearchNoHits(t *testing.T) {
	e, _ := newEngineOver(t, fixtureCorpus(t), fixtureTable())
	id := start(t, e)
	got := handle(t, e, id, "ابحث عن الزيتون")
	want := []string{`جاري البحث عن آيات تتعلق بـ "الزيتون"... ⏳`, `لم أعثر على آيات تذكر "الزيتون" بشكل مباشر.`}
	if diff := cmp.Diff(want, got.Notices); diff != "" {
		t.Errorf("Notices mismatch (-want +got):\n%s", diff)
	}
	if len(got.Verses) != 0 {
		t.Errorf("Verses = %v, want none", got.Verses)
	}
}

func TestHandleSearchUnreadableCorpus(t *testing.T) {
	e, store := newEngineOver(t, fstest.MapFS{}, quran.Builtin())
	id := start(t, e)

	got := handle(t, e, id, "آيات عن الصبر")
	if got.Kind != KindError || len(got.Verses) != 0 {
		t.Fatalf("Handle() = %+v, want error result", got)
	}
	want := []string{"عفواً، لم أتمكن من تحميل بيانات سورة رقم ۱."}
	if diff := cmp.Diff(want, got.Notices); diff != "" {
		t.Errorf("Notices mismatch (-want +got):\n%s", diff)
	}
	if last, _ := store.LastRead(id); last != nil {
		t.Errorf("LastRead = %v, want none", last)
	}
}

func TestHandleSearchPartialCorpus(t *testing.T) {
	e, _ := newEngine(t)
	id := start(t, e)

	// Chapters outside the fixture fail, but the hits found are still shown.
	got := handle(t, e, id, "آيات عن الصبر")
	if got.Kind != intent.KindSearch || len(got.Verses) != 2 {
		t.Errorf("Handle() = %+v, want two search hits", got)
	}
}

func TestHandleFetchFailure(t *testing.T) {
	e, store := newEngine(t)
	id := start(t, e)

	for _, utterance := range []string{"سورة الكهف", "الكهف 10", "البقرة 100"} {
		got := handle(t, e, id, utterance)
		if got.Kind != KindError || len(got.Verses) != 0 {
			t.Errorf("Handle(%q) = %+v, want error result", utterance, got)
		}
	}
	got := handle(t, e, id, "الكهف")
	if want := []string{"عفواً، لم أتمكن من تحميل بيانات سورة رقم ۱۸."}; !cmp.Equal(want, got.Notices) {
		t.Errorf("Notices = %q, want %q", got.Notices, want)
	}
	if last, _ := store.LastRead(id); last != nil {
		t.Errorf("LastRead = %v after failures, want nil", last)
	}
	if p, _ := e.Progress(); len(p.Chapters) != 0 {
		t.Errorf("failed chapter marked complete: %v", p.Chapters)
	}
}

func TestHandleReplies(t *testing.T) {
	e, _ := newEngine(t)
	id := start(t, e)
	tests := []struct {
		utterance string
		kind      intent.Kind
		reply     string
	}{
		{"السلام عليكم", intent.KindAcknowledgment, intent.GreetingReply},
		{"شكرا", intent.KindAcknowledgment, intent.ThanksReply},
		{"كيف الحال؟", intent.KindFallback, intent.FallbackReply},
	}
	for _, tt := range tests {
		got := handle(t, e, id, tt.utterance)
		want := Result{Kind: tt.kind, SessionID: id, Notices: []string{tt.reply}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Handle(%q) mismatch (-want +got):\n%s", tt.utterance, diff)
		}
	}
}

func lockCount(e *Engine) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.locks)
}

func TestHandleUnknownSession(t *testing.T) {
	e, _ := newEngine(t)
	for i := 0; i < 100; i++ {
		_, err := e.Handle(context.Background(), fmt.Sprintf("missing-%d", i), "البقرة 255")
		if !errors.Is(err, errors.ErrNotFound) {
			t.Fatalf("Handle() error = %v, want ErrNotFound", err)
		}
	}
	ref := quran.VerseRef{ChapterID: "2", Verse: 255}
	if _, err := e.RunTool(context.Background(), "missing", ref, ToolListen); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("RunTool() error = %v, want ErrNotFound", err)
	}
	if n := lockCount(e); n != 0 {
		t.Errorf("%d session locks retained for unknown sessions", n)
	}
}

func TestHandleConcurrentSameSession(t *testing.T) {
	e, _ := newEngine(t)
	id := start(t, e)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Handle(context.Background(), id, "البقرة 255"); err != nil {
				t.Errorf("Handle() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := lockCount(e); n != 0 {
		t.Errorf("%d session locks retained after all work finished", n)
	}
	s, _ := e.Session(id)
	if len(s.Messages) != 20 {
		t.Fatalf("len(Messages) = %d, want 20", len(s.Messages))
	}
	for i := 0; i < len(s.Messages); i += 2 {
		if s.Messages[i].Sender != session.SenderUser || s.Messages[i+1].Sender != session.SenderQuran {
			t.Fatalf("messages %d,%d interleaved: %s, %s", i, i+1, s.Messages[i].Sender, s.Messages[i+1].Sender)
		}
	}
}

func TestStartAndResume(t *testing.T) {
	e, _ := newEngine(t)

	first, err := e.Resume()
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Messages) != 1 || first.Messages[0].Content != InitialGreeting {
		t.Errorf("Resume() on empty store = %+v, want initial greeting", first.Messages)
	}
	again, _ := e.Resume()
	if again.ID != first.ID {
		t.Errorf("Resume() = %q, want %q", again.ID, first.ID)
	}

	greeted, err := e.Start(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(greeted.Messages) != 1 || greeted.Messages[0].Content != NewChatGreeting {
		t.Errorf("Start(true) messages = %+v", greeted.Messages)
	}
	if cur, _ := e.Resume(); cur.ID != greeted.ID {
		t.Errorf("Resume() after Start = %q, want %q", cur.ID, greeted.ID)
	}
	if _, err := e.Switch(first.ID); err != nil {
		t.Fatal(err)
	}
	if cur, _ := e.Resume(); cur.ID != first.ID {
		t.Errorf("Resume() after Switch = %q, want %q", cur.ID, first.ID)
	}

	recent, _ := e.Recent()
	if len(recent) != 2 {
		t.Errorf("len(Recent()) = %d, want 2", len(recent))
	}
}
