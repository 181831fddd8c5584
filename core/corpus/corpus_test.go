package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ulikunitz/xz"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/quran"
)

const invocation = "بِسْمِ ٱللَّهِ ٱلرَّحْمَٰنِ ٱلرَّحِيمِ"

func chapterJSON(t testing.TB, id string, verses map[int]string) []byte {
	t.Helper()
	rec := map[string]any{"index": id, "verse": map[string]string{}}
	for n, v := range verses {
		rec["verse"].(map[string]string)[fmt.Sprintf("verse_%d", n)] = v
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func xzBytes(t testing.TB, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func manifestJSON(t testing.TB, mutate func([]map[string]any) []map[string]any) []byte {
	t.Helper()
	var recs []map[string]any
	for _, m := range quran.Builtin() {
		recs = append(recs, map[string]any{"index": m.ID, "name": m.CanonicalName, "verses": m.VerseCount})
	}
	if mutate != nil {
		recs = mutate(recs)
	}
	data, err := json.Marshal(recs)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// fixtureFS holds chapters 1, 2 (partial) and 112, commentary for 2:255,
// and no manifest.
func fixtureFS(t testing.TB) fstest.MapFS {
	t.Helper()
	return fstest.MapFS{
		ChapterPath("1"): {Data: chapterJSON(t, "1", map[int]string{
			1: "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ",
			2: "الْحَمْدُ لِلَّهِ رَبِّ الْعَالَمِينَ",
			3: "الرَّحْمَٰنِ الرَّحِيمِ",
			4: "مَالِكِ يَوْمِ الدِّينِ",
			5: "إِيَّاكَ نَعْبُدُ وَإِيَّاكَ نَسْتَعِينُ",
			6: "اهْدِنَا الصِّرَاطَ الْمُسْتَقِيمَ",
			7: "صِرَاطَ الَّذِينَ أَنْعَمْتَ عَلَيْهِمْ",
		})},
		ChapterPath("2"): {Data: chapterJSON(t, "2", map[int]string{
			0:   invocation,
			45:  "وَاسْتَعِينُوا بِالصَّبْرِ وَالصَّلَاةِ",
			153: "يَا أَيُّهَا الَّذِينَ آمَنُوا اسْتَعِينُوا بِالصَّبْرِ وَالصَّلَاةِ",
			155: "وَبَشِّرِ الصَّابِرِينَ",
			255: "اللَّهُ لَا إِلَٰهَ إِلَّا هُوَ الْحَيُّ الْقَيُّومُ",
		})},
		ChapterPath("112") + XZSuffix: {Data: xzBytes(t, chapterJSON(t, "112", map[int]string{
			0: invocation,
			1: "قُلْ هُوَ اللَّهُ أَحَدٌ",
			2: "اللَّهُ الصَّمَدُ",
			3: "لَمْ يَلِدْ وَلَمْ يُولَدْ",
			4: "وَلَمْ يَكُن لَّهُ كُفُوًا أَحَدٌ",
		}))},
		CommentaryPath("2", 255): {Data: []byte(`{"text":"آية الكرسي أعظم آية"}`)},
		CommentaryPath("2", 1):   {Data: []byte(`{"text":"  "}`)},
	}
}

func fixtureIndex(t testing.TB) *Index {
	t.Helper()
	return NewIndex(NewFileSource(fixtureFS(t)), quran.Builtin())
}

func TestDecodeManifest(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"valid", manifestJSON(t, nil), false},
		{"empty array", []byte(`[]`), true},
		{"empty input", []byte(``), true},
		{"object", []byte(`{"index":"1"}`), true},
		{"short", manifestJSON(t, func(r []map[string]any) []map[string]any { return r[:3] }), true},
		{"duplicate id", manifestJSON(t, func(r []map[string]any) []map[string]any {
			r[1]["index"] = "1"
			return r
		}), true},
		{"zero verses", manifestJSON(t, func(r []map[string]any) []map[string]any {
			r[5]["verses"] = 0
			return r
		}), true},
		{"id out of range", manifestJSON(t, func(r []map[string]any) []map[string]any {
			r[113]["index"] = "115"
			return r
		}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := DecodeManifest(tt.data)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrMalformed) {
					t.Fatalf("DecodeManifest() error = %v, want ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeManifest() error = %v", err)
			}
			if len(table) != quran.ChapterCount {
				t.Errorf("len = %d, want %d", len(table), quran.ChapterCount)
			}
		})
	}
}

func TestDecodeManifestNormalizesIDsAndNames(t *testing.T) {
	data := manifestJSON(t, func(r []map[string]any) []map[string]any {
		for i := range r {
			r[i]["index"] = fmt.Sprintf("%03d", i+1)
		}
		r[1]["index"] = 2
		r[1]["name_simple"] = "Al-Baqarah"
		r[1]["englishName"] = "The Cow"
		r[1]["variants"] = []string{"Baqara", " "}
		return r
	})
	table, err := DecodeManifest(data)
	if err != nil {
		t.Fatal(err)
	}
	if table[0].ID != "1" || table[8].ID != "9" {
		t.Errorf("ids = %q, %q; want 1, 9", table[0].ID, table[8].ID)
	}
	want := []string{"Al-Baqarah", "The Cow", "Baqara"}
	if diff := cmp.Diff(want, table[1].NameVariants); diff != "" {
		t.Errorf("NameVariants mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeChapter(t *testing.T) {
	meta := quran.ChapterMeta{ID: "112", CanonicalName: "الإخلاص", VerseCount: 4}
	tests := []struct {
		name    string
		data    string
		wantErr bool
		check   func(t *testing.T, c *quran.ChapterText)
	}{
		{
			name: "with invocation",
			data: `{"index":"112","verse":{"verse_0":"بسم","verse_1":"قل","verse_4":"ولم"}}`,
			check: func(t *testing.T, c *quran.ChapterText) {
				if c.Invocation != "بسم" {
					t.Errorf("Invocation = %q", c.Invocation)
				}
				if diff := cmp.Diff([]int{1, 4}, c.Numbers()); diff != "" {
					t.Errorf("Numbers() mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{name: "no index", data: `{"verse":{"verse_1":"قل"}}`},
		{name: "numeric index", data: `{"index":112,"verse":{"verse_1":"قل"}}`},
		{name: "wrong index", data: `{"index":"113","verse":{"verse_1":"قل"}}`, wantErr: true},
		{name: "bad key", data: `{"verse":{"ayah_1":"قل"}}`, wantErr: true},
		{name: "negative key", data: `{"verse":{"verse_-1":"قل"}}`, wantErr: true},
		{name: "beyond count", data: `{"verse":{"verse_5":"قل"}}`, wantErr: true},
		{name: "missing verse", data: `{"index":"112"}`, wantErr: true},
		{name: "not json", data: `<html>`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := DecodeChapter(meta, []byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, errors.ErrMalformed) {
					t.Fatalf("DecodeChapter() error = %v, want ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeChapter() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestDecodeCommentary(t *testing.T) {
	text, ok, err := DecodeCommentary([]byte(`{"text":"شرح"}`))
	if err != nil || !ok || text != "شرح" {
		t.Errorf("DecodeCommentary() = %q, %v, %v", text, ok, err)
	}
	if _, ok, err := DecodeCommentary([]byte(`{}`)); ok || err != nil {
		t.Errorf("empty commentary = %v, %v; want absent", ok, err)
	}
	if _, _, err := DecodeCommentary([]byte(`nope`)); !errors.Is(err, errors.ErrMalformed) {
		t.Errorf("bad commentary error = %v", err)
	}
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	src := NewFileSource(fixtureFS(t))

	if _, err := src.Manifest(ctx); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Manifest() error = %v, want ErrNotFound", err)
	}
	if _, err := src.Chapter(ctx, "3"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Chapter(3) error = %v, want ErrNotFound", err)
	}

	data, err := src.Chapter(ctx, "112")
	if err != nil {
		t.Fatalf("Chapter(112) from xz: %v", err)
	}
	if !bytes.Contains(data, []byte("verse_4")) {
		t.Errorf("decompressed chapter looks wrong: %s", data)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := src.Chapter(cctx, "1"); !errors.Is(err, errors.ErrFetch) {
		t.Errorf("canceled Chapter() error = %v, want ErrFetch", err)
	}
}

func TestFileSourceChecksums(t *testing.T) {
	ctx := context.Background()
	fsys := fixtureFS(t)
	good := fsys[ChapterPath("1")].Data
	stored := fsys[ChapterPath("112")+XZSuffix].Data
	sums := map[string]string{
		ChapterPath("1"):              Checksum(good),
		ChapterPath("112") + XZSuffix: Checksum(stored),
		ChapterPath("2"):              Checksum([]byte("something else")),
	}
	data, _ := json.Marshal(sums)
	fsys[ChecksumsPath] = &fstest.MapFile{Data: data}
	src := NewFileSource(fsys)

	if _, err := src.Chapter(ctx, "1"); err != nil {
		t.Errorf("Chapter(1) with matching checksum: %v", err)
	}
	if _, err := src.Chapter(ctx, "112"); err != nil {
		t.Errorf("Chapter(112) with matching checksum: %v", err)
	}
	if _, err := src.Chapter(ctx, "2"); !errors.Is(err, errors.ErrMalformed) {
		t.Errorf("Chapter(2) with bad checksum error = %v, want ErrMalformed", err)
	}
	if _, _, err := NewIndex(src, quran.Builtin()).Commentary(ctx, "2", 255); err != nil {
		t.Errorf("unlisted file should not be verified: %v", err)
	}

	fsys[ChecksumsPath] = &fstest.MapFile{Data: []byte(`[1,2]`)}
	if _, err := NewFileSource(fsys).Chapter(ctx, "1"); !errors.Is(err, errors.ErrMalformed) {
		t.Errorf("bad checksums.json error = %v, want ErrMalformed", err)
	}
}

func TestHTTPSource(t *testing.T) {
	fsys := fixtureFS(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path[1:]
		if name == ChapterPath("9") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := src.Chapter(ctx, "1"); err != nil {
		t.Errorf("Chapter(1) error = %v", err)
	}
	if _, err := src.Manifest(ctx); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Manifest() error = %v, want ErrNotFound", err)
	}
	_, err = src.Chapter(ctx, "9")
	var fe *errors.FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusInternalServerError {
		t.Errorf("Chapter(9) error = %v, want FetchError with status 500", err)
	}
	if data, err := src.Commentary(ctx, "2", 255); err != nil || !bytes.Contains(data, []byte("الكرسي")) {
		t.Errorf("Commentary(2,255) = %s, %v", data, err)
	}

	if _, err := NewHTTPSource("ftp://example.org", nil); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("ftp base error = %v, want ErrInvalidInput", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	idx, err := Open(ctx, NewFileSource(fixtureFS(t)), Options{})
	if err != nil {
		t.Fatalf("Open() without manifest: %v", err)
	}
	if len(idx.Chapters()) != quran.ChapterCount {
		t.Errorf("fallback table has %d chapters", len(idx.Chapters()))
	}

	if _, err := Open(ctx, NewFileSource(fixtureFS(t)), Options{RequireManifest: true}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Open(RequireManifest) error = %v, want ErrNotFound", err)
	}

	fsys := fixtureFS(t)
	fsys[ManifestPath] = &fstest.MapFile{Data: []byte(`{}`)}
	if _, err := Open(ctx, NewFileSource(fsys), Options{}); !errors.Is(err, errors.ErrMalformed) {
		t.Errorf("Open() with malformed manifest error = %v, want ErrMalformed", err)
	}

	fsys[ManifestPath] = &fstest.MapFile{Data: manifestJSON(t, func(r []map[string]any) []map[string]any {
		r[1]["name_simple"] = "Al-Baqarah"
		return r
	})}
	idx, err = Open(ctx, NewFileSource(fsys), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if m, _ := idx.Meta("2"); len(m.NameVariants) != 1 || m.NameVariants[0] != "Al-Baqarah" {
		t.Errorf("Meta(2) = %+v, want manifest data", m)
	}
}

// countingSource counts chapter fetches and can block them.
type countingSource struct {
	Source
	calls   atomic.Int32
	release chan struct{}
	fail    bool
}

func (s *countingSource) Chapter(ctx context.Context, id string) ([]byte, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.fail {
		return nil, io.ErrUnexpectedEOF
	}
	return s.Source.Chapter(ctx, id)
}

func TestChapterTextCachesAndDedups(t *testing.T) {
	src := &countingSource{Source: NewFileSource(fixtureFS(t)), release: make(chan struct{})}
	idx := NewIndex(src, quran.Builtin())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := idx.ChapterText(ctx, "1"); err != nil {
				t.Errorf("ChapterText() error = %v", err)
			}
		}()
	}
	close(src.release)
	wg.Wait()

	if _, err := idx.ChapterText(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("chapter fetched %d times, want 1", n)
	}
}

func TestOpenCacheTTL(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{Source: NewFileSource(fixtureFS(t))}
	idx, err := Open(ctx, src, Options{CacheTTL: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := idx.ChapterText(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := idx.ChapterText(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if n := src.calls.Load(); n != 2 {
		t.Errorf("chapter fetched %d times, want 2 after expiry", n)
	}
}

func TestChapterTextFailures(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{Source: NewFileSource(fixtureFS(t)), fail: true}
	idx := NewIndex(src, quran.Builtin())

	for i := 0; i < 2; i++ {
		_, err := idx.ChapterText(ctx, "1")
		if !errors.Is(err, errors.ErrFetch) {
			t.Fatalf("ChapterText() error = %v, want ErrFetch", err)
		}
	}
	if n := src.calls.Load(); n != 2 {
		t.Errorf("failed fetch should not be cached, got %d calls", n)
	}

	if _, err := fixtureIndex(t).ChapterText(ctx, "3"); !errors.Is(err, errors.ErrFetch) {
		t.Errorf("missing chapter file error = %v, want ErrFetch", err)
	}
	if _, err := fixtureIndex(t).ChapterText(ctx, "115"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("unknown chapter error = %v, want ErrNotFound", err)
	}
}

func TestVerse(t *testing.T) {
	idx := fixtureIndex(t)
	ctx := context.Background()
	v, err := idx.Verse(ctx, quran.VerseRef{ChapterID: "112", Verse: 1})
	if err != nil || v != "قُلْ هُوَ اللَّهُ أَحَدٌ" {
		t.Errorf("Verse(112:1) = %q, %v", v, err)
	}
	if _, err := idx.Verse(ctx, quran.VerseRef{ChapterID: "2", Verse: 0}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Verse(2:0) error = %v, want ErrNotFound", err)
	}
}

func TestSearch(t *testing.T) {
	idx := fixtureIndex(t)
	ctx := context.Background()

	// The fixture holds three chapters, so the rest are reported as skipped.
	hits, err := idx.Search(ctx, "الصبر", 7)
	var skipped *SearchError
	if !errors.As(err, &skipped) {
		t.Fatalf("Search() error = %v, want *SearchError", err)
	}
	if len(skipped.Chapters) != quran.ChapterCount-3 || skipped.Chapters[0] != "3" {
		t.Errorf("skipped %d chapters starting at %q", len(skipped.Chapters), skipped.Chapters[0])
	}
	want := []quran.VerseRef{{ChapterID: "2", Verse: 45}, {ChapterID: "2", Verse: 153}}
	var got []quran.VerseRef
	for _, h := range hits {
		got = append(got, h.Ref)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Search(الصبر) mismatch (-want +got):\n%s", diff)
	}

	hits, _ = idx.Search(ctx, "الله", 2)
	got = got[:0]
	for _, h := range hits {
		got = append(got, h.Ref)
	}
	want = []quran.VerseRef{{ChapterID: "1", Verse: 1}, {ChapterID: "2", Verse: 255}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Search(الله, 2) mismatch (-want +got):\n%s", diff)
	}

	hits, _ = idx.Search(ctx, "الرحيم", 10)
	for _, h := range hits {
		if h.Ref.Verse == 0 {
			t.Errorf("verse 0 returned as a hit: %+v", h)
		}
	}

	if hits, _ := idx.Search(ctx, "  ", 7); hits != nil {
		t.Errorf("blank keyword returned %d hits", len(hits))
	}
	if hits, _ := idx.Search(ctx, "زيتون", 7); len(hits) != 0 {
		t.Errorf("Search(زيتون) = %+v, want none", hits)
	}
}

func TestSearchStopsBeforeMissingChapters(t *testing.T) {
	hits, err := fixtureIndex(t).Search(context.Background(), "الله", 2)
	if err != nil {
		t.Errorf("Search() error = %v, want nil once the limit is reached", err)
	}
	if len(hits) != 2 {
		t.Errorf("len(hits) = %d, want 2", len(hits))
	}
}

func TestSearchUnreadableCorpus(t *testing.T) {
	idx := NewIndex(NewFileSource(fstest.MapFS{}), quran.Builtin())
	hits, err := idx.Search(context.Background(), "الصبر", 7)
	if len(hits) != 0 {
		t.Errorf("hits = %+v, want none", hits)
	}
	var skipped *SearchError
	if !errors.As(err, &skipped) {
		t.Fatalf("Search() error = %v, want *SearchError", err)
	}
	if len(skipped.Chapters) != quran.ChapterCount {
		t.Errorf("skipped %d chapters, want %d", len(skipped.Chapters), quran.ChapterCount)
	}
	if !errors.Is(err, errors.ErrFetch) {
		t.Errorf("error %v does not match ErrFetch", err)
	}
}

func TestSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fixtureIndex(t).Search(ctx, "الصبر", 7); !errors.Is(err, context.Canceled) {
		t.Errorf("Search() error = %v, want context.Canceled", err)
	}
}

func TestCommentary(t *testing.T) {
	idx := fixtureIndex(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		chapter string
		verse   int
		want    string
		wantOK  bool
	}{
		{"present", "2", 255, "آية الكرسي أعظم آية", true},
		{"missing file", "2", 256, "", false},
		{"blank text", "2", 1, "", false},
		{"invalid verse", "2", 999, "", false},
		{"unknown chapter", "200", 1, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := idx.Commentary(ctx, tt.chapter, tt.verse)
			if err != nil {
				t.Fatalf("Commentary() error = %v", err)
			}
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Commentary() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAdjacent(t *testing.T) {
	idx := fixtureIndex(t)
	tests := []struct {
		name string
		from quran.VerseRef
		step int
		want quran.VerseRef
		ok   bool
	}{
		{"next in chapter", quran.VerseRef{ChapterID: "2", Verse: 5}, 1, quran.VerseRef{ChapterID: "2", Verse: 6}, true},
		{"next chapter", quran.VerseRef{ChapterID: "1", Verse: 7}, 1, quran.VerseRef{ChapterID: "2", Verse: 1}, true},
		{"previous chapter", quran.VerseRef{ChapterID: "2", Verse: 1}, -1, quran.VerseRef{ChapterID: "1", Verse: 7}, true},
		{"wrap forward", quran.VerseRef{ChapterID: "114", Verse: 6}, 1, quran.VerseRef{ChapterID: "1", Verse: 1}, true},
		{"wrap backward", quran.VerseRef{ChapterID: "1", Verse: 1}, -1, quran.VerseRef{ChapterID: "114", Verse: 6}, true},
		{"invalid start", quran.VerseRef{ChapterID: "1", Verse: 8}, 1, quran.VerseRef{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := idx.Adjacent(tt.from, tt.step)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Adjacent(%v, %d) = %v, %v; want %v, %v", tt.from, tt.step, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRandomIsValid(t *testing.T) {
	idx := fixtureIndex(t)
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		ref := idx.Random(rng)
		m, ok := idx.Meta(ref.ChapterID)
		if !ok || !m.Contains(ref.Verse) {
			t.Fatalf("Random() = %v, not a valid verse", ref)
		}
	}
}
