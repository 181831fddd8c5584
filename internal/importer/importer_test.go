package importer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/qurani-maai/quranchat/core/corpus"
	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/quran"
)

const bismillah = "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ"

const quranXML = `<?xml version="1.0" encoding="utf-8" ?>
<quran>
	<sura index="1" name="الفاتحة">
		<aya index="1" text="بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ" />
		<aya index="2" text="الْحَمْدُ لِلَّهِ رَبِّ الْعَالَمِينَ" />
		<aya index="3" text="الرَّحْمَٰنِ الرَّحِيمِ" />
		<aya index="4" text="مَالِكِ يَوْمِ الدِّينِ" />
		<aya index="5" text="إِيَّاكَ نَعْبُدُ وَإِيَّاكَ نَسْتَعِينُ" />
		<aya index="6" text="اهْدِنَا الصِّرَاطَ الْمُسْتَقِيمَ" />
		<aya index="7" text="صِرَاطَ الَّذِينَ أَنْعَمْتَ عَلَيْهِمْ" />
	</sura>
	<sura index="112" name="الإخلاص">
		<aya index="1" text="قُلْ هُوَ اللَّهُ أَحَدٌ" bismillah="بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ" />
		<aya index="2" text="اللَّهُ الصَّمَدُ" />
		<aya index="3" text="لَمْ يَلِدْ وَلَمْ يُولَدْ" />
		<aya index="4" text="وَلَمْ يَكُن لَّهُ كُفُوًا أَحَدٌ" />
	</sura>
</quran>
`

const commentaryXML = `<quran>
	<sura index="112">
		<aya index="1" text="سورة التوحيد" />
		<aya index="2" text="  " />
	</sura>
</quran>`

func mustParse(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func TestParse(t *testing.T) {
	doc := mustParse(t, quranXML)
	if len(doc.Suras) != 2 {
		t.Fatalf("len(Suras) = %d, want 2", len(doc.Suras))
	}
	s := doc.Suras[1]
	if s.Index != "112" || s.Name != "الإخلاص" || len(s.Ayas) != 4 {
		t.Fatalf("sura = %+v", s)
	}
	want := Aya{Index: 1, Text: "قُلْ هُوَ اللَّهُ أَحَدٌ", Bismillah: bismillah}
	if diff := cmp.Diff(want, s.Ayas[0]); diff != "" {
		t.Errorf("first aya mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := map[string]string{
		"not xml":       "<quran><sura",
		"no suras":      "<quran></quran>",
		"wrong root":    `<bible><sura index="1"><aya index="1" text="x"/></sura></bible>`,
		"bad index":     `<quran><sura index="one"><aya index="1" text="x"/></sura></quran>`,
		"gap in ayas":   `<quran><sura index="1"><aya index="1" text="x"/><aya index="3" text="y"/></sura></quran>`,
		"empty sura":    `<quran><sura index="1"></sura></quran>`,
		"duplicate":     `<quran><sura index="1"><aya index="1" text="x"/></sura><sura index="001"><aya index="1" text="x"/></sura></quran>`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(data))
			if !errors.Is(err, errors.ErrMalformed) {
				t.Errorf("Parse() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	if !Detect([]byte(quranXML)) {
		t.Error("Detect(tanzil) = false")
	}
	if Detect([]byte(`<osis><osisText/></osis>`)) {
		t.Error("Detect(osis) = true")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "xz"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			report, err := Write(context.Background(), dir, mustParse(t, quranXML), Options{
				Compress:   compress,
				Commentary: mustParse(t, commentaryXML),
			})
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if report.Chapters != 2 || report.Verses != 11 || report.Commentary != 1 {
				t.Errorf("report = %+v", report)
			}

			ctx := context.Background()
			idx, err := corpus.Open(ctx, corpus.NewFileSource(os.DirFS(dir)), corpus.Options{RequireManifest: true})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if diff := cmp.Diff(quran.Builtin(), idx.Chapters()); diff != "" {
				t.Errorf("manifest mismatch (-want +got):\n%s", diff)
			}

			text, err := idx.ChapterText(ctx, "112")
			if err != nil {
				t.Fatalf("ChapterText(112) error = %v", err)
			}
			if text.Invocation != bismillah || len(text.Verses) != 4 {
				t.Errorf("chapter 112 = %+v", text)
			}
			fatiha, err := idx.ChapterText(ctx, "1")
			if err != nil {
				t.Fatalf("ChapterText(1) error = %v", err)
			}
			if fatiha.Invocation != "" {
				t.Errorf("chapter 1 Invocation = %q, want empty", fatiha.Invocation)
			}

			c, ok, err := idx.Commentary(ctx, "112", 1)
			if err != nil || !ok || c != "سورة التوحيد" {
				t.Errorf("Commentary(112:1) = %q, %v, %v", c, ok, err)
			}
			if _, ok, _ := idx.Commentary(ctx, "112", 2); ok {
				t.Error("blank commentary was written")
			}
		})
	}
}

func TestWriteChecksums(t *testing.T) {
	dir := t.TempDir()
	report, err := Write(context.Background(), dir, mustParse(t, quranXML), Options{Compress: true})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, corpus.ChecksumsPath))
	if err != nil {
		t.Fatal(err)
	}
	var sums map[string]string
	if err := json.Unmarshal(data, &sums); err != nil {
		t.Fatal(err)
	}
	want := []string{corpus.ManifestPath, corpus.ChapterPath("1") + corpus.XZSuffix, corpus.ChapterPath("112") + corpus.XZSuffix}
	for _, rel := range want {
		if sums[rel] == "" {
			t.Errorf("no checksum for %s", rel)
		}
	}
	if len(report.Files) != len(want) {
		t.Errorf("Files = %v", report.Files)
	}

	// Tampering is caught on read.
	path := filepath.Join(dir, corpus.ChapterPath("112")+corpus.XZSuffix)
	raw, _ := os.ReadFile(path)
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}
	idx, err := corpus.Open(context.Background(), corpus.NewFileSource(os.DirFS(dir)), corpus.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.ChapterText(context.Background(), "112"); !errors.Is(err, errors.ErrMalformed) {
		t.Errorf("tampered chapter error = %v, want ErrMalformed", err)
	}
}

func TestWriteReplacesStaleVariant(t *testing.T) {
	dir := t.TempDir()
	doc := mustParse(t, quranXML)
	if _, err := Write(context.Background(), dir, doc, Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := Write(context.Background(), dir, doc, Options{Compress: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, corpus.ChapterPath("112"))); !os.IsNotExist(err) {
		t.Errorf("plain chapter file left behind: %v", err)
	}
}

func TestWriteRejectsMismatch(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		opts func(*Options)
	}{
		{
			name: "short sura",
			doc:  `<quran><sura index="112"><aya index="1" text="a"/><aya index="2" text="b"/></sura></quran>`,
		},
		{
			name: "unknown sura",
			doc:  `<quran><sura index="115"><aya index="1" text="a"/></sura></quran>`,
		},
		{
			name: "commentary beyond chapter",
			doc:  quranXML,
			opts: func(o *Options) {
				o.Commentary = &Document{Suras: []Sura{{Index: "112", Ayas: make([]Aya, 5)}}}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			opts := Options{}
			if tt.opts != nil {
				tt.opts(&opts)
			}
			_, err := Write(context.Background(), dir, mustParse(t, tt.doc), opts)
			if !errors.Is(err, errors.ErrMalformed) {
				t.Fatalf("Write() error = %v, want ErrMalformed", err)
			}
			if entries, _ := os.ReadDir(dir); len(entries) != 0 {
				t.Errorf("files written before validation failed: %v", entries)
			}
		})
	}
}

func TestWriteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Write(ctx, t.TempDir(), mustParse(t, quranXML), Options{}); err == nil {
		t.Error("Write() with canceled context succeeded")
	}
}
