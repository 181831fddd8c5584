package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ulikunitz/xz"

	"github.com/qurani-maai/quranchat/core/corpus"
	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/internal/logging"
)

// Options controls Write.
type Options struct {
	// Compress stores chapter files as .json.xz.
	Compress bool

	// Commentary, when set, is written as one tafseer record per non-blank
	// aya.
	Commentary *Document

	// Table is the chapter table written as the manifest and used to check
	// verse counts. Nil selects quran.Builtin().
	Table []quran.ChapterMeta
}

// Report summarizes a completed import.
type Report struct {
	Chapters   int      `json:"chapters"`
	Verses     int      `json:"verses"`
	Commentary int      `json:"commentary"`
	Compressed bool     `json:"compressed"`
	Files      []string `json:"files"` // stored paths, sorted, excluding checksums.json
}

type chapterEntry struct {
	Index string            `json:"index"`
	Name  string            `json:"name"`
	Verse map[string]string `json:"verse"`
}

type commentaryEntry struct {
	Text string `json:"text"`
}

// Write lays doc out under dir: the manifest, one file per sura, optional
// commentary and a checksums.json covering every stored file. The whole
// document is validated against the chapter table before anything is
// written.
func Write(ctx context.Context, dir string, doc *Document, opts Options) (*Report, error) {
	table := opts.Table
	if table == nil {
		table = quran.Builtin()
	}
	byID := make(map[string]quran.ChapterMeta, len(table))
	for _, m := range table {
		byID[m.ID] = m
	}

	if err := check(doc, byID, false); err != nil {
		return nil, err
	}
	if opts.Commentary != nil {
		if err := check(opts.Commentary, byID, true); err != nil {
			return nil, err
		}
	}

	w := &layoutWriter{dir: dir, sums: map[string]string{}}
	report := &Report{Compressed: opts.Compress}

	if err := w.writeJSON(corpus.ManifestPath, table, false); err != nil {
		return nil, err
	}

	for _, sura := range doc.Suras {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta := byID[sura.Index]
		rec := chapterEntry{Index: meta.ID, Name: meta.CanonicalName, Verse: make(map[string]string, len(sura.Ayas)+1)}
		for _, a := range sura.Ayas {
			rec.Verse["verse_"+strconv.Itoa(a.Index)] = a.Text
			if a.Index == 1 && a.Bismillah != "" && meta.HasInvocation() {
				rec.Verse["verse_0"] = a.Bismillah
			}
		}
		if err := w.writeJSON(corpus.ChapterPath(meta.ID), rec, opts.Compress); err != nil {
			return nil, err
		}
		// FileSource prefers the plain file, so a stale one would shadow
		// the new chapter.
		w.removeVariant(corpus.ChapterPath(meta.ID), opts.Compress)
		report.Chapters++
		report.Verses += len(sura.Ayas)
	}

	if opts.Commentary != nil {
		for _, sura := range opts.Commentary.Suras {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for _, a := range sura.Ayas {
				if a.Text == "" {
					continue
				}
				if err := w.writeJSON(corpus.CommentaryPath(sura.Index, a.Index), commentaryEntry{Text: a.Text}, false); err != nil {
					return nil, err
				}
				report.Commentary++
			}
		}
	}

	if err := w.writeChecksums(); err != nil {
		return nil, err
	}
	sort.Strings(w.files)
	report.Files = w.files

	logging.Info("corpus imported",
		"dir", dir,
		"chapters", report.Chapters,
		"verses", report.Verses,
		"commentary", report.Commentary,
		"compressed", report.Compressed,
	)
	return report, nil
}

// check validates doc against the chapter table. Commentary may cover any
// subset of verses; the text must cover every verse of each sura it has.
func check(doc *Document, byID map[string]quran.ChapterMeta, partial bool) error {
	if doc == nil || len(doc.Suras) == 0 {
		return errors.NewValidation("document", "no suras to import")
	}
	for _, sura := range doc.Suras {
		meta, ok := byID[sura.Index]
		if !ok {
			return errors.NewMalformed("tanzil", "sura "+sura.Index+" is not in the chapter table")
		}
		n := len(sura.Ayas)
		if (!partial && n != meta.VerseCount) || n > meta.VerseCount {
			return errors.NewMalformed("tanzil sura "+sura.Index,
				"has "+strconv.Itoa(n)+" ayas, chapter table says "+strconv.Itoa(meta.VerseCount))
		}
	}
	return nil
}

type layoutWriter struct {
	dir   string
	sums  map[string]string
	files []string
}

func (w *layoutWriter) writeJSON(rel string, v any, compress bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", rel)
	}
	if compress {
		var buf bytes.Buffer
		zw, err := xz.NewWriter(&buf)
		if err != nil {
			return errors.Wrapf(err, "compress %s", rel)
		}
		if _, err := zw.Write(data); err != nil {
			return errors.Wrapf(err, "compress %s", rel)
		}
		if err := zw.Close(); err != nil {
			return errors.Wrapf(err, "compress %s", rel)
		}
		data = buf.Bytes()
		rel += corpus.XZSuffix
	}
	if err := w.write(rel, data); err != nil {
		return err
	}
	w.sums[rel] = corpus.Checksum(data)
	w.files = append(w.files, rel)
	return nil
}

func (w *layoutWriter) writeChecksums() error {
	// encoding/json sorts map keys, so the file is stable across runs.
	data, err := json.MarshalIndent(w.sums, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode checksums")
	}
	return w.write(corpus.ChecksumsPath, data)
}

func (w *layoutWriter) removeVariant(rel string, compressed bool) {
	if !compressed {
		rel += corpus.XZSuffix
	}
	path := filepath.Join(w.dir, filepath.FromSlash(rel))
	if err := os.Remove(path); err == nil {
		logging.Debug("removed stale chapter file", "path", path)
	}
}

// write replaces dir/rel through a temporary file so readers never see a
// partial record.
func (w *layoutWriter) write(rel string, data []byte) error {
	path := filepath.Join(w.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewIO("mkdir", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.NewIO("write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.NewIO("rename", path, err)
	}
	return nil
}
