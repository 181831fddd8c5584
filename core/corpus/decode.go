package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/quran"
)

// manifestRecord is one entry of allSurahsMeta.json. Index may be a string
// ("2", "002") or a number.
type manifestRecord struct {
	Index       json.RawMessage `json:"index"`
	Name        string          `json:"name"`
	NameSimple  string          `json:"name_simple"`
	EnglishName string          `json:"englishName"`
	Variants    []string        `json:"variants"`
	Verses      int             `json:"verses"`
}

type chapterRecord struct {
	Index json.RawMessage   `json:"index"`
	Name  string            `json:"name"`
	Verse map[string]string `json:"verse"`
}

type commentaryRecord struct {
	Text string `json:"text"`
}

// DecodeManifest parses and validates a chapter table. Any violation is a
// *errors.MalformedDataError.
func DecodeManifest(data []byte) ([]quran.ChapterMeta, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.NewMalformed("manifest", "expected a JSON array")
	}
	var records []manifestRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &errors.MalformedDataError{Resource: "manifest", Message: "invalid JSON", Err: err}
	}
	if len(records) == 0 {
		return nil, errors.NewMalformed("manifest", "empty chapter table")
	}
	if len(records) != quran.ChapterCount {
		return nil, errors.NewMalformed("manifest", fmt.Sprintf("expected %d chapters, got %d", quran.ChapterCount, len(records)))
	}

	table := make([]quran.ChapterMeta, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		id, err := parseID(rec.Index)
		if err != nil {
			return nil, &errors.MalformedDataError{Resource: "manifest", Message: fmt.Sprintf("entry %d", i), Err: err}
		}
		if seen[id] {
			return nil, errors.NewMalformed("manifest", "duplicate chapter id "+id)
		}
		seen[id] = true
		if strings.TrimSpace(rec.Name) == "" {
			return nil, errors.NewMalformed("manifest", "chapter "+id+" has no name")
		}
		if rec.Verses < 1 {
			return nil, errors.NewMalformed("manifest", fmt.Sprintf("chapter %s has verse count %d", id, rec.Verses))
		}

		meta := quran.ChapterMeta{ID: id, CanonicalName: rec.Name, VerseCount: rec.Verses}
		for _, v := range append([]string{rec.NameSimple, rec.EnglishName}, rec.Variants...) {
			if v = strings.TrimSpace(v); v != "" {
				meta.NameVariants = append(meta.NameVariants, v)
			}
		}
		table = append(table, meta)
	}
	return table, nil
}

// DecodeChapter parses a chapter record and checks it against meta.
// Keys must be verse_<n> with 0 <= n <= VerseCount; verse_0 is the
// invocation slot.
func DecodeChapter(meta quran.ChapterMeta, data []byte) (*quran.ChapterText, error) {
	resource := "chapter " + meta.ID
	var rec chapterRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &errors.MalformedDataError{Resource: resource, Message: "invalid JSON", Err: err}
	}
	if rec.Verse == nil {
		return nil, errors.NewMalformed(resource, "missing verse object")
	}
	if len(rec.Index) > 0 {
		id, err := parseID(rec.Index)
		if err != nil || id != meta.ID {
			return nil, errors.NewMalformed(resource, "index does not match requested chapter")
		}
	}

	text := &quran.ChapterText{ChapterID: meta.ID, Verses: make(map[int]string, len(rec.Verse))}
	for key, v := range rec.Verse {
		n, ok := verseKey(key)
		if !ok {
			return nil, errors.NewMalformed(resource, fmt.Sprintf("unexpected key %q", key))
		}
		if n > meta.VerseCount {
			return nil, errors.NewMalformed(resource, fmt.Sprintf("verse %d beyond count %d", n, meta.VerseCount))
		}
		if n == 0 {
			text.Invocation = v
			continue
		}
		text.Verses[n] = v
	}
	return text, nil
}

// DecodeCommentary returns the commentary text. Blank text counts as absent.
func DecodeCommentary(data []byte) (string, bool, error) {
	var rec commentaryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false, &errors.MalformedDataError{Resource: "commentary", Message: "invalid JSON", Err: err}
	}
	if strings.TrimSpace(rec.Text) == "" {
		return "", false, nil
	}
	return rec.Text, true, nil
}

func verseKey(key string) (int, bool) {
	digits, ok := strings.CutPrefix(key, "verse_")
	if !ok || digits == "" || strings.Trim(digits, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	return n, err == nil
}

// parseID accepts "7", "007" or 7 and returns the canonical "7".
func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("missing index")
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > quran.ChapterCount {
		return "", fmt.Errorf("invalid chapter index %s", string(raw))
	}
	return strconv.Itoa(n), nil
}
