package corpus

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/qurani-maai/quranchat/core/errors"
)

// Corpus layout, shared by every Source and by the importer.
const (
	ManifestPath  = "allSurahsMeta.json"
	ChecksumsPath = "checksums.json"

	// XZSuffix marks an xz-compressed variant of a JSON resource.
	XZSuffix = ".xz"
)

// ChapterPath returns the layout path of a chapter record.
func ChapterPath(id string) string {
	return "surah/surah_" + id + ".json"
}

// CommentaryPath returns the layout path of a commentary record.
func CommentaryPath(id string, verse int) string {
	return "tafseer/" + id + "/" + strconv.Itoa(verse) + ".json"
}

// Source supplies raw corpus records. Implementations return a
// *errors.NotFoundError when a resource does not exist and a
// *errors.FetchError for any other retrieval failure.
type Source interface {
	Manifest(ctx context.Context) ([]byte, error)
	Chapter(ctx context.Context, id string) ([]byte, error)
	Commentary(ctx context.Context, id string, verse int) ([]byte, error)
}

// Checksum returns the hex BLAKE3-256 digest used in checksums.json.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileSource reads the corpus layout from a file system. A chapter may be
// stored as plain JSON or as JSON.xz. When checksums.json is present every
// file it lists is verified on read.
type FileSource struct {
	fsys fs.FS

	sumsOnce sync.Once
	sums     map[string]string
	sumsErr  error
}

// NewFileSource creates a source over fsys, typically os.DirFS(dir).
func NewFileSource(fsys fs.FS) *FileSource {
	return &FileSource{fsys: fsys}
}

// Manifest implements Source.
func (s *FileSource) Manifest(ctx context.Context) ([]byte, error) {
	return s.read(ctx, ManifestPath, "manifest", "")
}

// Chapter implements Source.
func (s *FileSource) Chapter(ctx context.Context, id string) ([]byte, error) {
	return s.read(ctx, ChapterPath(id), "chapter", id)
}

// Commentary implements Source.
func (s *FileSource) Commentary(ctx context.Context, id string, verse int) ([]byte, error) {
	return s.read(ctx, CommentaryPath(id, verse), "commentary", fmt.Sprintf("%s:%d", id, verse))
}

func (s *FileSource) read(ctx context.Context, name, resource, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewFetch(resource, id, 0, err)
	}

	stored := name
	raw, err := fs.ReadFile(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		stored = name + XZSuffix
		raw, err = fs.ReadFile(s.fsys, stored)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.NewNotFound(resource, id)
	}
	if err != nil {
		return nil, errors.NewFetch(resource, id, 0, errors.NewIO("read", name, err))
	}

	if err := s.verify(stored, raw); err != nil {
		return nil, err
	}

	if stored == name {
		return raw, nil
	}
	r, err := xz.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &errors.MalformedDataError{Resource: stored, Message: "bad xz stream", Err: err}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &errors.MalformedDataError{Resource: stored, Message: "bad xz stream", Err: err}
	}
	return data, nil
}

func (s *FileSource) verify(name string, raw []byte) error {
	s.sumsOnce.Do(func() {
		data, err := fs.ReadFile(s.fsys, ChecksumsPath)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			s.sumsErr = errors.NewFetch("checksums", "", 0, err)
			return
		}
		if err := json.Unmarshal(data, &s.sums); err != nil {
			s.sumsErr = &errors.MalformedDataError{Resource: ChecksumsPath, Message: "expected an object of path to digest", Err: err}
		}
	})
	if s.sumsErr != nil {
		return s.sumsErr
	}
	want, ok := s.sums[name]
	if !ok {
		return nil
	}
	if got := Checksum(raw); !strings.EqualFold(got, want) {
		return errors.NewMalformed(name, fmt.Sprintf("checksum mismatch: got %s, want %s", got, want))
	}
	return nil
}

// maxRecordSize bounds a single HTTP response body.
const maxRecordSize = 16 << 20

// HTTPSource fetches the corpus layout relative to a base URL.
type HTTPSource struct {
	base      string
	client    *http.Client
	userAgent string
}

// NewHTTPSource creates a source rooted at baseURL. A nil client gets a
// 30 second timeout.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, errors.NewValidation("corpus.url", fmt.Sprintf("unsupported URL scheme: %s", baseURL))
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{
		base:      strings.TrimSuffix(baseURL, "/"),
		client:    client,
		userAgent: "quranchat/1.0",
	}, nil
}

// Manifest implements Source.
func (s *HTTPSource) Manifest(ctx context.Context) ([]byte, error) {
	return s.get(ctx, ManifestPath, "manifest", "")
}

// Chapter implements Source.
func (s *HTTPSource) Chapter(ctx context.Context, id string) ([]byte, error) {
	return s.get(ctx, ChapterPath(id), "chapter", id)
}

// Commentary implements Source.
func (s *HTTPSource) Commentary(ctx context.Context, id string, verse int) ([]byte, error) {
	return s.get(ctx, CommentaryPath(id, verse), "commentary", fmt.Sprintf("%s:%d", id, verse))
}

func (s *HTTPSource) get(ctx context.Context, rel, resource, id string) ([]byte, error) {
	url := s.base + "/" + path.Clean(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewFetch(resource, id, 0, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewFetch(resource, id, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewNotFound(resource, id)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewFetch(resource, id, resp.StatusCode, nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRecordSize+1))
	if err != nil {
		return nil, errors.NewFetch(resource, id, resp.StatusCode, err)
	}
	if len(data) > maxRecordSize {
		return nil, errors.NewMalformed(resource+" "+id, "response exceeds size limit")
	}
	return data, nil
}
