// Package importer converts Tanzil XML into the corpus file layout read by
// core/corpus.
package importer

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/qurani-maai/quranchat/core/errors"
)

var (
	suraExpr = xpath.MustCompile("/quran/sura")
	ayaExpr  = xpath.MustCompile("aya")
)

// Document is a parsed Tanzil file: the Quran text or a translation in the
// same <quran><sura><aya/></sura></quran> shape.
type Document struct {
	Suras []Sura
}

// Sura is one chapter of a Document.
type Sura struct {
	Index string // canonical decimal id, "1".."114"
	Name  string
	Ayas  []Aya
}

// Aya is one verse. Bismillah is only set on the first verse of chapters
// that open with the invocation.
type Aya struct {
	Index     int
	Text      string
	Bismillah string
}

// Detect reports whether data looks like a Tanzil XML file.
func Detect(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("<quran")) && bytes.Contains(data, []byte("<sura"))
}

// Parse reads a Tanzil document. Ayas must be numbered 1..n within each
// sura; anything else is a *errors.MalformedDataError.
func Parse(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &errors.MalformedDataError{Resource: "tanzil", Message: "invalid XML", Err: err}
	}

	nodes := xmlquery.QuerySelectorAll(root, suraExpr)
	if len(nodes) == 0 {
		return nil, errors.NewMalformed("tanzil", "no /quran/sura elements")
	}

	doc := &Document{Suras: make([]Sura, 0, len(nodes))}
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		sura, err := parseSura(n)
		if err != nil {
			return nil, err
		}
		if seen[sura.Index] {
			return nil, errors.NewMalformed("tanzil", "duplicate sura "+sura.Index)
		}
		seen[sura.Index] = true
		doc.Suras = append(doc.Suras, sura)
	}
	return doc, nil
}

func parseSura(n *xmlquery.Node) (Sura, error) {
	raw := n.SelectAttr("index")
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || idx < 1 {
		return Sura{}, errors.NewMalformed("tanzil", fmt.Sprintf("sura has invalid index %q", raw))
	}
	sura := Sura{Index: strconv.Itoa(idx), Name: strings.TrimSpace(n.SelectAttr("name"))}
	resource := "tanzil sura " + sura.Index

	for i, a := range xmlquery.QuerySelectorAll(n, ayaExpr) {
		num, err := strconv.Atoi(strings.TrimSpace(a.SelectAttr("index")))
		if err != nil || num != i+1 {
			return Sura{}, errors.NewMalformed(resource, fmt.Sprintf("aya %d has index %q", i+1, a.SelectAttr("index")))
		}
		sura.Ayas = append(sura.Ayas, Aya{
			Index:     num,
			Text:      strings.TrimSpace(a.SelectAttr("text")),
			Bismillah: strings.TrimSpace(a.SelectAttr("bismillah")),
		})
	}
	if len(sura.Ayas) == 0 {
		return Sura{}, errors.NewMalformed(resource, "no aya elements")
	}
	return sura, nil
}
