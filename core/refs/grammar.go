package refs

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// pairGrammar is the participle grammar for chapter + verse expressions.
// Examples: "البقرة 255", "سورة البقرة آية 5", "البقرة:255", "2:255"
//
//nolint:govet // participle grammar tags are not standard struct tags
type pairGrammar struct {
	Numeric *numericPair `parser:"  @@"`
	Named   *namedPair   `parser:"| @@"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type numericPair struct {
	Chapter string `parser:"@Number \":\""`
	Verse   int    `parser:"@Number"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type namedPair struct {
	Chapter string `parser:"\"سورة\"? @Word \":\"?"`
	Verse   int    `parser:"( \"آية\" | \"اية\" | \"الآية\" | \"الاية\" | \"رقم\" )? @Number"`
}

// pairLexer splits utterances into words, numbers and the colon separator.
var pairLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Word", Pattern: `[^0-9:\s]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var pairParser = participle.MustBuild[pairGrammar](
	participle.Lexer(pairLexer),
	participle.Elide("Whitespace"),
)

// parsePair finds the leftmost chapter + verse expression in s. The parse is
// attempted at each word boundary; trailing words after a match are ignored.
func parsePair(s string) (chapter string, verse int, ok bool) {
	fields := strings.Fields(s)
	for i := range fields {
		parsed, err := pairParser.ParseString("", strings.Join(fields[i:], " "), participle.AllowTrailing(true))
		if err != nil {
			continue
		}
		switch {
		case parsed.Numeric != nil:
			return parsed.Numeric.Chapter, parsed.Numeric.Verse, true
		case parsed.Named != nil:
			return parsed.Named.Chapter, parsed.Named.Verse, true
		}
	}
	return "", 0, false
}
