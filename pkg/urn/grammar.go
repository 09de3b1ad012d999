package urn

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// urnLexer tokenises the XPath-like urn syntax. String values are single
// quoted and escape a quote by doubling it.
var urnLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[/\[\]@=]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type urnAST struct {
	Segments []*segmentAST `parser:"@@ ( \"/\" @@ )*"`
}

type segmentAST struct {
	Type  string     `parser:"@Ident"`
	Attrs []*attrAST `parser:"( \"[\" @@ ( \"and\" @@ )* \"]\" )?"`
}

type attrAST struct {
	Name  string `parser:"\"@\" @Ident \"=\""`
	Value string `parser:"@String"`
}

var urnParser = participle.MustBuild[urnAST](
	participle.Lexer(urnLexer),
	participle.Map(unquoteValue, "String"),
	participle.Elide("Whitespace"),
)

func unquoteValue(tok lexer.Token) (lexer.Token, error) {
	v := tok.Value
	if len(v) >= 2 {
		v = v[1 : len(v)-1]
	}
	tok.Value = strings.ReplaceAll(v, "''", "'")
	return tok, nil
}

func parseSegments(s string) ([]Segment, error) {
	ast, err := urnParser.ParseString("", s)
	if err != nil {
		return nil, err
	}
	segments := make([]Segment, 0, len(ast.Segments))
	for _, seg := range ast.Segments {
		out := Segment{Type: seg.Type}
		for _, a := range seg.Attrs {
			out.Attrs = append(out.Attrs, Attr{Name: a.Name, Value: a.Value})
		}
		segments = append(segments, out)
	}
	return segments, nil
}
