package urn

import (
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultCollation is used when a server does not report one.
const DefaultCollation = "Latin1_General_CI_AS"

// collationLanguages maps collation name prefixes to collation languages.
var collationLanguages = map[string]language.Tag{
	"latin1_general": language.English,
	"sql_latin1":     language.English,
	"french":         language.French,
	"german":         language.German,
	"turkish":        language.Turkish,
	"japanese":       language.Japanese,
	"chinese":        language.Chinese,
	"korean":         language.Korean,
	"cyrillic":       language.Russian,
	"polish":         language.Polish,
	"danish":         language.Danish,
	"swedish":        language.Swedish,
}

// Comparer orders urns the way the server orders identifiers: segment types
// compare ordinally, attribute values compare under the server collation.
// A Comparer is safe for concurrent use.
type Comparer struct {
	name   string
	binary bool

	mu       sync.Mutex
	collator *collate.Collator
}

// NewComparer returns a comparer for the named server collation, e.g.
// Latin1_General_CI_AS. Binary collations (_BIN, _BIN2) compare ordinally.
func NewComparer(collation string) *Comparer {
	if collation == "" {
		collation = DefaultCollation
	}
	lower := strings.ToLower(collation)
	c := &Comparer{name: collation}
	if strings.Contains(lower, "_bin") {
		c.binary = true
		return c
	}

	tag := language.Und
	for prefix, t := range collationLanguages {
		if strings.HasPrefix(lower, prefix) {
			tag = t
			break
		}
	}

	var opts []collate.Option
	if strings.Contains(lower, "_ci") {
		opts = append(opts, collate.IgnoreCase)
	}
	if strings.Contains(lower, "_ai") {
		opts = append(opts, collate.IgnoreDiacritics)
	}
	if strings.Contains(lower, "_wi") || !strings.Contains(lower, "_ws") {
		opts = append(opts, collate.IgnoreWidth)
	}
	c.collator = collate.New(tag, opts...)
	return c
}

// Collation returns the collation name the comparer was built for.
func (c *Comparer) Collation() string {
	return c.name
}

// CompareStrings compares two identifier values under the collation.
func (c *Comparer) CompareStrings(a, b string) int {
	if c.binary {
		return strings.Compare(a, b)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collator.CompareString(a, b)
}

// Compare returns -1, 0 or 1 ordering a before, equal to, or after b.
func (c *Comparer) Compare(a, b Urn) int {
	if a.s == b.s {
		return 0
	}
	as, bs := a.segments(), b.segments()
	for i := 0; i < len(as) && i < len(bs); i++ {
		if r := c.compareSegment(as[i], bs[i]); r != 0 {
			return r
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

func (c *Comparer) compareSegment(a, b Segment) int {
	if r := strings.Compare(a.Type, b.Type); r != 0 {
		return r
	}
	for i := 0; i < len(a.Attrs) && i < len(b.Attrs); i++ {
		if r := strings.Compare(a.Attrs[i].Name, b.Attrs[i].Name); r != 0 {
			return r
		}
		if r := c.CompareStrings(a.Attrs[i].Value, b.Attrs[i].Value); r != 0 {
			return r
		}
	}
	switch {
	case len(a.Attrs) < len(b.Attrs):
		return -1
	case len(a.Attrs) > len(b.Attrs):
		return 1
	}
	return 0
}

// CompareNullable orders possibly-nil urns: nil sorts after any urn,
// otherwise cmp decides.
func CompareNullable(cmp func(a, b Urn) int, a, b *Urn) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp(*a, *b)
}
