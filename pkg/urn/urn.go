// Package urn implements the hierarchical identifiers used to address server
// objects, e.g. Server[@Name='srv']/Database[@Name='db']/Table[@Name='t' and @Schema='dbo'].
//
// A Urn is a comparable value: two urns are Equal when their canonical text
// is identical. Collation-aware ordering is provided separately by Comparer.
package urn

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// parsed caches the segments of every canonical urn text seen by Parse, New
// or Segments, so accessors and comparisons never run the parser twice.
var parsed sync.Map // string -> []Segment

// Attr is one filter attribute of a segment, e.g. @Name='orders'.
type Attr struct {
	Name  string
	Value string
}

// Segment is one level of the urn hierarchy.
type Segment struct {
	Type  string
	Attrs []Attr
}

// Attribute returns the value of the named attribute.
func (s Segment) Attribute(name string) (string, bool) {
	for _, a := range s.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (s Segment) String() string {
	if len(s.Attrs) == 0 {
		return s.Type
	}
	parts := make([]string, 0, len(s.Attrs))
	for _, a := range s.Attrs {
		parts = append(parts, fmt.Sprintf("@%s='%s'", a.Name, strings.ReplaceAll(a.Value, "'", "''")))
	}
	return s.Type + "[" + strings.Join(parts, " and ") + "]"
}

// Urn identifies one server object. The zero value is the empty urn.
type Urn struct {
	s string
}

// Parse parses and canonicalises the textual form of a urn.
func Parse(s string) (Urn, error) {
	if strings.TrimSpace(s) == "" {
		return Urn{}, fmt.Errorf("invalid urn: empty string")
	}
	if _, ok := parsed.Load(s); ok {
		return Urn{s: s}, nil
	}
	segments, err := parseSegments(s)
	if err != nil {
		return Urn{}, fmt.Errorf("invalid urn %q: %w", s, err)
	}
	return New(segments...), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Urn {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// New builds a urn from its segments.
func New(segments ...Segment) Urn {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.String())
	}
	u := Urn{s: strings.Join(parts, "/")}
	if u.s != "" {
		parsed.LoadOrStore(u.s, slices.Clip(slices.Clone(segments)))
	}
	return u
}

// String returns the canonical text of the urn.
func (u Urn) String() string {
	return u.s
}

// IsZero reports whether u is the empty urn.
func (u Urn) IsZero() bool {
	return u.s == ""
}

// Equal reports whether both urns have identical canonical text.
func (u Urn) Equal(other Urn) bool {
	return u.s == other.s
}

// Segments returns the parsed segments of the urn. The returned slice is a
// copy; the Attrs of each segment are shared and must not be modified.
func (u Urn) Segments() []Segment {
	return slices.Clone(u.segments())
}

// segments returns the cached segments without copying.
func (u Urn) segments() []Segment {
	if u.s == "" {
		return nil
	}
	if cached, ok := parsed.Load(u.s); ok {
		return cached.([]Segment)
	}
	segments, err := parseSegments(u.s)
	if err != nil {
		// Unreachable for urns built by Parse or New.
		return nil
	}
	actual, _ := parsed.LoadOrStore(u.s, slices.Clip(segments))
	return actual.([]Segment)
}

// Type returns the type of the addressed object (the last segment's type).
func (u Urn) Type() string {
	segments := u.segments()
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1].Type
}

// Parent returns the urn of the containing object, or the zero urn at the top.
func (u Urn) Parent() Urn {
	segments := u.segments()
	if len(segments) <= 1 {
		return Urn{}
	}
	return New(segments[:len(segments)-1]...)
}

// Child returns a urn one level below u.
func (u Urn) Child(typ string, attrs ...Attr) Urn {
	segments := append(u.Segments(), Segment{Type: typ, Attrs: attrs})
	return New(segments...)
}

// Attribute returns the named attribute of the last segment.
func (u Urn) Attribute(name string) (string, bool) {
	segments := u.segments()
	if len(segments) == 0 {
		return "", false
	}
	return segments[len(segments)-1].Attribute(name)
}

// ServerName returns the Name attribute of the leading Server segment.
func (u Urn) ServerName() string {
	segments := u.segments()
	if len(segments) == 0 || segments[0].Type != "Server" {
		return ""
	}
	name, _ := segments[0].Attribute("Name")
	return name
}

// MarshalText implements encoding.TextMarshaler.
func (u Urn) MarshalText() ([]byte, error) {
	return []byte(u.s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Urn) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
