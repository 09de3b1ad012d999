package urn

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tableUrn = "Server[@Name='srv']/Database[@Name='sales']/Table[@Name='orders' and @Schema='dbo']"

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantErr  bool
	}{
		{name: "server only", input: "Server[@Name='srv']", wantType: "Server"},
		{name: "table", input: tableUrn, wantType: "Table"},
		{name: "whitespace tolerated", input: "Server[ @Name = 'srv' ] / Database[@Name='db']", wantType: "Database"},
		{name: "segment without filter", input: "Server[@Name='srv']/Database[@Name='db']/Role", wantType: "Role"},
		{name: "empty", input: "", wantErr: true},
		{name: "unterminated string", input: "Server[@Name='srv]", wantErr: true},
		{name: "missing attribute value", input: "Server[@Name=]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, u.Type())
		})
	}
}

func TestParse_Canonical(t *testing.T) {
	u := MustParse("Server[ @Name = 'srv' ] / Database[@Name='db']")
	assert.Equal(t, "Server[@Name='srv']/Database[@Name='db']", u.String())
	assert.True(t, u.Equal(MustParse(u.String())))
}

func TestParse_QuotedValue(t *testing.T) {
	u := MustParse("Server[@Name='srv']/Database[@Name='O''Brien']")
	name, ok := u.Attribute("Name")
	require.True(t, ok)
	assert.Equal(t, "O'Brien", name)
	assert.Equal(t, "Server[@Name='srv']/Database[@Name='O''Brien']", u.String())
}

func TestUrn_Navigation(t *testing.T) {
	u := MustParse(tableUrn)

	assert.Equal(t, "srv", u.ServerName())
	assert.Equal(t, "Server[@Name='srv']/Database[@Name='sales']", u.Parent().String())
	assert.Equal(t, "Server[@Name='srv']", u.Parent().Parent().String())
	assert.True(t, u.Parent().Parent().Parent().IsZero())

	schema, ok := u.Attribute("Schema")
	require.True(t, ok)
	assert.Equal(t, "dbo", schema)

	col := u.Child("Column", Attr{Name: "Name", Value: "id"})
	assert.Equal(t, "Column", col.Type())
	assert.True(t, col.Parent().Equal(u))

	assert.Equal(t, "", MustParse("Database[@Name='x']").ServerName())
}

func TestUrn_Text(t *testing.T) {
	var u Urn
	require.NoError(t, u.UnmarshalText([]byte(tableUrn)))
	text, err := u.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, tableUrn, string(text))

	assert.Error(t, u.UnmarshalText([]byte("not a urn [")))
}

func TestComparer_CaseInsensitive(t *testing.T) {
	c := NewComparer("Latin1_General_CI_AS")
	a := MustParse("Server[@Name='srv']/Database[@Name='Sales']")
	b := MustParse("Server[@Name='SRV']/Database[@Name='sales']")
	assert.Equal(t, 0, c.Compare(a, b))

	x := MustParse("Server[@Name='srv']/Database[@Name='alpha']")
	y := MustParse("Server[@Name='srv']/Database[@Name='Beta']")
	assert.Equal(t, -1, c.Compare(x, y))
	assert.Equal(t, 1, c.Compare(y, x))
}

func TestComparer_Binary(t *testing.T) {
	c := NewComparer("Latin1_General_BIN2")
	a := MustParse("Server[@Name='srv']/Database[@Name='Sales']")
	b := MustParse("Server[@Name='srv']/Database[@Name='sales']")
	assert.NotEqual(t, 0, c.Compare(a, b))
	assert.Equal(t, -1, c.Compare(a, b), "uppercase sorts first ordinally")
}

func TestComparer_DepthAndType(t *testing.T) {
	c := NewComparer("")
	assert.Equal(t, DefaultCollation, c.Collation())

	db := MustParse("Server[@Name='srv']/Database[@Name='db']")
	tbl := db.Child("Table", Attr{Name: "Name", Value: "t"})
	view := db.Child("View", Attr{Name: "Name", Value: "t"})

	assert.Equal(t, -1, c.Compare(db, tbl), "parent sorts before child")
	assert.Equal(t, -1, c.Compare(tbl, view), "types compare ordinally")
}

func TestCompareNullable(t *testing.T) {
	c := NewComparer("")
	a := MustParse("Server[@Name='a']")
	b := MustParse("Server[@Name='b']")

	assert.Equal(t, 0, CompareNullable(c.Compare, nil, nil))
	assert.Equal(t, 1, CompareNullable(c.Compare, nil, &a))
	assert.Equal(t, -1, CompareNullable(c.Compare, &a, nil))
	assert.Equal(t, -1, CompareNullable(c.Compare, &a, &b))

	list := []*Urn{nil, &b, &a}
	sort.SliceStable(list, func(i, j int) bool {
		return CompareNullable(c.Compare, list[i], list[j]) < 0
	})
	assert.Equal(t, []*Urn{&a, &b, nil}, list)
}

func TestSet(t *testing.T) {
	a := MustParse("Server[@Name='a']")
	b := MustParse("Server[@Name='b']")

	s := NewSet(b, a, b)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []Urn{b, a}, s.Slice())
	assert.True(t, s.Contains(a))
	assert.False(t, s.Add(a))

	var zero Set
	assert.False(t, zero.Contains(a))
	assert.True(t, zero.Add(a))
	assert.Equal(t, 1, zero.Len())
}

func TestUrn_SegmentsParsedOnce(t *testing.T) {
	u := MustParse("Server[@Name='cache']/Database[@Name='db']/Table[@Name='t' and @Schema='dbo']")

	cached, ok := parsed.Load(u.String())
	require.True(t, ok, "parsed segments are cached by canonical text")
	assert.Len(t, cached.([]Segment), 3)

	again, err := Parse(u.String())
	require.NoError(t, err)
	assert.Equal(t, u, again)

	segs := u.Segments()
	segs[2] = Segment{Type: "View"}
	_ = append(segs[:1], Segment{Type: "Login"})
	assert.Equal(t, "Table", u.Type(), "Segments returns a copy")
	assert.Equal(t, "Database", u.Parent().Type())

	child := u.Child("Column", Attr{Name: "Name", Value: "id"})
	_, ok = parsed.Load(child.String())
	assert.True(t, ok, "New caches the segments it was built from")
	assert.Equal(t, "Table", u.Type())
}

func BenchmarkComparer_Compare(b *testing.B) {
	c := NewComparer(DefaultCollation)
	x := MustParse(tableUrn)
	y := MustParse("Server[@Name='srv']/Database[@Name='sales']/Table[@Name='ORDERS' and @Schema='dbo']")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Compare(x, y)
	}
}
