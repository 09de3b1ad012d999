package adapter

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objUrn(typ, name string) urn.Urn {
	return urn.MustParse("Server[@Name='srv']/Database[@Name='db']").
		Child(typ, urn.Attr{Name: "Name", Value: name}, urn.Attr{Name: "Schema", Value: "dbo"})
}

func TestBuildChain_SharedPointers(t *testing.T) {
	t1, t2 := objUrn("Table", "t1"), objUrn("Table", "t2")
	d1 := objUrn("UserDefinedDataType", "d1")

	edges := map[urn.Urn][]Edge{
		t1: {{To: d1, SchemaBound: true}},
		t2: {{To: d1}, {To: d1}},
	}
	chain, err := BuildChain([]urn.Urn{t1, t2}, func(u urn.Urn) ([]Edge, error) {
		return edges[u], nil
	})
	require.NoError(t, err)
	require.Len(t, chain, 3)

	assert.Equal(t, []urn.Urn{t1, t2, d1}, []urn.Urn{chain[0].Urn, chain[1].Urn, chain[2].Urn})
	require.Len(t, chain[1].Links, 1, "duplicate edges collapse")
	assert.Same(t, chain[2], chain[0].Links[0])
	assert.Same(t, chain[2], chain[1].Links[0])
	assert.True(t, chain[2].IsSchemaBound)
	assert.False(t, chain[0].IsSchemaBound)
}

func TestBuildChain_Cycle(t *testing.T) {
	a, b := objUrn("View", "a"), objUrn("View", "b")
	edges := map[urn.Urn][]Edge{a: {{To: b}}, b: {{To: a}}}

	chain, err := BuildChain([]urn.Urn{a}, func(u urn.Urn) ([]Edge, error) { return edges[u], nil })
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}

func TestBuildChain_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := BuildChain([]urn.Urn{objUrn("View", "a")}, func(urn.Urn) ([]Edge, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestValidateDiscoverable(t *testing.T) {
	require.NoError(t, ValidateDiscoverable([]urn.Urn{objUrn("Table", "t"), objUrn("View", "v")}))

	err := ValidateDiscoverable([]urn.Urn{objUrn("Table", "t"), objUrn("Column", "c")})
	var unsupported *core.UnsupportedObjectTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, core.KindColumn, unsupported.Kind)
}
