package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// ObjectKind is the closed set of server object kinds schemadeps understands.
type ObjectKind int

// Object kinds. KindUnknown is the zero value and never appears in a catalog.
const (
	KindUnknown ObjectKind = iota
	KindServer
	KindDatabase
	KindSchema
	KindTable
	KindView
	KindStoredProcedure
	KindUserDefinedFunction
	KindTrigger
	KindDatabaseTrigger
	KindSynonym
	KindSequence
	KindUserDefinedDataType
	KindUserDefinedType
	KindUserDefinedTableType
	KindUserDefinedAggregate
	KindSqlAssembly
	KindExternalLanguage
	KindExternalLibrary
	KindPartitionFunction
	KindPartitionScheme
	KindPlanGuide
	KindUnresolvedEntity
	KindColumn
	KindIndex
	KindForeignKey
	KindCheck
	KindDefaultConstraint
	KindStatistic
	KindExtendedProperty
	KindFullTextIndex
	KindCredential
	KindResourcePool
	KindLogin
	KindUser
	KindRole

	kindCount
)

type kindInfo struct {
	urnType string
	// discoverable kinds are tracked by the server-side dependency service.
	discoverable bool
}

// kinds is indexed by ObjectKind. TestKindTableExhaustive guards completeness.
var kinds = [kindCount]kindInfo{
	KindUnknown:              {},
	KindServer:               {urnType: "Server"},
	KindDatabase:             {urnType: "Database"},
	KindSchema:               {urnType: "Schema"},
	KindTable:                {urnType: "Table", discoverable: true},
	KindView:                 {urnType: "View", discoverable: true},
	KindStoredProcedure:      {urnType: "StoredProcedure", discoverable: true},
	KindUserDefinedFunction:  {urnType: "UserDefinedFunction", discoverable: true},
	KindTrigger:              {urnType: "Trigger", discoverable: true},
	KindDatabaseTrigger:      {urnType: "DatabaseTrigger", discoverable: true},
	KindSynonym:              {urnType: "Synonym", discoverable: true},
	KindSequence:             {urnType: "Sequence", discoverable: true},
	KindUserDefinedDataType:  {urnType: "UserDefinedDataType", discoverable: true},
	KindUserDefinedType:      {urnType: "UserDefinedType", discoverable: true},
	KindUserDefinedTableType: {urnType: "UserDefinedTableType", discoverable: true},
	KindUserDefinedAggregate: {urnType: "UserDefinedAggregate", discoverable: true},
	KindSqlAssembly:          {urnType: "SqlAssembly", discoverable: true},
	KindExternalLanguage:     {urnType: "ExternalLanguage", discoverable: true},
	KindExternalLibrary:      {urnType: "ExternalLibrary", discoverable: true},
	KindPartitionFunction:    {urnType: "PartitionFunction", discoverable: true},
	KindPartitionScheme:      {urnType: "PartitionScheme", discoverable: true},
	KindPlanGuide:            {urnType: "PlanGuide", discoverable: true},
	KindUnresolvedEntity:     {urnType: "UnresolvedEntity", discoverable: true},
	KindColumn:               {urnType: "Column"},
	KindIndex:                {urnType: "Index"},
	KindForeignKey:           {urnType: "ForeignKey"},
	KindCheck:                {urnType: "Check"},
	KindDefaultConstraint:    {urnType: "DefaultConstraint"},
	KindStatistic:            {urnType: "Statistic"},
	KindExtendedProperty:     {urnType: "ExtendedProperty"},
	KindFullTextIndex:        {urnType: "FullTextIndex"},
	KindCredential:           {urnType: "Credential"},
	KindResourcePool:         {urnType: "ResourcePool"},
	KindLogin:                {urnType: "Login"},
	KindUser:                 {urnType: "User"},
	KindRole:                 {urnType: "Role"},
}

var kindsByType = func() map[string]ObjectKind {
	m := make(map[string]ObjectKind, kindCount)
	for k := KindUnknown + 1; k < kindCount; k++ {
		m[strings.ToLower(kinds[k].urnType)] = k
	}
	return m
}()

// ParseObjectKind maps a urn type name (case-insensitive) to its kind.
func ParseObjectKind(s string) (ObjectKind, error) {
	if k, ok := kindsByType[strings.ToLower(s)]; ok {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown object kind %q", s)
}

// KindOf returns the kind of the object addressed by u.
func KindOf(u urn.Urn) ObjectKind {
	k, _ := ParseObjectKind(u.Type())
	return k
}

// AllKinds returns every known kind in declaration order.
func AllKinds() []ObjectKind {
	out := make([]ObjectKind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// URNType returns the urn segment type for the kind.
func (k ObjectKind) URNType() string {
	if k <= KindUnknown || k >= kindCount {
		return ""
	}
	return kinds[k].urnType
}

func (k ObjectKind) String() string {
	if t := k.URNType(); t != "" {
		return t
	}
	return fmt.Sprintf("ObjectKind(%d)", int(k))
}

// IsDependencyDiscoverable reports whether the dependency service tracks
// references for objects of this kind.
func (k ObjectKind) IsDependencyDiscoverable() bool {
	if k <= KindUnknown || k >= kindCount {
		return false
	}
	return kinds[k].discoverable
}

// MarshalText implements encoding.TextMarshaler.
func (k ObjectKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ObjectKind) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KindSet is a set of object kinds.
type KindSet map[ObjectKind]struct{}

// NewKindSet returns a set holding kinds.
func NewKindSet(kinds ...ObjectKind) KindSet {
	s := make(KindSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

// ParseKindSet parses urn type names into a set.
func ParseKindSet(names []string) (KindSet, error) {
	s := make(KindSet, len(names))
	for _, name := range names {
		k, err := ParseObjectKind(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		s[k] = struct{}{}
	}
	return s, nil
}

// Contains reports whether k is in the set. A nil set contains nothing.
func (s KindSet) Contains(k ObjectKind) bool {
	_, ok := s[k]
	return ok
}

// Sorted returns the kinds in declaration order.
func (s KindSet) Sorted() []ObjectKind {
	out := make([]ObjectKind, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
