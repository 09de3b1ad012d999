package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// ObjectSpec describes a catalog object as read by a backend.
type ObjectSpec struct {
	Urn    urn.Urn
	Kind   core.ObjectKind
	System bool
	// MinVersion is the lowest server version the object exists on.
	MinVersion string
	// Editions lists the editions the object exists on; empty means all.
	Editions []string
}

// ChildrenFunc loads the structural children of parent for action.
type ChildrenFunc func(ctx context.Context, parent urn.Urn, action core.ScriptAction) ([]core.PropagateInfo, error)

// Object is a core.Object backed by catalog metadata. Children are loaded
// lazily on the first PropagateInfo call for each action.
type Object struct {
	urn        urn.Urn
	kind       core.ObjectKind
	system     bool
	minVersion *semver.Version
	editions   []string

	children ChildrenFunc
	loaded   map[core.ScriptAction][]core.PropagateInfo
}

// NewObject builds an object from spec. children may be nil for objects
// without structural children.
func NewObject(spec ObjectSpec, children ChildrenFunc) (*Object, error) {
	obj := &Object{
		urn:      spec.Urn,
		kind:     spec.Kind,
		system:   spec.System,
		editions: spec.Editions,
		children: children,
	}
	if obj.kind == core.KindUnknown {
		obj.kind = core.KindOf(spec.Urn)
	}
	if spec.MinVersion != "" {
		v, err := semver.NewVersion(spec.MinVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid minimum version %q for %s: %w", spec.MinVersion, spec.Urn, err)
		}
		obj.minVersion = v
	}
	return obj, nil
}

// Urn implements core.Object.
func (o *Object) Urn() urn.Urn { return o.urn }

// Kind implements core.Object.
func (o *Object) Kind() core.ObjectKind { return o.kind }

// IsSystemObject implements core.Object.
func (o *Object) IsSystemObject() bool { return o.system }

// PropagateInfo implements core.Object.
func (o *Object) PropagateInfo(action core.ScriptAction) ([]core.PropagateInfo, error) {
	if o.children == nil {
		return nil, nil
	}
	if infos, ok := o.loaded[action]; ok {
		return infos, nil
	}
	infos, err := o.children(context.Background(), o.urn, action)
	if err != nil {
		return nil, err
	}
	if o.loaded == nil {
		o.loaded = make(map[core.ScriptAction][]core.PropagateInfo)
	}
	o.loaded[action] = infos
	return infos, nil
}

// SupportedOn implements core.Object.
func (o *Object) SupportedOn(info core.ServerInfo) bool {
	if o.minVersion != nil && info.Version != nil && info.Version.LessThan(o.minVersion) {
		return false
	}
	if len(o.editions) == 0 || info.Edition == "" {
		return true
	}
	for _, e := range o.editions {
		if strings.EqualFold(strings.TrimSpace(e), info.Edition) {
			return true
		}
	}
	return false
}

// Child is one structural child as read by a backend.
type Child struct {
	Object     core.Object
	TypeKey    core.ObjectKind
	WithScript bool
	Recursive  bool
}

// GroupChildren folds children into propagate infos, one per distinct
// (type key, with-script, recursive) combination, in order of first
// appearance.
func GroupChildren(children []Child) []core.PropagateInfo {
	type key struct {
		typeKey    core.ObjectKind
		withScript bool
		recursive  bool
	}
	index := make(map[key]int)
	var out []core.PropagateInfo
	for _, c := range children {
		k := key{c.TypeKey, c.WithScript, c.Recursive}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, core.PropagateInfo{TypeKey: c.TypeKey, WithScript: c.WithScript, Recursive: c.Recursive})
		}
		out[i].Objects = append(out[i].Objects, c.Object)
	}
	return out
}

// NotFound returns the error a backend reports for an unknown urn.
func NotFound(u urn.Urn) error {
	return fmt.Errorf("%s: %w", u, core.ErrNotFound)
}
