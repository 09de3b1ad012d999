package core

import (
	"fmt"
	"strings"
)

// Behavior selects what kind of script is being generated.
type Behavior int

// Script behaviors.
const (
	BehaviorCreate Behavior = iota
	BehaviorDrop
	BehaviorCreateOrAlter
	BehaviorDropAndCreate
	BehaviorAlter
)

var behaviorNames = map[Behavior]string{
	BehaviorCreate:        "create",
	BehaviorDrop:          "drop",
	BehaviorCreateOrAlter: "create-or-alter",
	BehaviorDropAndCreate: "drop-and-create",
	BehaviorAlter:         "alter",
}

// ParseBehavior parses a behavior name. Underscores and case are ignored.
func ParseBehavior(s string) (Behavior, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for b, name := range behaviorNames {
		if name == norm || strings.ReplaceAll(name, "-", "") == norm {
			return b, nil
		}
	}
	return BehaviorCreate, fmt.Errorf("unknown behavior %q (expected create, drop, create-or-alter, drop-and-create or alter)", s)
}

func (b Behavior) String() string {
	if name, ok := behaviorNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Behavior(%d)", int(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b Behavior) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Behavior) UnmarshalText(text []byte) error {
	parsed, err := ParseBehavior(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// DiscoverAncestors reports the dependency direction the behavior needs:
// true walks what the roots depend on (create order), false walks what
// depends on the roots (drop order).
func (b Behavior) DiscoverAncestors() bool {
	return b != BehaviorDrop
}

// NeedsChildren reports whether structural children must be expanded ahead
// of scripting. Drop and Alter script the object alone.
func (b Behavior) NeedsChildren() bool {
	switch b {
	case BehaviorCreate, BehaviorCreateOrAlter, BehaviorDropAndCreate:
		return true
	default:
		return false
	}
}

// ScriptAction is the action used to query propagate info.
func (b Behavior) ScriptAction() ScriptAction {
	switch b {
	case BehaviorDrop:
		return ActionDrop
	case BehaviorAlter:
		return ActionAlter
	case BehaviorCreateOrAlter:
		return ActionCreateOrAlter
	default:
		return ActionCreate
	}
}

// ScriptAction is a single DDL action on an object.
type ScriptAction int

// Script actions.
const (
	ActionCreate ScriptAction = 1 << iota
	ActionDrop
	ActionAlter
	ActionCreateOrAlter
)

// ActionAll matches every script action.
const ActionAll = ActionCreate | ActionDrop | ActionAlter | ActionCreateOrAlter

func (a ScriptAction) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionDrop:
		return "drop"
	case ActionAlter:
		return "alter"
	case ActionCreateOrAlter:
		return "create-or-alter"
	}
	return fmt.Sprintf("ScriptAction(%d)", int(a))
}

// Has reports whether mask a includes action.
func (a ScriptAction) Has(action ScriptAction) bool {
	return a&action != 0
}

// ParseScriptAction parses a single action name as printed by String.
func ParseScriptAction(s string) (ScriptAction, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, a := range []ScriptAction{ActionCreate, ActionDrop, ActionAlter, ActionCreateOrAlter} {
		if a.String() == norm {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown script action %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ScriptAction) UnmarshalText(text []byte) error {
	parsed, err := ParseScriptAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
