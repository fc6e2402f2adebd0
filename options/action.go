package options

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is the operation a traversal performs.
type Action int

const (
	ActionUnknown Action = iota
	ActionCreate
	ActionUpdate
	ActionMerge
	ActionClone
	ActionRead
	ActionMigrate
	ActionToDomain
	ActionToExternal
	ActionLoad
	ActionQuery
)

var actionNames = map[Action]string{
	ActionCreate:     "CREATE",
	ActionUpdate:     "UPDATE",
	ActionMerge:      "MERGE",
	ActionClone:      "CLONE",
	ActionRead:       "READ",
	ActionMigrate:    "MIGRATE",
	ActionToDomain:   "TO_DOMAIN",
	ActionToExternal: "TO_EXTERNAL",
	ActionLoad:       "LOAD",
	ActionQuery:      "QUERY",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}

	return "UNKNOWN"
}

// ParseAction parses an action name, case-insensitively. Dashes are accepted in place of underscores.
func ParseAction(s string) (Action, error) {
	norm := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
	for a, name := range actionNames {
		if name == norm {
			return a, nil
		}
	}

	return ActionUnknown, fmt.Errorf("unknown action %q", s)
}

// Mutating reports whether the action writes to its output graph. Read-only
// properties are skipped for mutating actions.
func (a Action) Mutating() bool {
	switch a {
	case ActionRead, ActionLoad, ActionToExternal, ActionQuery:
		return false
	default:
		return true
	}
}

func (a Action) MarshalYAML() (any, error) {
	return a.String(), nil
}

// UnmarshalYAML accepts the action name as a scalar.
func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}

	return a.UnmarshalText([]byte(name))
}

func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}

	*a = parsed
	return nil
}
