package walk

import (
	"context"
	"fmt"
	"sort"

	"aggregate-mapper/options"
)

// HookFunc is a callback attached to a property or node visit. Returning
// capture true in the PRE phase stops the walker from descending into the
// property.
type HookFunc func(ctx context.Context, f *CallFrame, s *options.Settings) (capture bool, err error)

// Hook binds a HookFunc to a visit. Zero values of Action, Stage and Tag
// match every action, stage and tag set. An empty Property binds the hook to
// the node itself; node hooks run once per visited node.
type Hook struct {
	Type     string
	Property string
	Action   options.Action
	Tag      string
	Phase    Phase
	Stage    Stage
	// Order sorts hooks sharing a key; lower runs first.
	Order int
	Fn    HookFunc
}

type hookKey struct {
	typ      string
	property string
	phase    Phase
}

// Hooks is the registry of declared hooks, resolved once when the walker is
// built. It is read-only during traversals.
type Hooks struct {
	byKey map[hookKey][]Hook
}

func NewHooks() *Hooks {
	return &Hooks{byKey: make(map[hookKey][]Hook)}
}

// Register adds h. The phase defaults to PRE.
func (h *Hooks) Register(hook Hook) error {
	if hook.Fn == nil {
		return fmt.Errorf("hook %s.%s: nil function", hook.Type, hook.Property)
	}

	if hook.Type == "" {
		return fmt.Errorf("hook on %q: type is required", hook.Property)
	}

	if hook.Phase == 0 {
		hook.Phase = PhasePre
	}

	k := hookKey{hook.Type, hook.Property, hook.Phase}
	list := append(h.byKey[k], hook)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Order < list[j].Order })
	h.byKey[k] = list

	return nil
}

// Len counts registered hooks.
func (h *Hooks) Len() int {
	n := 0
	for _, list := range h.byKey {
		n += len(list)
	}

	return n
}

// run invokes the hooks matching the frame in order. The first capture
// stops the remaining hooks.
func (h *Hooks) run(ctx context.Context, f *CallFrame, s *options.Settings) (bool, error) {
	if h == nil || len(h.byKey) == 0 {
		return false, nil
	}

	prop := ""
	typ := f.Input.Type()
	if f.Property != nil {
		prop = f.Property.Name
		typ = f.Property.Owner
	}

	for cur := typ; cur != nil; cur = cur.Super {
		for _, hook := range h.byKey[hookKey{cur.Name, prop, f.Phase}] {
			if !hook.matches(f, s) {
				continue
			}

			capture, err := hook.Fn(ctx, f, s)
			if err != nil {
				return false, fmt.Errorf("hook %s.%s (%s %s): %w", hook.Type, hook.Property, f.Stage, f.Phase, err)
			}

			if capture {
				return true, nil
			}
		}

		// property hooks are keyed by the declaring type only
		if f.Property != nil {
			break
		}
	}

	return false, nil
}

func (hook Hook) matches(f *CallFrame, s *options.Settings) bool {
	if hook.Action != options.ActionUnknown && hook.Action != s.Action {
		return false
	}

	if hook.Stage != StageAny && hook.Stage != f.Stage {
		return false
	}

	return s.HasTag(hook.Tag)
}
