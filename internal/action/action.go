package action

import (
	"fmt"

	"aggregate-mapper/internal/model"
	"aggregate-mapper/primitive"
)

// PropertyKey identifies one property of one object.
type PropertyKey struct {
	Object   *model.Object
	Property *model.Property
}

func (k PropertyKey) String() string {
	return k.Object.String() + "." + k.Property.Name
}

// Insertion positions for AddElementAction.
const (
	// Append adds at the end of the collection.
	Append = -1
	// ByPosition inserts according to the element's position property.
	ByPosition = -2
)

// Executable is a deferred mutation. The set of implementations is closed.
type Executable interface {
	Key() PropertyKey
	// After returns the action this one must run after, or nil.
	After() Executable
	Execute() error
	fmt.Stringer

	common() *base
}

type base struct {
	key   PropertyKey
	after Executable
	// derived actions maintain the opposite side of a forward action.
	derived    bool
	replacedBy Executable
	cancelled  bool
	seq        int
}

func (b *base) Key() PropertyKey { return b.key }

func (b *base) After() Executable { return b.after }

func (b *base) common() *base { return b }

func (b *base) live() bool { return b.replacedBy == nil && !b.cancelled }

// SetterAction sets one property to one value: a scalar, an embedded or
// referenced object, or nil.
type SetterAction struct {
	base
	Value any
}

// NewSetter creates a setter for owner.p.
func NewSetter(owner *model.Object, p *model.Property, value any) *SetterAction {
	return &SetterAction{base: base{key: PropertyKey{owner, p}}, Value: value}
}

func (a *SetterAction) Execute() error {
	if a.key.Property.IsMany() {
		return fmt.Errorf("set %s: collection property", a.key)
	}

	a.key.Object.Set(a.key.Property.Name, a.Value)

	return nil
}

func (a *SetterAction) String() string {
	return fmt.Sprintf("set %s = %s", a.key, describe(a.Value))
}

// Target returns the referenced object or nil.
func (a *SetterAction) Target() *model.Object {
	o, _ := a.Value.(*model.Object)
	return o
}

// AddElementAction adds an element to a list, set or map property.
type AddElementAction struct {
	base
	Element  *model.Object
	Position int
	MapKey   string
}

// NewAddElement creates an element addition for owner.p.
func NewAddElement(owner *model.Object, p *model.Property, el *model.Object, pos int) *AddElementAction {
	return &AddElementAction{base: base{key: PropertyKey{owner, p}}, Element: el, Position: pos}
}

func (a *AddElementAction) Execute() error {
	owner, p := a.key.Object, a.key.Property
	if !p.IsMany() {
		return fmt.Errorf("add to %s: single-valued property", a.key)
	}

	if p.Multiplicity == model.MultiplicityMap {
		owner.Put(p.Name, a.MapKey, a.Element)
		return nil
	}

	pos := a.Position
	if pos == ByPosition {
		pos = insertPosition(owner.Elements(p.Name), a.Element, p.PositionProperty)
	}

	owner.Add(p.Name, a.Element, pos)

	return nil
}

func (a *AddElementAction) String() string {
	if a.MapKey != "" {
		return fmt.Sprintf("put %s[%s] = %s", a.key, a.MapKey, a.Element)
	}

	return fmt.Sprintf("add %s += %s", a.key, a.Element)
}

// RemoveElementAction removes an element from a collection property.
type RemoveElementAction struct {
	base
	Element *model.Object
	MapKey  string
}

// NewRemoveElement creates an element removal for owner.p.
func NewRemoveElement(owner *model.Object, p *model.Property, el *model.Object) *RemoveElementAction {
	return &RemoveElementAction{base: base{key: PropertyKey{owner, p}}, Element: el}
}

func (a *RemoveElementAction) Execute() error {
	if !a.key.Property.IsMany() {
		return fmt.Errorf("remove from %s: single-valued property", a.key)
	}

	if a.MapKey != "" {
		if a.key.Object.Entries(a.key.Property.Name)[a.MapKey] == a.Element {
			a.key.Object.RemoveKey(a.key.Property.Name, a.MapKey)
		}

		return nil
	}

	a.key.Object.Remove(a.key.Property.Name, a.Element)

	return nil
}

func (a *RemoveElementAction) String() string {
	return fmt.Sprintf("remove %s -= %s", a.key, a.Element)
}

// insertPosition returns the index keeping els ordered by the integer
// position property; elements without a position sort last.
func insertPosition(els []*model.Object, el *model.Object, positionProperty string) int {
	if positionProperty == "" {
		return Append
	}

	want, ok := position(el, positionProperty)
	if !ok {
		return Append
	}

	idx := 0
	for _, cur := range els {
		if cur == el {
			continue
		}

		if pos, ok := position(cur, positionProperty); ok && pos <= want {
			idx++
		}
	}

	return idx
}

func position(o *model.Object, name string) (int64, bool) {
	v, err := primitive.Convert(o.Get(name), primitive.KindInt64, primitive.CategorySafeNumber)
	if err != nil || v == nil {
		return 0, false
	}

	return v.(int64), true
}

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case *model.Object:
		return x.String()
	default:
		return primitive.Format(v)
	}
}

// DependOn makes a run after cause and returns a.
func DependOn(a, cause Executable) Executable {
	a.common().after = cause
	return a
}
