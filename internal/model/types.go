package model

import (
	"fmt"
	"strings"

	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/match"
	"aggregate-mapper/primitive"
)

// ReservedPrefix starts every field name reserved for side channels in
// records; properties must not use it.
const ReservedPrefix = "$"

// Multiplicity of a property.
type Multiplicity int

const (
	MultiplicitySingle Multiplicity = iota
	MultiplicityList
	MultiplicitySet
	MultiplicityMap
)

// String returns a human-readable representation of the Multiplicity.
func (m Multiplicity) String() string {
	switch m {
	case MultiplicitySingle:
		return "single"
	case MultiplicityList:
		return "list"
	case MultiplicitySet:
		return "set"
	case MultiplicityMap:
		return "map"
	default:
		return "unknown"
	}
}

// Association kind of a property.
type Association int

const (
	AssociationDataType Association = iota
	AssociationEmbedded
	AssociationOneToOne
	AssociationManyToOne
	AssociationOneToMany
	AssociationManyToMany
)

var associationNames = map[Association]string{
	AssociationDataType:   "data-type",
	AssociationEmbedded:   "embedded",
	AssociationOneToOne:   "one-to-one",
	AssociationManyToOne:  "many-to-one",
	AssociationOneToMany:  "one-to-many",
	AssociationManyToMany: "many-to-many",
}

// String returns a human-readable representation of the Association.
func (a Association) String() string {
	if name, ok := associationNames[a]; ok {
		return name
	}

	return "unknown"
}

// ParseAssociation parses names like "many-to-one" or "many_to_one".
func ParseAssociation(s string) (Association, bool) {
	norm := strings.ReplaceAll(strings.ToLower(s), "_", "-")
	for a, name := range associationNames {
		if name == norm {
			return a, true
		}
	}

	return 0, false
}

// Property describes one attribute of a type. It is immutable once the model
// is resolved and shared by every traversal.
type Property struct {
	Name         string
	Owner        *Type
	Kind         primitive.KindEnum // for data-type properties
	TargetName   string
	Target       *Type // for associations
	Multiplicity Multiplicity
	Association  Association
	OppositeName string
	Opposite     *Property
	Identifier   bool
	NaturalKey   bool
	ReadOnly     bool
	Generated    bool
	// Cascade marks the association as part of the owning aggregate.
	Cascade bool
	// PositionProperty names the int property on the element that holds its
	// position in an order-sensitive opposite collection.
	PositionProperty string
	// Index is the position of the property in its type's metadata order.
	Index int
}

func (p *Property) IsDataType() bool { return p.Association == AssociationDataType }

func (p *Property) IsEmbedded() bool { return p.Association == AssociationEmbedded }

// IsMany reports whether the property holds a list, set or map.
func (p *Property) IsMany() bool { return p.Multiplicity != MultiplicitySingle }

func (p *Property) IsBidirectional() bool { return p.Opposite != nil }

// Cascadable reports whether values of this property belong to the owner's aggregate.
func (p *Property) Cascadable() bool { return p.Cascade || p.IsEmbedded() }

// HoldsForeignKey reports whether flat records of the owner store the
// identifiers of this association's targets. Many-to-one always does; a
// one-to-many only when it has no opposite, since the many-to-one side holds
// the key otherwise. Of a bidirectional one-to-one or many-to-many pair
// exactly one side does: the side whose opposite cascades, otherwise the side
// of the type named first.
func (p *Property) HoldsForeignKey() bool {
	switch p.Association {
	case AssociationManyToOne:
		return true
	case AssociationOneToMany:
		return p.Opposite == nil
	case AssociationOneToOne, AssociationManyToMany:
		opp := p.Opposite
		if opp == nil {
			return true
		}

		if p.Cascade != opp.Cascade {
			return opp.Cascade
		}

		if p.Owner.Name != opp.Owner.Name {
			return p.Owner.Name < opp.Owner.Name
		}

		return p.Name < opp.Name
	default:
		return false
	}
}

// Path returns "Owner.name".
func (p *Property) Path() string {
	if p.Owner == nil {
		return p.Name
	}

	return p.Owner.Name + "." + p.Name
}

func (p *Property) String() string { return p.Path() }

// Type is an entity or embedded type.
type Type struct {
	Name      string
	Abstract  bool
	Embedded  bool
	SuperName string
	Super     *Type
	Subtypes  []*Type
	// Properties holds inherited properties followed by own ones, in metadata order.
	Properties []*Property

	own   []*Property
	props map[string]*Property
}

// NewType creates a type with its own properties.
func NewType(name string, props ...*Property) *Type {
	t := &Type{Name: name}
	for _, p := range props {
		t.AddProperty(p)
	}

	return t
}

// AddProperty appends an own property. Only valid before Resolve.
func (t *Type) AddProperty(p *Property) {
	p.Owner = t
	t.own = append(t.own, p)
}

// Lookup returns the property by name.
func (t *Type) Lookup(name string) (*Property, bool) {
	p, ok := t.props[name]
	return p, ok
}

// Property returns the property by name or a PropertyNotFoundError with suggestions.
func (t *Type) Property(name string) (*Property, error) {
	if p, ok := t.props[name]; ok {
		return p, nil
	}

	names := make([]string, 0, len(t.Properties))
	for _, p := range t.Properties {
		names = append(names, p.Name)
	}

	return nil, &diagnostic.PropertyNotFoundError{
		Type:        t.Name,
		Property:    name,
		Suggestions: match.Suggest(name, names, 3),
	}
}

// Identifier returns the identifier property or nil.
func (t *Type) Identifier() *Property {
	for _, p := range t.Properties {
		if p.Identifier {
			return p
		}
	}

	return nil
}

// NaturalKey returns the natural-key properties in metadata order.
func (t *Type) NaturalKey() []*Property {
	var res []*Property
	for _, p := range t.Properties {
		if p.NaturalKey {
			res = append(res, p)
		}
	}

	return res
}

// Ordered returns the properties with natural-key properties first, each
// group keeping metadata order.
func (t *Type) Ordered() []*Property {
	res := make([]*Property, 0, len(t.Properties))
	for _, p := range t.Properties {
		if p.NaturalKey {
			res = append(res, p)
		}
	}

	for _, p := range t.Properties {
		if !p.NaturalKey {
			res = append(res, p)
		}
	}

	return res
}

// Root returns the top of the type's hierarchy.
func (t *Type) Root() *Type {
	for t.Super != nil {
		t = t.Super
	}

	return t
}

// IsA reports whether t is other or one of its subtypes.
func (t *Type) IsA(other *Type) bool {
	for cur := t; cur != nil; cur = cur.Super {
		if cur == other {
			return true
		}
	}

	return false
}

// Concrete returns t and its transitive subtypes that are not abstract.
func (t *Type) Concrete() []*Type {
	var res []*Type
	var walk func(*Type)
	walk = func(cur *Type) {
		if !cur.Abstract {
			res = append(res, cur)
		}
		for _, sub := range cur.Subtypes {
			walk(sub)
		}
	}
	walk(t)

	return res
}

// IsEntity reports whether instances have their own identity.
func (t *Type) IsEntity() bool { return !t.Embedded }

func (t *Type) String() string { return t.Name }

// Model is the registry of all types.
type Model struct {
	types     map[string]*Type
	order     []string
	narrowers map[string]NarrowFunc
	resolved  bool
}

// New creates an empty model.
func New() *Model {
	return &Model{
		types:     make(map[string]*Type),
		narrowers: make(map[string]NarrowFunc),
	}
}

// AddType registers a type. Only valid before Resolve.
func (m *Model) AddType(t *Type) error {
	if m.resolved {
		return fmt.Errorf("model is resolved, cannot add type %s", t.Name)
	}

	if _, ok := m.types[t.Name]; ok {
		return fmt.Errorf("duplicate type %s", t.Name)
	}

	m.types[t.Name] = t
	m.order = append(m.order, t.Name)

	return nil
}

// MustAddTypes registers types and panics on error. Intended for fixtures.
func (m *Model) MustAddTypes(types ...*Type) *Model {
	for _, t := range types {
		if err := m.AddType(t); err != nil {
			panic(err)
		}
	}

	return m
}

// Type returns a type by name.
func (m *Model) Type(name string) (*Type, error) {
	t, ok := m.types[name]
	if !ok {
		return nil, fmt.Errorf("type %s not found", name)
	}

	return t, nil
}

// Types returns all types in registration order.
func (m *Model) Types() []*Type {
	res := make([]*Type, 0, len(m.order))
	for _, name := range m.order {
		res = append(res, m.types[name])
	}

	return res
}

// Entities returns the concrete entity types in registration order.
func (m *Model) Entities() []*Type {
	var res []*Type
	for _, t := range m.Types() {
		if t.IsEntity() && !t.Abstract {
			res = append(res, t)
		}
	}

	return res
}

// Resolved reports whether Resolve succeeded.
func (m *Model) Resolved() bool { return m.resolved }
