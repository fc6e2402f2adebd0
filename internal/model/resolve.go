package model

import (
	"errors"
	"fmt"
	"strings"

	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/primitive"
)

// Resolve links supertypes, association targets and opposite properties,
// flattens inherited properties and validates the model. It is idempotent.
func (m *Model) Resolve() error {
	if m.resolved {
		return nil
	}

	var errs []error

	for _, t := range m.Types() {
		if t.SuperName == "" {
			continue
		}

		super, ok := m.types[t.SuperName]
		if !ok {
			errs = append(errs, fmt.Errorf("type %s: supertype %s not found", t.Name, t.SuperName))
			continue
		}

		t.Super = super
		super.Subtypes = append(super.Subtypes, t)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	done := make(map[*Type]bool)
	for _, t := range m.Types() {
		if err := m.flatten(t, done, map[*Type]bool{}); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, t := range m.Types() {
		for _, p := range t.own {
			if err := m.resolveProperty(p); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, t := range m.Types() {
		for _, p := range t.own {
			if err := m.resolveOpposite(p); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, t := range m.Types() {
		if err := validateKeys(t); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	m.resolved = true

	return nil
}

// flatten builds Properties as inherited followed by own ones.
func (m *Model) flatten(t *Type, done, path map[*Type]bool) error {
	if done[t] {
		return nil
	}

	if path[t] {
		return fmt.Errorf("type %s: inheritance cycle", t.Name)
	}

	path[t] = true

	var props []*Property
	if t.Super != nil {
		if err := m.flatten(t.Super, done, path); err != nil {
			return err
		}

		props = append(props, t.Super.Properties...)
	}

	t.props = make(map[string]*Property, len(props)+len(t.own))
	for _, p := range props {
		t.props[p.Name] = p
	}

	for _, p := range t.own {
		if p.Name == "" {
			return fmt.Errorf("type %s: property without name", t.Name)
		}

		if strings.HasPrefix(p.Name, ReservedPrefix) {
			return fmt.Errorf("type %s: property %s uses reserved prefix %q", t.Name, p.Name, ReservedPrefix)
		}

		if _, dup := t.props[p.Name]; dup {
			return fmt.Errorf("type %s: duplicate property %s", t.Name, p.Name)
		}

		p.Owner = t
		t.props[p.Name] = p
		props = append(props, p)
	}

	for i, p := range props {
		if p.Owner == t {
			p.Index = i
		}
	}

	t.Properties = props
	done[t] = true

	return nil
}

func (m *Model) resolveProperty(p *Property) error {
	if p.TargetName == "" {
		if p.Association != AssociationDataType {
			return fmt.Errorf("%s: %s association without target", p.Path(), p.Association)
		}

		if !p.Kind.IsValid() {
			return fmt.Errorf("%s: data-type property without kind", p.Path())
		}

		if p.IsMany() {
			return fmt.Errorf("%s: data-type collections are not supported", p.Path())
		}

		return nil
	}

	target, ok := m.types[p.TargetName]
	if !ok {
		return fmt.Errorf("%s: target type %s not found", p.Path(), p.TargetName)
	}

	p.Target = target

	if p.Association == AssociationDataType {
		p.Association = inferAssociation(p)
	}

	switch p.Association {
	case AssociationEmbedded:
		if !target.Embedded {
			return fmt.Errorf("%s: embedded target %s is an entity", p.Path(), target.Name)
		}
		p.Cascade = true
	case AssociationOneToOne, AssociationManyToOne:
		if p.IsMany() {
			return fmt.Errorf("%s: %s must be single-valued", p.Path(), p.Association)
		}
	case AssociationOneToMany, AssociationManyToMany:
		if !p.IsMany() {
			return fmt.Errorf("%s: %s must be multi-valued", p.Path(), p.Association)
		}
	}

	if p.Association != AssociationEmbedded && target.Embedded {
		return fmt.Errorf("%s: %s target %s is embedded", p.Path(), p.Association, target.Name)
	}

	if p.Identifier || p.NaturalKey && p.IsMany() {
		return fmt.Errorf("%s: association cannot be identifier or multi-valued natural key", p.Path())
	}

	if p.PositionProperty != "" {
		pos, ok := target.Lookup(p.PositionProperty)
		if !ok || !pos.IsDataType() || !pos.Kind.IsInteger() {
			return fmt.Errorf("%s: position property %s.%s must be an integer", p.Path(), target.Name, p.PositionProperty)
		}

		if p.Multiplicity != MultiplicityList {
			return fmt.Errorf("%s: position property requires a list", p.Path())
		}
	}

	return nil
}

func inferAssociation(p *Property) Association {
	switch {
	case p.Target.Embedded:
		return AssociationEmbedded
	case p.IsMany():
		return AssociationOneToMany
	default:
		return AssociationManyToOne
	}
}

var oppositeKinds = map[Association]Association{
	AssociationOneToOne:   AssociationOneToOne,
	AssociationManyToOne:  AssociationOneToMany,
	AssociationOneToMany:  AssociationManyToOne,
	AssociationManyToMany: AssociationManyToMany,
}

func (m *Model) resolveOpposite(p *Property) error {
	if p.OppositeName == "" {
		return nil
	}

	if p.Target == nil {
		return fmt.Errorf("%s: opposite %s on a data-type property", p.Path(), p.OppositeName)
	}

	opp, err := p.Target.Property(p.OppositeName)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Path(), err)
	}

	if p.Multiplicity == MultiplicityMap || opp.Multiplicity == MultiplicityMap {
		return fmt.Errorf("%s: map properties cannot be bidirectional", p.Path())
	}

	if opp.OppositeName != "" && opp.OppositeName != p.Name {
		return fmt.Errorf("%s: opposite %s points back to %s", p.Path(), opp.Path(), opp.OppositeName)
	}

	if want, ok := oppositeKinds[p.Association]; !ok || opp.Association != want {
		return fmt.Errorf("%s: %s cannot be opposite of %s %s", p.Path(), p.Association, opp.Association, opp.Path())
	}

	if opp.Target == nil || !p.Owner.IsA(opp.Target) {
		return fmt.Errorf("%s: opposite %s does not target %s", p.Path(), opp.Path(), p.Owner.Name)
	}

	p.Opposite = opp
	opp.Opposite = p
	opp.OppositeName = p.Name

	return nil
}

func validateKeys(t *Type) error {
	ids := 0
	for _, p := range t.Properties {
		if p.Identifier {
			ids++
			if !p.IsDataType() || p.IsMany() {
				return fmt.Errorf("type %s: identifier %s must be a single data-type property", t.Name, p.Name)
			}
		}
	}

	if ids > 1 {
		return fmt.Errorf("type %s: more than one identifier", t.Name)
	}

	if t.Embedded && ids > 0 {
		return fmt.Errorf("type %s: embedded types have no identifier", t.Name)
	}

	return nil
}

// NarrowFunc picks the concrete type for a record assigned to a polymorphic
// property. p is nil when narrowing a root record.
type NarrowFunc func(base *Type, p *Property, rec Record) (*Type, error)

// TypeField is the record field naming the concrete type explicitly.
const TypeField = ReservedPrefix + "type"

// RegisterNarrowing installs a custom strategy for records of base type.
func (m *Model) RegisterNarrowing(base string, fn NarrowFunc) {
	m.narrowers[base] = fn
}

// Narrow selects the concrete subtype of base to instantiate for rec. The
// explicit TypeField wins, then a registered strategy, then a structural
// match on the record keys. Failing all of that it returns a MultipleClassError.
func (m *Model) Narrow(base *Type, p *Property, rec Record) (*Type, error) {
	if name, ok := rec[TypeField].(string); ok && name != "" {
		t, err := m.Type(name)
		if err != nil {
			return nil, err
		}

		if !t.IsA(base) || t.Abstract {
			return nil, fmt.Errorf("%s is not a concrete subtype of %s", name, base.Name)
		}

		return t, nil
	}

	concrete := base.Concrete()
	if len(concrete) == 1 {
		return concrete[0], nil
	}

	for cur := base; cur != nil; cur = cur.Super {
		if fn, ok := m.narrowers[cur.Name]; ok {
			return fn(base, p, rec)
		}
	}

	var fitting []*Type
	for _, t := range concrete {
		if coversRecord(t, rec) {
			fitting = append(fitting, t)
		}
	}

	if len(fitting) == 1 {
		return fitting[0], nil
	}

	candidates := make([]string, 0, len(concrete))
	for _, t := range concrete {
		candidates = append(candidates, t.Name)
	}

	prop := ""
	if p != nil {
		prop = p.Name
	}

	return nil, &diagnostic.MultipleClassError{Type: base.Name, Property: prop, Candidates: candidates}
}

func coversRecord(t *Type, rec Record) bool {
	for key := range rec {
		if strings.HasPrefix(key, ReservedPrefix) {
			continue
		}

		if _, ok := t.Lookup(key); !ok {
			return false
		}
	}

	return true
}

// DataKind returns the scalar kind of a data-type property, or 0.
func (p *Property) DataKind() primitive.KindEnum {
	if p.IsDataType() {
		return p.Kind
	}

	return 0
}
