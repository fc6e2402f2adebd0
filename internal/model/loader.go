package model

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"aggregate-mapper/primitive"
)

// LoadFile loads, builds and resolves a YAML model file.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a resolved Model.
func Parse(data []byte) (*Model, error) {
	var mf ModelFile

	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse model YAML: %w", err)
	}

	applyDefaults(&mf)

	m, err := Build(&mf)
	if err != nil {
		return nil, err
	}

	if err := m.Resolve(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}

	return m, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(mf *ModelFile) {
	if mf.Version == "" {
		mf.Version = "1"
	}

	for i := range mf.Types {
		for j := range mf.Types[i].Properties {
			p := &mf.Types[i].Properties[j]
			if p.Multiplicity == "" {
				p.Multiplicity = defaultMultiplicity(p.Association)
			}
		}
	}
}

func defaultMultiplicity(association string) string {
	switch a, _ := ParseAssociation(association); a {
	case AssociationOneToMany, AssociationManyToMany:
		return "list"
	default:
		return "single"
	}
}

// Build converts a ModelFile into an unresolved Model.
func Build(mf *ModelFile) (*Model, error) {
	m := New()

	var errs []error

	for _, ts := range mf.Types {
		t := &Type{
			Name:      ts.Name,
			Abstract:  ts.Abstract,
			Embedded:  ts.Embedded,
			SuperName: ts.Extends,
		}

		for _, ps := range ts.Properties {
			p, err := buildProperty(ps)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", ts.Name, ps.Name, err))
				continue
			}

			t.AddProperty(p)
		}

		if err := m.AddType(t); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return m, nil
}

func buildProperty(ps PropertySchema) (*Property, error) {
	p := &Property{
		Name:             ps.Name,
		TargetName:       ps.Target,
		OppositeName:     ps.Opposite,
		Identifier:       ps.Identifier,
		NaturalKey:       ps.NaturalKey,
		ReadOnly:         ps.ReadOnly,
		Generated:        ps.Generated,
		Cascade:          ps.Cascade,
		PositionProperty: ps.Position,
	}

	switch strings.ToLower(ps.Multiplicity) {
	case "", "single":
		p.Multiplicity = MultiplicitySingle
	case "list":
		p.Multiplicity = MultiplicityList
	case "set":
		p.Multiplicity = MultiplicitySet
	case "map":
		p.Multiplicity = MultiplicityMap
	default:
		return nil, fmt.Errorf("unknown multiplicity %q", ps.Multiplicity)
	}

	if ps.Association != "" {
		a, ok := ParseAssociation(ps.Association)
		if !ok {
			return nil, fmt.Errorf("unknown association %q", ps.Association)
		}

		p.Association = a
	}

	switch {
	case ps.Kind != "" && ps.Target != "":
		return nil, errors.New("kind and target are mutually exclusive")
	case ps.Kind != "":
		k, ok := primitive.ParseKind(strings.ToLower(ps.Kind))
		if !ok {
			return nil, fmt.Errorf("unknown kind %q", ps.Kind)
		}

		p.Kind = k
	case ps.Target == "":
		return nil, errors.New("either kind or target is required")
	}

	return p, nil
}

// Marshal serializes a Model back into its YAML form.
func Marshal(m *Model) ([]byte, error) {
	mf := ModelFile{Version: "1"}

	for _, t := range m.Types() {
		ts := TypeSchema{
			Name:     t.Name,
			Extends:  t.SuperName,
			Abstract: t.Abstract,
			Embedded: t.Embedded,
		}

		for _, p := range t.own {
			ps := PropertySchema{
				Name:       p.Name,
				Target:     p.TargetName,
				Opposite:   p.OppositeName,
				Identifier: p.Identifier,
				NaturalKey: p.NaturalKey,
				ReadOnly:   p.ReadOnly,
				Generated:  p.Generated,
				Cascade:    p.Cascade && !p.IsEmbedded(),
				Position:   p.PositionProperty,
			}

			if p.Kind.IsValid() {
				ps.Kind = p.Kind.String()
			}

			if p.IsMany() {
				ps.Multiplicity = p.Multiplicity.String()
			}

			if p.TargetName != "" {
				ps.Association = p.Association.String()
			}

			ts.Properties = append(ts.Properties, ps)
		}

		mf.Types = append(mf.Types, ts)
	}

	return yaml.Marshal(&mf)
}
