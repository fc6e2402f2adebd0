package model

import (
	"fmt"
	"go/types"
	"reflect"
	"strings"

	"golang.org/x/tools/go/packages"

	"aggregate-mapper/primitive"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// TagName is the struct tag read by LoadPackages.
//
//	ID    int64     `json:"id" orm:"id,generated"`
//	Email string    `json:"email" orm:"natural"`
//	Lines []*Line   `json:"lines" orm:"cascade,opposite=order,position=lineNo"`
//	Tags  []*Tag    `json:"tags" orm:"m2m"`
//	Owner *Customer `json:"owner" orm:"o2o,readonly"`
//
// Property names come from the json tag, falling back to the field name.
// Struct fields held by value are embedded; a struct type is embedded when it
// declares neither an identifier nor a natural key.
const TagName = "orm"

// LoadPackages builds and resolves a Model from the exported struct types of
// the given packages. Patterns are standard Go package patterns.
func LoadPackages(patterns ...string) (*Model, error) {
	cfg := &packages.Config{
		Mode: LoadMode,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var errs []error
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %v", errs)
	}

	var structs []*types.TypeName
	for _, pkg := range pkgs {
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			typeName, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || !typeName.Exported() {
				continue
			}

			if _, ok := typeName.Type().Underlying().(*types.Struct); ok {
				structs = append(structs, typeName)
			}
		}
	}

	m := New()
	for _, tn := range structs {
		t, err := buildStruct(tn)
		if err != nil {
			return nil, err
		}

		if err := m.AddType(t); err != nil {
			return nil, err
		}
	}

	if err := m.Resolve(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}

	return m, nil
}

type fieldTag struct {
	opts     map[string]string
	explicit bool
}

func parseTag(tag reflect.StructTag) fieldTag {
	raw, ok := tag.Lookup(TagName)
	ft := fieldTag{opts: make(map[string]string), explicit: ok}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, _ := strings.Cut(part, "=")
		ft.opts[key] = value
	}

	return ft
}

func (ft fieldTag) has(key string) bool {
	_, ok := ft.opts[key]
	return ok
}

func buildStruct(tn *types.TypeName) (*Type, error) {
	st := tn.Type().Underlying().(*types.Struct)
	t := &Type{Name: tn.Name(), Embedded: true}

	for i := 0; i < st.NumFields(); i++ {
		field := st.Field(i)
		if !field.Exported() {
			continue
		}

		tag := reflect.StructTag(st.Tag(i))
		ft := parseTag(tag)
		if ft.has("-") {
			continue
		}

		p, err := buildField(field, tag, ft)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", tn.Name(), field.Name(), err)
		}

		if p.Identifier || p.NaturalKey {
			t.Embedded = false
		}

		t.AddProperty(p)
	}

	return t, nil
}

func buildField(field *types.Var, tag reflect.StructTag, ft fieldTag) (*Property, error) {
	p := &Property{
		Name:             jsonName(field.Name(), tag),
		Identifier:       ft.has("id"),
		NaturalKey:       ft.has("natural"),
		ReadOnly:         ft.has("readonly"),
		Generated:        ft.has("generated"),
		Cascade:          ft.has("cascade"),
		OppositeName:     ft.opts["opposite"],
		PositionProperty: ft.opts["position"],
	}

	typ := field.Type()
	if ptr, ok := typ.(*types.Pointer); ok {
		if k := scalarKind(ptr.Elem()); k.IsValid() {
			p.Kind = k
			return p, nil
		}

		target, ok := structName(ptr.Elem())
		if !ok {
			return nil, fmt.Errorf("unsupported pointer type %s", typ)
		}

		p.TargetName = target
		p.Association = AssociationManyToOne
		if ft.has("o2o") {
			p.Association = AssociationOneToOne
		}

		return p, nil
	}

	if k := scalarKind(typ); k.IsValid() {
		p.Kind = k
		return p, nil
	}

	if target, ok := structName(typ); ok {
		p.TargetName = target
		p.Association = AssociationEmbedded

		return p, nil
	}

	var elem types.Type
	switch ct := typ.Underlying().(type) {
	case *types.Slice:
		elem = ct.Elem()
		p.Multiplicity = MultiplicityList
		if ft.has("set") {
			p.Multiplicity = MultiplicitySet
		}
	case *types.Map:
		if basic, ok := ct.Key().Underlying().(*types.Basic); !ok || basic.Kind() != types.String {
			return nil, fmt.Errorf("map keys must be strings, got %s", ct.Key())
		}

		elem = ct.Elem()
		p.Multiplicity = MultiplicityMap
	default:
		return nil, fmt.Errorf("unsupported type %s", typ)
	}

	if ptr, ok := elem.(*types.Pointer); ok {
		elem = ptr.Elem()
	}

	target, ok := structName(elem)
	if !ok {
		return nil, fmt.Errorf("collections of %s are not supported", elem)
	}

	p.TargetName = target
	p.Association = AssociationOneToMany
	if ft.has("m2m") {
		p.Association = AssociationManyToMany
	}

	return p, nil
}

func jsonName(name string, tag reflect.StructTag) string {
	if v, ok := tag.Lookup("json"); ok {
		if n, _, _ := strings.Cut(v, ","); n != "" && n != "-" {
			return n
		}
	}

	return name
}

func structName(t types.Type) (string, bool) {
	named, ok := t.(*types.Named)
	if !ok {
		return "", false
	}

	if _, ok := named.Underlying().(*types.Struct); !ok {
		return "", false
	}

	if scalarKind(named).IsValid() {
		return "", false
	}

	return named.Obj().Name(), true
}

// scalarKind maps a Go type onto a data kind. Named basic types map onto
// their underlying kind.
func scalarKind(t types.Type) primitive.KindEnum {
	if named, ok := t.(*types.Named); ok {
		obj := named.Obj()
		if obj.Pkg() != nil {
			switch obj.Pkg().Path() + "." + obj.Name() {
			case "time.Time":
				return primitive.KindTime
			case "time.Duration":
				return primitive.KindDuration
			case "github.com/google/uuid.UUID":
				return primitive.KindUUID
			}
		}
	}

	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return 0
	}

	switch basic.Kind() {
	case types.Int:
		return primitive.KindInt
	case types.Int8, types.Int16, types.Int32, types.Int64, types.Uint8, types.Uint16, types.Uint32:
		return primitive.KindInt64
	case types.Float32, types.Float64:
		return primitive.KindFloat64
	case types.Bool:
		return primitive.KindBool
	case types.String:
		return primitive.KindString
	default:
		return 0
	}
}
