package model

// ModelFile is the root structure of a YAML model definition.
type ModelFile struct {
	Version string       `yaml:"version,omitempty"`
	Types   []TypeSchema `yaml:"types"`
}

// TypeSchema describes one type in a ModelFile.
type TypeSchema struct {
	Name       string           `yaml:"name"`
	Extends    string           `yaml:"extends,omitempty"`
	Abstract   bool             `yaml:"abstract,omitempty"`
	Embedded   bool             `yaml:"embedded,omitempty"`
	Properties []PropertySchema `yaml:"properties"`
}

// PropertySchema describes one property in a TypeSchema.
// Either Kind (data type) or Target (association) must be set.
type PropertySchema struct {
	Name         string `yaml:"name"`
	Kind         string `yaml:"kind,omitempty"`
	Target       string `yaml:"target,omitempty"`
	Multiplicity string `yaml:"multiplicity,omitempty"` // single, list, set, map
	Association  string `yaml:"association,omitempty"`  // one-to-one, many-to-one, ...
	Opposite     string `yaml:"opposite,omitempty"`
	Identifier   bool   `yaml:"identifier,omitempty"`
	NaturalKey   bool   `yaml:"natural_key,omitempty"`
	ReadOnly     bool   `yaml:"read_only,omitempty"`
	Generated    bool   `yaml:"generated,omitempty"`
	Cascade      bool   `yaml:"cascade,omitempty"`
	Position     string `yaml:"position,omitempty"`
}
