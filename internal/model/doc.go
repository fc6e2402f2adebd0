// Package model provides the metadata the traversal engine consumes: entity
// types, their properties and associations, and the dynamic Object instances
// a graph is made of.
//
// A Model is built from a YAML definition (LoadFile/Parse) or from Go structs
// carrying `orm` tags (LoadPackages), and must be resolved before use. Resolve
// links association targets and opposite properties, flattens inherited
// properties and validates the result.
//
// Key types:
//   - Type: entity or embedded type, with super/subtype links
//   - Property: one attribute, with multiplicity and association kind
//   - Object: a dynamic instance of a Type
//   - Record: the flat or nested external representation
//   - Key: identity of an object by natural key or identifier
package model
