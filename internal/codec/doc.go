// Package codec converts between object graphs and their external
// representation.
//
// The nested form is used for TO_DOMAIN and TO_EXTERNAL: cascaded
// associations are nested records, other associations are reference records
// carrying only identifying properties. The flat form is used by the
// migration pipeline: one record per entity with foreign keys as
// identifiers.
//
// Reserved fields start with "$":
//
//	$type  concrete type of a polymorphic value
//	$id    anchor of an object without key that is referenced more than once
//	$ref   marks a reference record; holds the anchor or the object key
package codec
