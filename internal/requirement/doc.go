// Package requirement turns the free-text prerequisite column of a course
// catalog into structured requirement atoms.
//
// The text is split on commas, semicolons, slashes and the connector words
// "y" and "o". Every resulting token is classified independently and all of
// the atoms of a course are combined with AND. The word "o" is a separator
// like any other; no disjunction is ever inferred from it.
//
// Parsing never fails. Tokens that match none of the recognized shapes are
// dropped, so malformed text degrades to a shorter list of atoms.
package requirement
