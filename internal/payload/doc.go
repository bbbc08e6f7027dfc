// Package payload models the JSON-shaped values that cross the script
// boundary and implements the two sanitizing passes applied to them.
//
// A payload tree is built from:
//   - *Map: a string-keyed mapping that remembers insertion order
//   - []any: a sequence
//   - scalars: string, bool, float64, integer kinds and nil
//
// Redactor replaces secret-bearing fields and Bounder drops fields whose
// serialized size exceeds a ceiling. Both return new trees and never mutate
// their input.
package payload
