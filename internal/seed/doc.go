// Package seed imports and exports whole collections.
//
// Seed files are YAML, JSON or CUE. Every format is validated against the
// embedded #Seed schema (schema.cue) before anything reaches the store, and
// schema defaults fill optional fields. Dates are RFC 3339 timestamps; YAML
// may also use plain dates such as 2025-03-10.
//
// Apply replaces each collection present in the seed through a Set action.
// Collections absent from the seed are left alone.
package seed
