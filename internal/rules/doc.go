// Package rules models the user-authored routing rules and persists them.
//
// A Rule pairs a natural-language prompt with a destination folder. Rules are
// evaluated in ascending priority; equal priorities keep file order. The Store
// reads and writes the rule file as JSON or YAML depending on its extension
// and always replaces the file atomically.
package rules
