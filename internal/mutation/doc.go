// Package mutation plans file edits in a working tree: create, delete, literal
// substitution and regular-expression substitution. Each primitive reads one
// file and returns the content it would write together with a unified diff.
package mutation
