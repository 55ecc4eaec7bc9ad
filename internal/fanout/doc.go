// Package fanout runs one task per repository on a bounded worker pool and gathers every
// result, so a failing repository never stops the others.
package fanout
