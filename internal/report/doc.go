// Package report renders per-repository results as a styled table or as YAML and tallies
// them into the summaries that decide the process exit code.
package report
