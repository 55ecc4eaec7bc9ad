// Package ui renders command lifecycle events as short console lines.
//
// Structured logs keep the full command metadata; the console renderer is
// used when the log format is console so that fan-out runs across many
// repositories read as a per-repository transcript.
package ui
