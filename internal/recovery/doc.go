// Package recovery persists transaction state as JSON files and replays it after the
// recording process has exited.
//
// The store doubles as the transaction persister. The validator inspects the
// repositories named by a state before replay and separates blocking errors
// from advisory warnings.
package recovery
