// Package cli constructs the gx command-line interface. It wires the Cobra
// command hierarchy to the layered configuration loader and the zap logger,
// and resolves the fan-out settings (roots, depth, jobs) once for every
// subcommand.
package cli
