// Package execshell runs the external git and gh executables.
//
// ShellExecutor wraps a CommandRunner with structured logging and typed
// failures, while OSCommandRunner provides the default os/exec backed runner.
// Everything above this package talks to processes through these types so
// tests can substitute recording runners.
package execshell
