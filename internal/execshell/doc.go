// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions autopull uses to run
// git and post-update shell commands with captured output in a testable manner.
package execshell
