// Package procexec runs external command-line tools with bounded lifetimes.
//
// Every media operation goes through the Runner interface so tests can
// substitute a scripted fake. ExecRunner captures stdout and stderr, applies a
// per-invocation timeout, and kills the whole process group on cancellation.
// Failures are classified as ErrToolUnavailable (binary could not start) or a
// *ToolError matching ErrToolFailed (non-zero exit, output preserved).
package procexec
