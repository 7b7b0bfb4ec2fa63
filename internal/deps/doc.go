// Package deps reports whether the external binaries clipcontext shells out to
// are installed.
package deps
