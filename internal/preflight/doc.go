// Package preflight provides readiness checks for the external tools,
// directories, and speech service a capture host depends on.
//
// The CLI "deps" command renders these checks; "record" runs the directory
// checks before arming a session so a misconfigured work root fails before
// the browser opens.
package preflight
