// Package main hosts the clipcontext CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, structured logging, and the
// media runner into a single-session host: record serves the capture page and
// waits for one upload, process feeds an existing file through the same
// session, and render rebuilds a document from a kept session directory.
// Supporting commands check dependencies, list or clean session directories,
// and scaffold configuration.
//
// The document goes to stdout (or --output) and everything else to stderr, so
// the output can be piped straight into another tool.
package main
