// Package contextdoc renders the Markdown context document handed back to
// the host. Rendering is pure: the same entries, transcript, and capture time
// always produce the same text, so a document can be rebuilt from kept
// session artifacts.
package contextdoc
