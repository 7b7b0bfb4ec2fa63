// Package session implements the capture session lifecycle:
//
//	idle -> awaiting_upload -> processing -> completed | failed
//
// A session owns a work directory named by its UUID under the configured
// work root. Exactly one upload is accepted; it is processed on a background
// goroutine while the caller returns. The work directory is removed when the
// session ends unless artifacts are kept.
package session
