// Package capture serves the upload boundary of a capture session: a small
// recording page, the multipart upload endpoint, and status endpoints. The
// server stops once its session is terminal.
package capture
