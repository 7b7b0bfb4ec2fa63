// Package transcribe turns a validated audio track into a timestamped
// transcript.
//
// Backend abstracts the remote speech model; GeminiBackend talks to the
// Generative Language REST API with inline base64 audio. Transcriber wraps a
// backend with a bounded retry loop: transient failures (timeouts, 408, 429,
// 5xx, empty model output) back off exponentially through an injectable
// Sleeper, while other client errors stop at once. When no attempt succeeds
// the transcript file receives SentinelFailed and the pipeline carries on.
package transcribe
