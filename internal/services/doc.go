// Package services defines shared utilities consumed by the pipeline stages
// and the capture session controller.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, stage names, and correlation
//     identifiers for logging.
//   - The error taxonomy: fatal markers (sanitization, frame extraction) that
//     fail a session, recoverable markers (audio unavailable, silent,
//     transcription failed) that degrade to sentinel transcripts, and the
//     Wrap helper that keeps markers matchable with errors.Is.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
