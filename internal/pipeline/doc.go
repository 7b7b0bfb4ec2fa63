// Package pipeline turns one uploaded recording into a context document.
//
// Stages run strictly in order: sanitize, probe, frames, audio, transcribe,
// correlate, assemble. Each stage takes its inputs from the previous ones and
// logs under its own stage name. Sanitization and frame failures abort the
// run; audio and transcription failures are absorbed into sentinel
// transcripts so a document is still produced. The sanitized recording is
// removed before Run returns.
package pipeline
