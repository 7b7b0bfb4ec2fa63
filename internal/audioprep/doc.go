// Package audioprep extracts and validates the audio track of a recording
// before it is sent for transcription.
//
// Preparation stops at the first unusable condition (no audio stream, failed
// extraction, empty output, silence) and writes the matching sentinel string
// to the transcript file. Those are terminal outcomes, not errors; the
// pipeline still produces a document.
package audioprep
