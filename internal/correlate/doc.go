// Package correlate parses timestamped transcripts and pairs each extracted
// frame with the nearest spoken segment within Tolerance seconds. A
// transcript with no parsable lines is not an error; every frame is simply
// left unmatched.
package correlate
