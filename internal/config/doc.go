// Package config loads, normalizes, and validates clipcontext configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEY. The Config type centralizes every knob the capture host and
// pipeline need: the session work root, the upload endpoint, the frame
// timestamp policy and safety cap, silence thresholds, and the speech service
// credentials and retry policy.
//
// A missing speech credential is a startup error surfaced by Validate, never a
// runtime one.
package config
