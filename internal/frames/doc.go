// Package frames plans and captures the still images that anchor a context
// document.
//
// A Policy turns a recording duration into capture timestamps, either from a
// fixed list or from an interval and start offset. The Extractor runs one
// independent ffmpeg capture per timestamp and names each file after its
// timestamp so Scan can rebuild the sample list from a directory alone.
package frames
