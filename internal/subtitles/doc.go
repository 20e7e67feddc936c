// Package subtitles defines the timed Segment type and renders segment lists
// as SubRip (SRT) documents.
//
// Time codes are computed with fixed-point decimals so values such as
// 3661.999 seconds render as 01:01:01,999 instead of drifting a millisecond
// through binary float truncation. Invalid times never fail assembly; they
// render as the zero time code.
package subtitles
