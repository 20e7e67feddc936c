// Package pipeline runs one subtitle request end to end:
// Received -> Acquiring -> Transcribing -> Translating -> Assembling -> Done.
//
// Stages are strictly sequential. Acquisition and transcription failures end
// the run in Failed and are returned as a *StageError naming the stage.
// Translation and assembly never fail the run: per-segment translation errors
// become sentinel text and bad timestamps render as zero time codes.
package pipeline
