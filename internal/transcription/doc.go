// Package transcription runs WhisperX speech-to-text over stored media.
//
// The Engine is a long-lived handle created once at startup: Init resolves the
// ffmpeg and WhisperX launcher binaries and fails fast with a configuration
// error when either is missing, and Ready feeds the health endpoint. Each
// Transcribe call extracts a mono 16 kHz WAV into a private temporary
// directory, runs WhisperX with JSON output, and removes the directory on
// every exit path.
package transcription
