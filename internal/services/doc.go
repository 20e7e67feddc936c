// Package services defines shared utilities consumed by the subtitle pipeline,
// the HTTP API, and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs and pipeline stage names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into consistent HTTP statuses (client error vs server error).
//
// Use these helpers when wiring new integrations so operational behaviour
// (error handling, observability) stays uniform across the service.
package services
