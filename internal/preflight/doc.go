// Package preflight provides readiness checks for external services
// and filesystem paths that Multivox depends on.
//
// These checks run in two contexts:
//   - "multivox serve" calls RunAll before binding the API and refuses to
//     start when a required binary or directory is unusable.
//   - The CLI "multivox status" command renders every Result, including the
//     translation endpoint probe, as a table.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
