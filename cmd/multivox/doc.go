// Package main hosts the Multivox CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the long-running API server (serve),
// one-shot subtitle generation against a local file or URL, text translation,
// translation history browsing, stored media housekeeping, the language
// catalog, dependency status, and configuration scaffolding. It centralizes
// configuration resolution and structured logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
