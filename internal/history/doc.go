// Package history persists text translations requested through the API and
// CLI so owners can list and reopen them.
//
// The Store wraps a SQLite database (modernc.org/sqlite, no cgo). Writes retry
// briefly on SQLITE_BUSY because the server and CLI may share the file. Schema
// changes bump schemaVersion in schema.go; users delete the database to adopt
// the new schema.
package history
