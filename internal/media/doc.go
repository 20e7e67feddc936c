// Package media acquires source media into the shared storage directory and
// serves it back by generated filename.
//
// Every stored file is named by a fresh UUID plus its extension, so concurrent
// acquisitions never collide. Uploads are checked against the extension
// allowlist before any byte is written and are streamed under a byte ceiling;
// remote URLs are fetched with yt-dlp under a deadline. Partial files are
// removed on every failure path. Stored assets are kept until the retention
// sweep evicts them.
package media
