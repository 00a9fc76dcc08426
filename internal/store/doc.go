// Package store provides a persistent, filesystem-backed map from string keys
// to opaque values, used as an out-of-core storage layer for large payloads.
//
// Layout:
//   - Every live key is exactly one file; the file's existence is the only
//     record of the key (there is no index).
//   - Keys are sanitized to [0-9A-Za-z_] and fanned out into one directory
//     per leading character, up to MaxDepth levels, so no directory holds
//     more than ~63 entries.
//   - Files are named <sanitized>.dat, plus .gz or .zst when compression
//     is enabled.
//
// Known limitations:
//   - Sanitization is lossy: "a.b" and "a-b" address the same file, as do
//     "." and "é" (one placeholder per character).
//   - KeySet returns sanitized keys, not the keys passed to Put.
//   - Writes are not atomic; a crash during Put can leave a truncated file.
//   - Locking is per Store value only; two processes sharing a directory
//     can corrupt each other's entries.
package store
