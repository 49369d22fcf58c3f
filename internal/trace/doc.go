// Package trace defines the diagnostic events the host emits while running
// rounds, plus the canonical encoding used to snapshot and digest them.
//
// Trace events describe what the scheduler did (round boundaries, clears,
// system executions, queue sizes). They never carry event payloads.
//
// Canonical JSON follows RFC 8785: keys sorted by UTF-16 code units, no
// HTML escaping, NFC-normalized strings, no floats and no nulls. Golden
// files and digests are built on it so that byte-for-byte comparisons are
// stable across platforms.
package trace
