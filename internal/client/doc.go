// Package client owns the relay fetch engine and its externally-visible
// facade.
//
// Ownership boundary:
// - correlation id assignment and request/response matching
// - retry policy over transport timeouts and stale responses
// - response validation (status, duplicate keys, record signatures)
// - the one-call Index facade consumed by the CLI
package client
