// Package protocol owns the wire contract for the relay index protocol.
//
// Ownership boundary:
// - frame/header primitives (frame)
// - tlv payload primitives (tlv)
// - message schemas (schema)
// - index request/response codecs and their error classes
package protocol
