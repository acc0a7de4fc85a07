// Package session owns the client<->relay transport session.
//
// Ownership boundary:
// - dialing and TLS for relay endpoints
// - one-frame-out, one-frame-in exchanges with deadlines
// - reliability defaults and retry/backoff primitives
//
// A Session carries at most one in-flight exchange at a time. A timed-out
// exchange leaves the Session reusable; any other transport failure marks it
// fatal and it must be discarded.
package session
