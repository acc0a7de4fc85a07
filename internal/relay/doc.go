// Package relay owns the domain types shared by the client and the dev
// relay server.
//
// Ownership boundary:
// - FQDN parsing/validation
// - relay endpoint addresses
// - record and response value types
package relay
