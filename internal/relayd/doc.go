// Package relayd is a development relay. It serves index requests over the
// wire protocol from an in-memory store and exposes a small HTTP admin
// surface for seeding and inspection.
package relayd
