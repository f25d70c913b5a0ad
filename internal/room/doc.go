// Package room holds the in-memory room registry shared by every signaling
// connection in the process.
//
// A room maps participant peer IDs to display names and keeps an append-only
// chat transcript. Rooms are created implicitly the first time any operation
// names them. The registry performs no I/O; fan-out to connected peers is the
// caller's job.
package room
