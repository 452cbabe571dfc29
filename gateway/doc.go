// Package gateway turns structured read, write, batch-read and discovery
// requests into BACnet primitives and their outcomes into uniform results.
//
// Every operation returns a Result whose message follows the
// "<category>, <cause>" grammar on failure. Malformed requests are rejected
// before anything is sent; protocol errors, rejects, aborts and timeouts are
// folded into the same envelope by Classify. A Service holds no per-request
// state and is safe for concurrent use; all correlation of replies happens in
// the Transport it wraps.
package gateway
