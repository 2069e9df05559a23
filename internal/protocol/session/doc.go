// Package session owns the byte channel used for one request/response exchange.
//
// Ownership boundary:
// - dial/close of one TCP connection per exchange
// - write-all and read-exact primitives
// - clean end-of-stream vs truncated read classification
//
// A channel is never reused: callers open one, perform a single exchange and
// close it before opening the next.
package session
