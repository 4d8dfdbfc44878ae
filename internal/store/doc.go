// Package store holds the authoritative server-side state: agents, chat
// sessions, and the derived system snapshot.
//
// The store is pure data plus mutation methods; it performs no I/O. A
// single RWMutex serializes mutations so every operation is atomic with
// respect to the entity it touches. Records are created only by explicit
// creation calls, mutated only through defined operations, and deleted
// explicitly; there is no eviction.
//
// All accessors return deep copies. Callers can never reach store-owned
// memory, which keeps broadcast payload construction race-free without
// additional locking.
package store
