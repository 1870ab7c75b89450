// Package storage provides run state storage implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and TTL
//   - memory: In-memory, the default when no Redis address is configured
//
// Both store snapshots: callers get copies and later mutations of a saved
// RunState never leak into storage.
package storage
