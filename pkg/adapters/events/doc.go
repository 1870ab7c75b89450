// Package events provides event bus implementations for run lifecycle events.
//
// Implementations:
//   - redis: Redis Streams with consumer groups
//   - memory: In-memory, synchronous delivery in publish order
//
// Topics are domain.TopicCrewEvents and domain.TopicTaskEvents.
package events
