// Package store provides storage and pub/sub for feed snapshots.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Snapshot]: Storage representation of one feed's poller state
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system). The number
// of subscribers doubles as the dashboard's viewer count.
package store
