// Package lookupcache persists the outcome of external lookups keyed by
// normalized query so repeated runs skip the network.
//
// Three backends share the Store interface: FileStore (one JSON document per
// key, atomic writes, cross-process advisory lock), SQLiteStore (a single
// WAL-mode database), and MemoryStore (used when no cache directory is
// configured). Confirmed matches never expire; confirmed no-matches expire
// after a configurable TTL. Corrupt entries read as misses.
package lookupcache
