// Package store provides durable persistence for sessions, agents, and
// turns. Two implementations are available: a GORM-backed store for
// production (PostgreSQL, MySQL, SQLite) and an in-memory store for
// development and tests.
//
// The turn log is append-only and strictly ordered. Ordinals are assigned
// by the store at append time and are authoritative; the only permitted
// mutation of a persisted turn is the one-time removal of the conclusion
// marker from the turn that ended a conversation.
package store
