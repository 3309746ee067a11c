// Package store provides persistence for sessions and the listing catalog
// using SQLite (modernc.org/sqlite). A fresh store auto-creates its schema
// and seeds the demo listing fixtures; pass ":memory:" for ephemeral state.
package store
