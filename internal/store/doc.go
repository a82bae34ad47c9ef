// Package store provides walletd's persistence backends.
//
// The wallet's entire application state lives in a single versioned
// envelope:
//
//	type Envelope struct {
//	    Version int
//	    Data    map[string]any
//	}
//
// Two backends exist:
//
//   - Primary (SQLite): the authoritative single-slot store. Exactly one
//     envelope is persisted; version and data are written together.
//   - Remote (Redis): an optional best-effort mirror. It holds only the
//     unwrapped data document, never the version.
//
// The primary store is read once at startup by the state loader and then
// written continuously by the persistence pipeline. The remote store is
// fetched once at startup (merged over the local document) and receives
// fire-and-forget snapshots thereafter.
package store
