// Package migrate owns the wallet state's schema lifecycle.
//
// The persisted envelope carries a schema version. The Migrator advances an
// envelope through an ordered list of Migrations, applying exactly the
// entries whose version exceeds the envelope's, in ascending order. A
// transform failure halts the sequence with the version parked at the last
// successful step; walletd treats that as a fatal startup error and never
// retries automatically.
//
// The Loader runs the full startup sequence once, before any connection is
// accepted:
//
//	read primary → merge remote (best effort) → migrate → write back → unwrap
//
// Builtin returns the daemon's actual schema history and FirstTimeState the
// seed document for fresh installs.
package migrate
