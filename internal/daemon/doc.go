// Package daemon wires the walletd components into a running process.
//
// New builds everything up to and including the initial state load, which
// acts as a startup barrier: no listener exists until the persisted state
// has been read, migrated, and written back. Run then starts the persist
// pipeline, badge aggregator, and HTTP surface, and serves until its
// context is cancelled.
package daemon
