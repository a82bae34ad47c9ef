// Package wallet implements walletd's controller.
//
// # Overview
//
// The Controller owns the live application state from the moment the
// loader hands it over. Everything observable about the wallet flows
// through it:
//
//   - state mutations (preferences, approved transactions, password)
//   - four pending-work queues: unapproved transactions and the three
//     sign-request kinds (opaque, personal, typed data)
//   - the lock/unlock lifecycle (bcrypt-hashed password kept in state)
//
// # Notifications
//
// Every observable change is published on an internal broadcaster:
// full state snapshots on the state topic, and a count per pending queue
// on its own topic. The persistence pipeline consumes the state topic;
// the badge aggregator consumes the four count topics.
//
// # Channel serving
//
// SetupTrustedCommunication and SetupUntrustedCommunication attach a
// request/response loop to a channel. Trusted surfaces get the full
// method set plus pushed stateChanged notifications; untrusted callers
// get the restricted dapp set, with their origin domain stamped onto
// every pending item they create. A channel's failure or disconnect ends
// its own loop and nothing else.
package wallet
