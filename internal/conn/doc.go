// Package conn accepts and routes walletd's communication channels.
//
// # Overview
//
// Every caller, whether one of the wallet's own UI surfaces or an
// arbitrary external dapp, reaches the controller through a Channel: one
// duplex message
// connection per caller, created on connect and destroyed when the remote
// end goes away.
//
// # Classification
//
// The Multiplexer classifies each inbound channel by its declared name:
//
//   - "popup", "notification": trusted internal surfaces, dispatched to
//     the controller's trusted entry point with the wallet-provider label.
//   - anything else: untrusted, dispatched with the origin domain derived
//     from the channel's remote URL (hostname only).
//
// No allow-listing or rate limiting happens here; access control is the
// controller's job. A malformed remote URL fails that one channel only.
//
// # Popup liveness
//
// The multiplexer owns the popup-open flag. It is set when the singleton
// popup surface connects and cleared when that specific channel's Done
// fires. PopupOpen is the narrow accessor the popup trigger reads.
//
// # Transport
//
// Listener is the WebSocket front door: it upgrades HTTP requests at
// /connect, taking the channel name from the "name" query parameter and
// the remote URL from the Origin header.
package conn
