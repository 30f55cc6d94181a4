// Package ws bridges websocket connections to board sessions.
//
// Each accepted socket gets a Conn, which:
//   - mints a client id and submits Connect before reading anything
//   - decodes binary frames into board events and submits them in order
//   - writes server events queued on its bounded Outbox
//   - stops on peer close, a malformed frame, a write failure, an outbox
//     overflow, or the board's kill signal
//   - submits exactly one Disconnect on the way out
package ws
