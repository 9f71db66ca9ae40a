// Package ws provides the WebSocket relay between the device and browser
// clients.
//
// The package implements:
//   - Registry: the single device session and the set of client sessions
//   - StateCache: the last image update, used to catch up new clients
//   - Relay: fan-out of device messages and forwarding of commands to the device
//   - Handler: connection upgrade, read/write pumps and keepalive for the
//     device, client and raw ingestion sockets
//
// Key behaviour:
//   - Last connector wins: a new device handshake replaces the registered
//     device, and a superseded device's cleanup never clears its successor
//   - A client whose delivery fails is removed after the fan-out sweep, so one
//     bad client never blocks the rest
//   - Malformed device messages are logged and dropped; the connection stays open
package ws
