// Package connection implements the tournament feed Connection Manager.
//
// The Connection Manager:
//   - Holds one WebSocket subscription (one tournament, one token)
//   - Validates every inbound frame against the event union and drops the rest
//   - Sends a {"type":"ping"} heartbeat while the socket is open
//   - Reconnects with exponential backoff until Disconnect is called
//   - Reports connectivity as a single boolean through a status callback
package connection
