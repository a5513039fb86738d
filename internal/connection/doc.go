// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Keeps one WebSocket connection to the server's /ws endpoint
//   - Moves through Idle, Connecting, Open and Closed in a single event loop
//   - Reconnects with capped exponential backoff and gives up after a fixed
//     number of scheduled attempts
//   - Reconnects immediately on Wake, regardless of the attempt cap
//   - Sends an application-level {"type":"ping"} while open
//   - Forwards every inbound frame except pong to a Handler
package connection
