// Package model defines shared data types used across the list sync client.
//
// Conventions:
//   - IDs: int64, as rendered by the server in element ids and form values
//   - JSON: snake_case field names, matching the server's encoders
//   - Messages: {"type": "...", "data": {...}} on the /ws socket
package model
