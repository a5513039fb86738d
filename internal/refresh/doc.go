// Package refresh implements the Refresh Orchestrator component.
//
// It offers three refresh strategies over the page view:
//   - FullReload discards local state and reloads every region from GET /
//   - RefreshList replaces the sections-list and manage-sections-list
//     regions that are present, each independently
//   - RefreshStats replaces the stats summary from GET /stats
//
// RefreshTargeted runs the last two concurrently without waiting. Nothing
// cancels or orders overlapping refreshes; the last response to land wins.
package refresh
