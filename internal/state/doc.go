// Package state implements the Local Interaction State component and the
// user action handlers that mutate the list.
//
// State holds what only this client knows: the multi-select batch, the
// item targeted by the quick-action menu, the edit buffer and which modals
// are open. It is shared by reference and survives targeted refreshes;
// only a full reload clears it.
package state
