// Package dispatch implements the Message Dispatcher component.
//
// Every inbound frame is decoded and classified by its type:
//
//	section_*, sections_*                  full reload
//	item_*                                 targeted refresh (list + stats)
//	preferences_updated                    preference update from data.mobile_helper
//	pong                                   ignored
//
// Malformed frames and unknown types are logged and counted; they never
// stop the connection.
package dispatch
