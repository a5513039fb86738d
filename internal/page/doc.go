// Package page holds the client-side view of the list page.
//
// A View keeps the HTML of the named regions the server renders
// (stats, sections-list, manage-sections-list), the stats summary and the
// mobile helper preference. Full reloads replace every region from GET /;
// targeted refreshes replace single regions. Navigation requested by the
// server (HX-Redirect, 401) is recorded instead of followed.
package page
