// Package api provides the HTTP client for the list server's collaborator endpoints.
//
// Fragment endpoints (htmx-style, sent with HX-Request: true):
//   - GET /              full page; the #sections-list region is cut out of it
//   - GET /sections/list management listing fragment
//
// JSON endpoints:
//   - GET  /stats                            {total_items, completed_items, percentage}
//   - GET  /preferences                      {mobile_helper}
//   - POST /preferences/toggle-mobile-helper {mobile_helper}
//
// Mutations: POST /sections/batch-delete, POST /items/{id}/uncertain,
// POST /items/{id}/move, PUT /items/{id}, DELETE /items/{id}.
//
// A 401 on any request, or an HX-Redirect header, navigates the page instead
// of letting the caller apply the response.
package api
