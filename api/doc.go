// Package api defines the HTTP request and response types shared by the
// handlers and by API clients.
package api
