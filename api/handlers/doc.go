// Package handlers implements the HTTP endpoints: session lifecycle and
// runs, agent management, vault credentials, reports, and health checks.
package handlers
