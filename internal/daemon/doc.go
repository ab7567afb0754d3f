// Package daemon coordinates the background services: the workflow
// manager, the HTTP API, and the single-instance lock.
package daemon
