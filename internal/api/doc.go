// Package api provides the queue service layer and the JSON view types
// shared by the HTTP server and the CLI.
package api
