// Package server exposes the form catalogue over HTTP. Forms render as HTML
// or JSON, a state endpoint replays the disclosure rules for clients that
// draw their own controls, and submissions are forwarded to the data
// service.
package server
