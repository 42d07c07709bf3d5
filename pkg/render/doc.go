// Package render turns a form and its current field state into output for a
// client. The html subpackage produces a server-rendered page; JSON serves
// clients that draw their own controls.
package render
