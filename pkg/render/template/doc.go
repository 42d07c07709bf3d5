// Package template renders the pongo2 pages that make up a care form.
// Markup comes from an fs.FS, optionally shadowed by a directory on disk, and
// each page is parsed once.
package template
