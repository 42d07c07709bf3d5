// Package html renders forms as server-side HTML using pongo2 templates.
// Fields that are concealed stay in the markup, hidden with display:none, and
// fields that trigger disclosure carry a data-trigger attribute.
package html
