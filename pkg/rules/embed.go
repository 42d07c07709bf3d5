package rules

import (
	"embed"
	"io/fs"
)

//go:embed defaults/*
var embeddedRules embed.FS

// EmbeddedFS returns the bundled rule documents for the incident, body map
// and appointment forms.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedRules, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// Default loads the bundled rule documents.
func Default() (*Store, error) {
	return LoadFS(EmbeddedFS())
}
