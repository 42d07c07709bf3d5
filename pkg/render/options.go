package render

// Options carry per-request data that does not belong on the form itself.
type Options struct {
	// Action is the URL the rendered form submits to. Defaults to the
	// form endpoint.
	Action string
	// StateURL, when set, is where the page posts field changes to receive
	// the updated field states.
	StateURL string
	// Triggers lists the fields whose changes re-run disclosure. Renderers
	// mark them so the page knows when to call StateURL.
	Triggers []string
	// Errors holds backend messages keyed by field key. See MapErrors.
	Errors ErrorMapping
	// Hidden inputs emitted alongside the fields.
	Hidden []HiddenField
}
