// Package forms exposes the catalogue of record forms. Forms are derived
// from the request bodies of an OpenAPI document: each operation with a JSON
// request body becomes one form, keyed by its x-form-id extension or its
// operationId. The bundled document describes the client, appointment,
// visit, invoice, incident and body map forms.
package forms
