// Package disclosure shows, hides, requires and clears dependent form fields
// according to the checked state of trigger checkboxes.
//
// A Table lists rules of the form {trigger, dependents, marker}. While a
// trigger is checked its dependents are visible, required and carry exactly
// one marker suffix on their label; while it is unchecked they are hidden,
// optional, emptied and unmarked. Nested rules gate a second checkbox behind
// the first. The Discloser runs the whole table once per form load (Init)
// and the affected rules on every change event (Changed). It never fails at
// runtime: rules whose controls are missing from the View are skipped.
//
// Submission-time validation of required fields is not performed here.
package disclosure
