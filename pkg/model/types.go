package model

import internalmodel "github.com/stillcare/carefront/internal/model"

// FieldKind re-exports the internal FieldKind enumeration.
type FieldKind = internalmodel.FieldKind

const (
	FieldKindText     = internalmodel.FieldKindText
	FieldKindTextArea = internalmodel.FieldKindTextArea
	FieldKindSelect   = internalmodel.FieldKindSelect
	FieldKindFile     = internalmodel.FieldKindFile
	FieldKindDateTime = internalmodel.FieldKindDateTime
	FieldKindCheckbox = internalmodel.FieldKindCheckbox

	FieldKindMultiSelect = internalmodel.FieldKindMultiSelect
)

type Option = internalmodel.Option
type Field = internalmodel.Field
type Form = internalmodel.Form

// DefaultLabeler exposes the label derivation used by the form catalogue.
func DefaultLabeler(key string) string {
	return internalmodel.DefaultLabeler(key)
}
