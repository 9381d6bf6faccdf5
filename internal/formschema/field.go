// Package formschema defines the admin-authored form schema for property
// listings: typed fields, ordered sections and versioned form templates.
package formschema

// FieldType is the closed set of input kinds a field can take.
type FieldType string

const (
	FieldText         FieldType = "text"
	FieldAlphanumeric FieldType = "alphanumeric"
	FieldNumeric      FieldType = "numeric"
	FieldTextarea     FieldType = "textarea"
	FieldCheckbox     FieldType = "checkbox"
	FieldDropdown     FieldType = "dropdown"
	FieldRadio        FieldType = "radio"
	FieldDate         FieldType = "date"
	FieldFileUpload   FieldType = "file_upload"
	FieldMap          FieldType = "map"
)

// FieldTypes lists every supported FieldType in declaration order.
var FieldTypes = []FieldType{
	FieldText,
	FieldAlphanumeric,
	FieldNumeric,
	FieldTextarea,
	FieldCheckbox,
	FieldDropdown,
	FieldRadio,
	FieldDate,
	FieldFileUpload,
	FieldMap,
}

// Known reports whether t is one of the supported field types.
func (t FieldType) Known() bool {
	for _, ft := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// TextLike reports whether charLimit applies to values of this type.
func (t FieldType) TextLike() bool {
	switch t {
	case FieldText, FieldAlphanumeric, FieldTextarea, FieldMap:
		return true
	}
	return !t.Known()
}

// Choice reports whether the field selects a single value from its options.
func (t FieldType) Choice() bool {
	return t == FieldDropdown || t == FieldRadio
}

// SourceType says where a field's selectable options come from.
type SourceType string

const (
	SourceNone           SourceType = ""
	SourceCategoryMaster SourceType = "category_master"
	SourceStateMaster    SourceType = "state_master"
	SourceLinkedToParent SourceType = "linked_to_parent"
)

// Known reports whether s is a supported source (including none).
func (s SourceType) Known() bool {
	switch s {
	case SourceNone, SourceCategoryMaster, SourceStateMaster, SourceLinkedToParent:
		return true
	}
	return false
}

// Validation holds the optional rule set of a field. Nil pointers mean the
// rule is not configured.
type Validation struct {
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	CharLimit *int     `json:"charLimit,omitempty" yaml:"charLimit,omitempty"`
	Regex     string   `json:"regex,omitempty" yaml:"regex,omitempty"`
}

// FieldSchema describes one form input.
type FieldSchema struct {
	Key            string      `json:"key" yaml:"key"`
	Label          string      `json:"label" yaml:"label"`
	Placeholder    string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Type           FieldType   `json:"type" yaml:"type"`
	Required       bool        `json:"required" yaml:"required"`
	StaticOptions  []string    `json:"staticOptions,omitempty" yaml:"staticOptions,omitempty"`
	Validation     *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
	SourceType     SourceType  `json:"sourceType,omitempty" yaml:"sourceType,omitempty"`
	LinkedFieldKey string      `json:"linkedFieldKey,omitempty" yaml:"linkedFieldKey,omitempty"`
	DefaultValue   *string     `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
}

// Linked reports whether the field's options depend on another field. A
// linked_to_parent field without a linkedFieldKey is treated as having no
// dynamic options.
func (f FieldSchema) Linked() bool {
	return f.SourceType == SourceLinkedToParent && f.LinkedFieldKey != ""
}

// Rules returns the field's validation rules, never nil.
func (f FieldSchema) Rules() Validation {
	if f.Validation == nil {
		return Validation{}
	}
	return *f.Validation
}

// Clone returns a deep copy of f.
func (f FieldSchema) Clone() FieldSchema {
	out := f
	if f.StaticOptions != nil {
		out.StaticOptions = append([]string(nil), f.StaticOptions...)
	}
	if f.Validation != nil {
		v := *f.Validation
		if v.Min != nil {
			m := *v.Min
			v.Min = &m
		}
		if v.Max != nil {
			m := *v.Max
			v.Max = &m
		}
		if v.CharLimit != nil {
			c := *v.CharLimit
			v.CharLimit = &c
		}
		out.Validation = &v
	}
	if f.DefaultValue != nil {
		d := *f.DefaultValue
		out.DefaultValue = &d
	}
	return out
}

// Float returns a pointer to v, for building Validation literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for building Validation literals.
func Int(v int) *int { return &v }

// String returns a pointer to v, for building default values.
func String(v string) *string { return &v }
