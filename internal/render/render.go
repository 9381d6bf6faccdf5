package render

import (
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

type renderFunc func(f formschema.FieldSchema, value any, options []string, c *InputContract)

// renderers has one entry per FieldType. CheckDispatch reports gaps.
var renderers = map[formschema.FieldType]renderFunc{
	formschema.FieldText:         renderText,
	formschema.FieldAlphanumeric: renderText,
	formschema.FieldNumeric:      renderNumeric,
	formschema.FieldTextarea:     renderTextarea,
	formschema.FieldCheckbox:     renderCheckbox,
	formschema.FieldDropdown:     renderSelect,
	formschema.FieldRadio:        renderRadio,
	formschema.FieldDate:         renderDate,
	formschema.FieldFileUpload:   renderFile,
	formschema.FieldMap:          renderMap,
}

// CheckDispatch returns the field types that have no renderer. It is empty
// when the dispatch table covers the closed set.
func CheckDispatch() []formschema.FieldType {
	var missing []formschema.FieldType
	for _, t := range formschema.FieldTypes {
		if _, ok := renderers[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// Render builds the input contract for field. options are the already
// resolved option labels; errMsg is the field's current validation message,
// if any. An unrecognised field type renders as a text input.
func Render(field formschema.FieldSchema, value any, options []string, errMsg string) InputContract {
	c := InputContract{
		Key:         field.Key,
		TestID:      TestID(field.Key),
		Label:       field.Label,
		Placeholder: field.Placeholder,
		Required:    field.Required,
		Error:       errMsg,
	}
	fn, ok := renderers[field.Type]
	if !ok {
		fn = renderText
		c.Fallback = true
	}
	fn(field, value, options, &c)
	return c
}

func renderText(f formschema.FieldSchema, value any, _ []string, c *InputContract) {
	c.Control = ControlTextInput
	c.InputType = "text"
	c.MaxLength = f.Rules().CharLimit
	c.Pattern = f.Rules().Regex
	c.Value = StringValue(value)
}

func renderTextarea(f formschema.FieldSchema, value any, _ []string, c *InputContract) {
	c.Control = ControlTextarea
	c.MaxLength = f.Rules().CharLimit
	c.Value = StringValue(value)
}

func renderNumeric(f formschema.FieldSchema, value any, _ []string, c *InputContract) {
	c.Control = ControlNumberInput
	c.InputType = "number"
	rules := f.Rules()
	c.Min = rules.Min
	c.Max = rules.Max
	if n, ok := Number(value); ok {
		c.Value = n
	} else {
		c.Value = StringValue(value)
	}
}

func renderCheckbox(_ formschema.FieldSchema, value any, options []string, c *InputContract) {
	c.Control = ControlCheckboxGroup
	c.Multiple = true
	c.Options = options
	c.Value = Selection(value)
	c.Disabled = len(options) == 0
}

func renderSelect(f formschema.FieldSchema, value any, options []string, c *InputContract) {
	c.Control = ControlSelect
	renderChoice(f, value, options, c)
}

func renderRadio(f formschema.FieldSchema, value any, options []string, c *InputContract) {
	c.Control = ControlRadioGroup
	renderChoice(f, value, options, c)
}

func renderChoice(f formschema.FieldSchema, value any, options []string, c *InputContract) {
	c.Options = options
	c.Value = StringValue(value)
	c.Disabled = f.Linked() && len(options) == 0
}

func renderDate(_ formschema.FieldSchema, value any, _ []string, c *InputContract) {
	c.Control = ControlDatePicker
	c.InputType = "date"
	c.Value = StringValue(value)
}

func renderFile(_ formschema.FieldSchema, value any, _ []string, c *InputContract) {
	c.Control = ControlFilePicker
	c.InputType = "file"
	c.Multiple = true
	c.Value = Files(value)
}

func renderMap(f formschema.FieldSchema, value any, _ []string, c *InputContract) {
	c.Control = ControlMapInput
	c.InputType = "text"
	c.MaxLength = f.Rules().CharLimit
	c.Value = StringValue(value)
}

// Files returns value as a file set; anything else is an empty set.
func Files(value any) []types.FileRef {
	switch v := value.(type) {
	case []types.FileRef:
		return v
	default:
		return []types.FileRef{}
	}
}
