// Package render maps a field schema and its current state to a typed input
// contract: which control to show, which constraints it enforces, and what
// value it presents. Rendering is pure; it performs no I/O and never fails.
package render

// Control names the kind of UI control for a field.
type Control string

const (
	ControlTextInput     Control = "text_input"
	ControlNumberInput   Control = "number_input"
	ControlTextarea      Control = "textarea"
	ControlCheckboxGroup Control = "checkbox_group"
	ControlSelect        Control = "select"
	ControlRadioGroup    Control = "radio_group"
	ControlDatePicker    Control = "date_picker"
	ControlFilePicker    Control = "file_picker"
	ControlMapInput      Control = "map_input"
)

// InputContract is everything a UI needs to draw one field.
type InputContract struct {
	Key         string   `json:"key"`
	TestID      string   `json:"testId"`
	Label       string   `json:"label"`
	Placeholder string   `json:"placeholder,omitempty"`
	Control     Control  `json:"control"`
	InputType   string   `json:"inputType,omitempty"` // HTML input type for single inputs
	Required    bool     `json:"required"`
	MaxLength   *int     `json:"maxLength,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Options     []string `json:"options,omitempty"`
	Multiple    bool     `json:"multiple,omitempty"`
	Disabled    bool     `json:"disabled,omitempty"`

	// Value is the value the control presents: a string for single-value
	// controls, a number or "" for numeric inputs, []string for checkbox
	// groups and the file set for file pickers.
	Value any    `json:"value"`
	Error string `json:"error,omitempty"`

	// Fallback is set when the field's type is not recognised and the
	// control was rendered as plain text.
	Fallback bool `json:"fallback,omitempty"`
}

// TestIDPrefix prefixes every control's addressable identity.
const TestIDPrefix = "field-"

// TestID returns the stable identity of the control for key.
func TestID(key string) string {
	return TestIDPrefix + key
}
