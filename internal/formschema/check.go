package formschema

import (
	"fmt"
	"regexp"
	"strings"
)

// Severity grades a schema issue. Warnings degrade gracefully at render
// time; errors block publishing.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one problem found in a template.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s (%s)", i.Severity, i.Path, i.Message, i.Code)
}

// Issues is the result of Check.
type Issues []Issue

// Errors returns only the error-severity issues.
func (is Issues) Errors() Issues {
	var out Issues
	for _, i := range is {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Err summarises error-severity issues as a single error, or nil.
func (is Issues) Err() error {
	errs := is.Errors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Path + ": " + e.Message
	}
	return fmt.Errorf("template has %d schema error(s): %s", len(errs), strings.Join(msgs, "; "))
}

// Check inspects a template for schema problems. It never modifies the
// template and never fails; callers decide what to do with the issues.
func Check(t *FormTemplate) Issues {
	var out Issues
	add := func(sev Severity, code, path, format string, args ...any) {
		out = append(out, Issue{Severity: sev, Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(t.Name) == "" {
		add(SeverityError, "missing_name", "name", "template name is required")
	}
	if !t.SellerType.Known() {
		add(SeverityError, "unknown_seller_type", "sellerType", "unknown seller type %q", t.SellerType)
	}
	if len(t.Sections) == 0 {
		add(SeverityWarning, "no_sections", "sections", "template has no sections")
	}

	// section index at which each key is first declared
	declared := make(map[string]int)
	for si, s := range t.Sections {
		for _, f := range s.Fields {
			if f.Key == "" {
				continue
			}
			if _, dup := declared[f.Key]; !dup {
				declared[f.Key] = si
			}
		}
	}

	seen := make(map[string]bool)
	for si, s := range t.Sections {
		spath := fmt.Sprintf("sections[%d]", si)
		if s.Stage < 0 {
			add(SeverityError, "negative_stage", spath+".stage", "stage must be >= 0")
		}
		for fi, f := range s.Fields {
			path := fmt.Sprintf("%s.fields[%d]", spath, fi)
			if f.Key == "" {
				add(SeverityError, "missing_key", path+".key", "field key is required")
			} else {
				path = fmt.Sprintf("%s(%s)", path, f.Key)
				if seen[f.Key] {
					add(SeverityError, "duplicate_key", path, "duplicate field key %q", f.Key)
				}
				seen[f.Key] = true
			}
			if !f.Type.Known() {
				add(SeverityWarning, "unknown_type", path+".type", "unknown field type %q renders as text", f.Type)
			}
			checkRules(f, path, add)
			checkSource(f, si, declared, path, add)
		}
	}
	return out
}

func checkRules(f FieldSchema, path string, add func(Severity, string, string, string, ...any)) {
	v := f.Validation
	if v == nil {
		return
	}
	if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
		add(SeverityError, "min_above_max", path+".validation", "min %v is greater than max %v", *v.Min, *v.Max)
	}
	if (v.Min != nil || v.Max != nil) && f.Type != FieldNumeric {
		add(SeverityWarning, "range_on_non_numeric", path+".validation", "min/max only apply to numeric fields")
	}
	if v.CharLimit != nil && *v.CharLimit < 0 {
		add(SeverityError, "negative_char_limit", path+".validation.charLimit", "charLimit must be >= 0")
	}
	if v.Regex != "" {
		if _, err := compileFull(v.Regex); err != nil {
			add(SeverityError, "invalid_regex", path+".validation.regex", "invalid pattern: %v", err)
		}
	}
}

func checkSource(f FieldSchema, section int, declared map[string]int, path string, add func(Severity, string, string, string, ...any)) {
	if !f.SourceType.Known() {
		add(SeverityWarning, "unknown_source", path+".sourceType", "unknown source %q yields no options", f.SourceType)
		return
	}
	if f.SourceType == SourceLinkedToParent {
		if f.LinkedFieldKey == "" {
			add(SeverityWarning, "missing_linked_key", path+".linkedFieldKey", "linked_to_parent without linkedFieldKey yields no options")
			return
		}
		if f.LinkedFieldKey == f.Key {
			add(SeverityError, "self_link", path+".linkedFieldKey", "field cannot be linked to itself")
			return
		}
		parent, ok := declared[f.LinkedFieldKey]
		switch {
		case !ok:
			add(SeverityError, "unknown_linked_key", path+".linkedFieldKey", "linked field %q does not exist", f.LinkedFieldKey)
		case parent > section:
			add(SeverityError, "forward_link", path+".linkedFieldKey", "linked field %q is declared in a later section", f.LinkedFieldKey)
		}
	} else if f.LinkedFieldKey != "" {
		add(SeverityWarning, "stray_linked_key", path+".linkedFieldKey", "linkedFieldKey is ignored without linked_to_parent")
	}
	if f.Type.Choice() || f.Type == FieldCheckbox {
		if f.SourceType == SourceNone && len(f.StaticOptions) == 0 {
			add(SeverityWarning, "no_options", path+".staticOptions", "choice field has no options")
		}
	}
}

// CompilePattern compiles a validation regex anchored so that it must match
// the whole value.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	return compileFull(pattern)
}

func compileFull(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)$`)
}
