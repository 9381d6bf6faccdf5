package formschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseTemplate decodes a template document. Files ending in .json are read
// as JSON, everything else as YAML. Unknown keys are rejected in both.
func ParseTemplate(data []byte, filename string) (*FormTemplate, error) {
	var t FormTemplate
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	}
	if t.Version == 0 {
		t.Version = 1
	}
	if t.Status == "" {
		t.Status = StatusDraft
	}
	return &t, nil
}

// LoadTemplateFile reads and parses the template at path.
func LoadTemplateFile(path string) (*FormTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTemplate(data, path)
}
