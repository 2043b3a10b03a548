package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// textValue renders a JSON value as text. Models answer free-text fields
// with numbers, lists or objects often enough that a type mismatch must
// not cost the whole record.
func textValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	case '[':
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) == nil {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if s := textValue(item); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
	}
	return string(raw)
}

// decodeTextFields fills string fields from a JSON object by key.
// A bare value instead of an object is taken as the primary field.
func decodeTextFields(data []byte, primary *string, fields map[string]*string) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] != '{' {
		*primary = textValue(data)
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for key, dst := range fields {
		if raw, ok := obj[key]; ok {
			*dst = textValue(raw)
		}
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler
func (f *Finding) UnmarshalJSON(data []byte) error {
	*f = Finding{}
	return decodeTextFields(data, &f.Issue, map[string]*string{
		"issue":          &f.Issue,
		"risk":           &f.Risk,
		"severity":       &f.Severity,
		"category":       &f.Category,
		"type":           &f.Type,
		"likelihood":     &f.Likelihood,
		"framework_hint": &f.FrameworkHint,
		"evidence":       &f.Evidence,
		"section":        &f.Section,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (g *GapDetection) UnmarshalJSON(data []byte) error {
	*g = GapDetection{}
	return decodeTextFields(data, &g.GapTitle, map[string]*string{
		"gap_title":        &g.GapTitle,
		"severity":         &g.Severity,
		"details":          &g.Details,
		"document_section": &g.DocumentSection,
		"recommendation":   &g.Recommendation,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (c *MappedControl) UnmarshalJSON(data []byte) error {
	*c = MappedControl{}
	return decodeTextFields(data, &c.ControlName, map[string]*string{
		"control_id":   &c.ControlID,
		"theme":        &c.Theme,
		"control_name": &c.ControlName,
		"article":      &c.Article,
		"rule":         &c.Rule,
		"requirement":  &c.Requirement,
		"status":       &c.Status,
		"notes":        &c.Notes,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
// An alignment score that is not a number leaves the framework unscored;
// a numeric one is clamped to 0-100.
func (m *FrameworkMapping) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	*m = FrameworkMapping{
		StandardVersion: textValue(obj["standard_version"]),
		Summary:         textValue(obj["summary"]),
		Source:          textValue(obj["source"]),
		Error:           textValue(obj["error"]),
		MappedControls:  decodeControls(obj["mapped_controls"]),
	}
	if raw, ok := obj["alignment_score"]; ok {
		if v, err := parseScore(raw); err == nil && v != nil {
			clamped := clampFloat(*v, 0, 100)
			m.AlignmentScore = &clamped
		}
	}
	if raw, ok := obj["not_uploaded"]; ok {
		var b bool
		if json.Unmarshal(raw, &b) == nil {
			m.NotUploaded = b
		}
	}
	return nil
}

// decodeControls keeps the controls that decode and drops the rest
func decodeControls(raw json.RawMessage) []MappedControl {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	controls := make([]MappedControl, 0, len(items))
	for _, item := range items {
		var c MappedControl
		if json.Unmarshal(item, &c) == nil {
			controls = append(controls, c)
		}
	}
	return controls
}
