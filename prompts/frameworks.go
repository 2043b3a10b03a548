package prompts

import (
	"fmt"
	"strings"
)

// StandardSection is a retrieved excerpt of an uploaded framework standard
type StandardSection struct {
	Source  string
	Version string
	Text    string
}

const iso27001Guidance = `ISO27001 refers to ISO/IEC 27001:2022. Annex A has 93 controls in four themes:
- Organizational controls A.5.1 to A.5.37
- People controls A.6.1 to A.6.8
- Physical controls A.7.1 to A.7.14
- Technological controls A.8.1 to A.8.34
Use only A.5.x, A.6.x, A.7.x and A.8.x identifiers, never the 2013 numbering.`

func mentionsISO27001(keys []string) bool {
	for _, k := range keys {
		if k == "ISO27001" {
			return true
		}
	}
	return false
}

// FrameworkMapping asks for one alignment record per framework key from general knowledge
func FrameworkMapping(text, documentType string, keys []string) string {
	var list strings.Builder
	for i, k := range keys {
		fmt.Fprintf(&list, "%d. %s\n", i+1, k)
	}

	guidance := ""
	if mentionsISO27001(keys) {
		guidance = "\n" + iso27001Guidance + "\n"
	}

	var shape strings.Builder
	shape.WriteString("{\n")
	for i, k := range keys {
		fmt.Fprintf(&shape, `  %q: {
    "alignment_score": <0-100>,
    "standard_version": "<version assessed>",
    "mapped_controls": [
      {"control_id": "<control, article or rule>", "control_name": "<name or requirement>", "status": "met|partial|not_met", "notes": "<evidence or gap>"}
    ]
  }`, k)
		if i < len(keys)-1 {
			shape.WriteString(",")
		}
		shape.WriteString("\n")
	}
	shape.WriteString("}")

	return fmt.Sprintf(`You are a GRC (governance, risk and compliance) expert. Map the following %s against each of these frameworks and assess its alignment.

%s

Frameworks:
%s%s
Return valid JSON only, with exactly one entry per framework key:
%s

Return ONLY the JSON object.`, documentType, documentBlock("DOCUMENT", text), list.String(), guidance, shape.String())
}

// FrameworkComparison asks for an alignment record grounded on retrieved standard text
func FrameworkComparison(text, documentType, key string, sections []StandardSection) string {
	parts := make([]string, len(sections))
	for i, s := range sections {
		version := s.Version
		if version == "" {
			version = "?"
		}
		parts[i] = fmt.Sprintf("[Section from %s v%s]\n%s", s.Source, version, s.Text)
	}

	return fmt.Sprintf(`You are a GRC (governance, risk and compliance) expert.
Compare the following %s against the %s framework standard.

%s

RELEVANT SECTIONS FROM THE %s STANDARD:
"""
%s
"""

Judge alignment only from the standard text above. For each control or requirement in those sections, decide whether the document meets, partially meets or does not meet it.

Return valid JSON only:
{
  "alignment_score": <0-100>,
  "standard_version": "<version from the sections>",
  "mapped_controls": [
    {"control_id": "<control ID from the standard>", "control_name": "<name>", "status": "met|partial|not_met", "notes": "<evidence or gap>"}
  ],
  "summary": "<2-3 sentence summary>"
}

Return ONLY the JSON object.`, documentType, key, documentBlock("DOCUMENT UNDER REVIEW", text), key, strings.Join(parts, "\n\n---\n\n"))
}

// SingleFramework asks for one framework's alignment from general knowledge
func SingleFramework(text, documentType, key string) string {
	guidance := ""
	if key == "ISO27001" {
		guidance = "\n" + iso27001Guidance + "\n"
	}

	return fmt.Sprintf(`You are a GRC (governance, risk and compliance) expert.
Evaluate the following %s against the %s framework using your own knowledge of it.
%s
%s

For each relevant control or requirement, decide whether the document meets, partially meets or does not meet it.

Return valid JSON only:
{
  "alignment_score": <0-100>,
  "mapped_controls": [
    {"control_id": "<control ID>", "control_name": "<name>", "status": "met|partial|not_met", "notes": "<evidence or gap>"}
  ],
  "summary": "<2-3 sentence summary>"
}

Return ONLY the JSON object.`, documentType, key, guidance, documentBlock("DOCUMENT UNDER REVIEW", text))
}
