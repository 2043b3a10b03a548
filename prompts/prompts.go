// Package prompts builds the task text sent to the model for each analysis stage.
// Builders are pure: callers decide which slice of the analysis state to pass.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mehtasarang17/dockguard-ai/models"
)

// MaxDocumentChars is the longest document text embedded verbatim in a prompt
const MaxDocumentChars = 50000

const omissionMarker = "\n\n[... content omitted for length ...]\n\n"

// Trim keeps documents within MaxDocumentChars by sampling the head, the middle and the tail
func Trim(text string) string {
	if utf8.RuneCountInString(text) <= MaxDocumentChars {
		return text
	}
	runes := []rune(text)
	third := MaxDocumentChars / 3
	midStart := len(runes)/2 - third/2

	var b strings.Builder
	b.Grow(MaxDocumentChars*4 + 2*len(omissionMarker))
	b.WriteString(string(runes[:third]))
	b.WriteString(omissionMarker)
	b.WriteString(string(runes[midStart : midStart+third]))
	b.WriteString(omissionMarker)
	b.WriteString(string(runes[len(runes)-third:]))
	return b.String()
}

// toJSON renders v indented for embedding in a prompt
func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func synopsisBlock(title string, syn *models.Synopsis) string {
	if syn == nil {
		return ""
	}
	return fmt.Sprintf("\n%s:\n%s\n", title, toJSON(syn))
}

func documentBlock(label, text string) string {
	return fmt.Sprintf("%s:\n\"\"\"\n%s\n\"\"\"", label, Trim(text))
}

// Synopsis asks for a factual summary of what the document contains
func Synopsis(text, documentType string) string {
	return fmt.Sprintf(`You are an expert document analyst. Read the following %s document and extract a structured synopsis of what it actually contains.

%s

Other analysts will rely on this synopsis, so only report what is really in the document.

Return valid JSON only, in this format:
{
  "document_title": "<title or main heading>",
  "stated_purpose": "<what the document says it covers>",
  "sections_found": ["<section headings or topic areas present>"],
  "key_topics_covered": ["<topics addressed with substance>"],
  "topics_mentioned_but_shallow": ["<topics referenced without depth>"],
  "target_audience": "<intended readers>",
  "industry_sector": "<industry or domain, if identifiable>",
  "document_length_assessment": "brief|moderate|comprehensive",
  "references_other_documents": ["<external documents, policies or standards referenced>"]
}

Rules:
- List only topics the document covers, not topics it should cover.
- sections_found must follow the document's real structure.
- Return ONLY the JSON object.`, documentType, documentBlock("DOCUMENT", text))
}

// Compliance asks for compliance findings and a 0-100 compliance score
func Compliance(text, documentType string, syn *models.Synopsis) string {
	return fmt.Sprintf(`You are a senior compliance auditor. Analyze the following %s document for compliance gaps, missing requirements and regulatory weaknesses.
%s
%s

Rules for findings:
- Every finding must be specific to this document and cite the section or statement involved.
- Do not pad the list with generic observations.
- Do not invent issues in areas the document handles well.

Return valid JSON only:
{
  "findings": [
    {"issue": "<compliance gap with document reference>", "severity": "high|medium|low", "section": "<section name or N/A>", "framework_hint": "<relevant standard>", "evidence": "<quote or reference>"}
  ],
  "score": <0-100 integer, 100 = fully compliant>
}

Return ONLY the JSON object.`, documentType, synopsisBlock("DOCUMENT SYNOPSIS (for context)", syn), documentBlock("DOCUMENT", text))
}

// Security asks for security findings and a 0-100 security score
func Security(text, documentType string, syn *models.Synopsis) string {
	return fmt.Sprintf(`You are a cybersecurity expert. Analyze the following %s for security weaknesses, weak controls and likely attack vectors.
%s
%s

Rules for findings:
- Stay within the document's scope; for a non-security document assess only the security aspects of its domain.
- Reference the sections, controls or statements involved.

Return valid JSON only:
{
  "findings": [
    {"issue": "<security issue with document reference>", "severity": "high|medium|low", "category": "access_control|encryption|network|data_protection|incident_response|other", "evidence": "<quote or reference>"}
  ],
  "score": <0-100 integer, 100 = strongest posture>
}

Return ONLY the JSON object.`, documentType, synopsisBlock("DOCUMENT SYNOPSIS (for context)", syn), documentBlock("DOCUMENT", text))
}

// Risk asks for risk findings, a 0-100 score and an overall risk level
func Risk(text, documentType string, syn *models.Synopsis) string {
	return fmt.Sprintf(`You are a risk management specialist. Analyze the following %s for operational, legal, financial and reputational risks.
%s
%s

Rules for findings:
- Identify risks that follow from what this document covers and its stated scope.
- Reference the provisions or omissions that create each risk.

Return valid JSON only:
{
  "findings": [
    {"risk": "<risk with document reference>", "severity": "high|medium|low", "type": "operational|legal|financial|reputational", "likelihood": "high|medium|low", "evidence": "<what in the document creates this risk>"}
  ],
  "score": <0-100 integer, 100 = lowest risk>,
  "risk_level": "low|medium|high|critical"
}

Return ONLY the JSON object.`, documentType, synopsisBlock("DOCUMENT SYNOPSIS (for context)", syn), documentBlock("DOCUMENT", text))
}
