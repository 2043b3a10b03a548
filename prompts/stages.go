package prompts

import (
	"fmt"

	"github.com/mehtasarang17/dockguard-ai/models"
)

// GapDetection asks for at most 10 gaps, most severe first.
// prior holds earlier findings the model must not repeat.
func GapDetection(text, documentType string, syn *models.Synopsis, compliance, security []models.Finding) string {
	findings := ""
	if len(compliance) > 0 || len(security) > 0 {
		prior := map[string][]models.Finding{}
		if len(compliance) > 0 {
			prior["compliance_findings"] = compliance
		}
		if len(security) > 0 {
			prior["security_findings"] = security
		}
		findings = fmt.Sprintf("\nFINDINGS FROM PRIOR ANALYSIS (context only, do NOT repeat these, find NEW gaps):\n%s\n", toJSON(prior))
	}

	return fmt.Sprintf(`You are an expert policy gap analyst. Review the following %s and identify significant policy or procedural gaps.
%s%s
%s

Rules:
1. Judge gaps against what the document itself sets out to cover.
2. Tie every gap to something the document says, implies or leaves out within its own scope.
3. Do not work from a generic checklist.
4. Reference the sections or topic areas involved.
5. Do not repeat the prior findings above.
6. Flag referenced documents or procedures that appear to be missing.

Return at most 10 gaps ordered by severity, critical first.

Return valid JSON only:
{
  "gaps": [
    {
      "gap_title": "<concise name of the gap>",
      "severity": "critical|high|medium|low",
      "details": "<what is missing or weak>",
      "document_section": "<section or area involved>",
      "recommendation": "<actionable step to close it>"
    }
  ]
}

Return ONLY the JSON object.`, documentType, synopsisBlock("DOCUMENT SYNOPSIS", syn), findings, documentBlock("DOCUMENT", text))
}

// Scoring asks for the five quality dimensions and a maturity label
func Scoring(text, documentType string, syn *models.Synopsis) string {
	return fmt.Sprintf(`You are an expert document quality assessor. Score the following %s on five dimensions.
%s
%s

Return valid JSON only:
{
  "completeness": {"score": <0-100>, "rationale": "<explanation citing the document>"},
  "security_strength": {"score": <0-100>, "rationale": "<explanation citing the document>"},
  "coverage": {"score": <0-100>, "rationale": "<explanation citing the document>"},
  "clarity": {"score": <0-100>, "rationale": "<explanation citing the document>"},
  "enforcement_level": {"score": <0-100>, "rationale": "<explanation citing the document>"},
  "document_maturity": "basic|developing|established|mature|optimized"
}

Definitions:
- completeness: does the document cover what its stated scope needs?
- security_strength: how robust are the security measures it describes?
- coverage: breadth of scenarios and edge cases addressed
- clarity: is the language clear, unambiguous and actionable?
- enforcement_level: are there enforcement mechanisms, penalties or audits?

Return ONLY the JSON object.`, documentType, synopsisBlock("DOCUMENT SYNOPSIS (for context)", syn), documentBlock("DOCUMENT", text))
}

// BestPractices asks for comparisons of covered areas with industry practice
func BestPractices(text, documentType string, syn *models.Synopsis, gaps []models.GapDetection) string {
	known := ""
	if len(gaps) > 0 {
		known = fmt.Sprintf("\nGAPS ALREADY IDENTIFIED (do NOT repeat these):\n%s\n", toJSON(gaps))
	}

	return fmt.Sprintf(`You are an industry best-practices consultant. Compare the following %s with current industry best practice.
%s%s
%s

Rules:
1. Compare only areas the document actually addresses.
2. current_state must quote or closely paraphrase the document.
3. best_practice must cite a specific standard or widely accepted practice.
4. Do not repeat the gaps above.

Return valid JSON only:
{
  "comparisons": [
    {
      "area": "<topic area from the document>",
      "current_state": "<what the document says>",
      "best_practice": "<what good practice recommends, with source>",
      "gap": "high|medium|low|none",
      "recommendation": "<specific improvement>"
    }
  ]
}

Return ONLY the JSON object.`, documentType, synopsisBlock("DOCUMENT SYNOPSIS", syn), known, documentBlock("DOCUMENT", text))
}

// FindingsContext is the upstream analysis handed to the suggestion and recommendation stages.
// Empty lists are left out of the prompt.
type FindingsContext struct {
	DocumentType     string                `json:"document_type,omitempty"`
	DocumentTitle    string                `json:"document_title,omitempty"`
	StatedPurpose    string                `json:"stated_purpose,omitempty"`
	Compliance       []models.Finding      `json:"compliance_findings,omitempty"`
	Security         []models.Finding      `json:"security_findings,omitempty"`
	Risk             []models.Finding      `json:"risk_findings,omitempty"`
	Gaps             []models.GapDetection `json:"gap_detections,omitempty"`
	BestPracticeGaps []models.BestPractice `json:"best_practice_gaps,omitempty"`
	Suggestions      []models.Suggestion   `json:"suggestions,omitempty"`
}

// Suggestions asks for improvements each tied to a finding
func Suggestions(text, documentType string, syn *models.Synopsis, ctx FindingsContext) string {
	return fmt.Sprintf(`You are a senior policy consultant. Using the document and the analysis findings below, write specific improvement suggestions.
%s
DOCUMENT TYPE: %s

%s

ALL PRIOR ANALYSIS FINDINGS:
%s

Each suggestion must address one specific finding or gap above, propose concrete wording or clauses, and say why it matters.

Types:
- policy_improvement: strengthen existing language
- missing_clause: add a new section or clause
- better_wording: remove ambiguity
- security_enhancement: strengthen security controls

Return valid JSON only:
{
  "suggestions": [
    {
      "type": "policy_improvement|missing_clause|better_wording|security_enhancement",
      "title": "<descriptive title>",
      "description": "<suggestion referencing the findings>",
      "priority": "high|medium|low",
      "addresses_finding": "<finding or gap addressed>",
      "example_text": "<example clause or wording>"
    }
  ]
}

Return ONLY the JSON object.`, synopsisBlock("DOCUMENT SYNOPSIS", syn), documentType, documentBlock("DOCUMENT", text), toJSON(ctx))
}

// Recommendations asks for the final deduplicated and prioritized action plan
func Recommendations(documentType string, ctx FindingsContext) string {
	ctx.DocumentType = documentType
	return fmt.Sprintf(`You are a senior consultant preparing the final action plan for a %s. Several specialist reviews produced the results below and many of them overlap.

COMPLETE ANALYSIS RESULTS:
%s

Merge overlapping findings into single actions, order them by impact and urgency, say exactly what to do, and estimate the effort of each.

Return valid JSON only:
{
  "recommendations": [
    {
      "action": "<specific step>",
      "priority": "critical|high|medium|low",
      "category": "security|compliance|governance|operational|documentation",
      "effort": "quick_win|moderate|significant",
      "rationale": "<which findings support it>"
    }
  ]
}

Return ONLY the JSON object.`, documentType, toJSON(ctx))
}
