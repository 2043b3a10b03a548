package prompts

import (
	"fmt"
	"strings"

	"github.com/mehtasarang17/dockguard-ai/models"
)

// MaxCrossRefChunks caps the excerpts embedded in the cross-document prompt
const MaxCrossRefChunks = 20

// DocumentGapSummary is one document's entry in the cross-document gap prompt
type DocumentGapSummary struct {
	Filename      string                `json:"filename"`
	Synopsis      *models.Synopsis      `json:"synopsis"`
	GapDetections []models.GapDetection `json:"gap_detections"`
	OverallScore  int                   `json:"overall_score"`
}

// CrossRefChunk is an excerpt retrieved from one document of the set
type CrossRefChunk struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// DocumentScoreSummary is one document's compact entry in the synthesis prompt
type DocumentScoreSummary struct {
	Filename         string   `json:"filename"`
	OverallScore     int      `json:"overall_score"`
	ComplianceScore  int      `json:"compliance_score"`
	SecurityScore    int      `json:"security_score"`
	RiskScore        int      `json:"risk_score"`
	RiskLevel        string   `json:"risk_level"`
	DocumentMaturity string   `json:"document_maturity"`
	GapCount         int      `json:"gap_count"`
	TopGaps          []string `json:"top_gaps"`
	TopRisks         []string `json:"top_risks"`
}

// CrossDocumentGaps asks which per-document gaps another document resolves,
// which gaps no document addresses, and where documents contradict each other
func CrossDocumentGaps(summaries []DocumentGapSummary, chunks []CrossRefChunk) string {
	if len(chunks) > MaxCrossRefChunks {
		chunks = chunks[:MaxCrossRefChunks]
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[From: %s]\n%s", c.Filename, c.Text)
	}

	return fmt.Sprintf(`You are a senior policy analyst reviewing an organization's complete document set. You have each document's individual analysis plus related excerpts from across the set.

INDIVIDUAL DOCUMENT ANALYSES:
%s

CROSS-REFERENCED CONTENT FROM ALL DOCUMENTS:
"""
%s
"""

Tasks:
1. For each gap found in a single document, check whether another document in the set covers it, and cite that document.
2. Identify corpus gaps: topics no document addresses.
3. Flag contradictions between documents.

Return valid JSON only:
{
  "resolved_gaps": [
    {"original_gap": "<gap title>", "source_document": "<filename>", "status": "covered|still_open|partially_covered", "covered_by": "<filename or null>", "evidence": "<how it is covered>", "notes": "<context>"}
  ],
  "corpus_gaps": [
    {"gap_title": "<topic nobody covers>", "severity": "critical|high|medium|low", "details": "<what is missing>", "recommendation": "<document or section to create>"}
  ],
  "contradictions": [
    {"topic": "<area>", "document_a": "<filename>", "document_a_says": "<statement>", "document_b": "<filename>", "document_b_says": "<statement>", "recommendation": "<resolution>"}
  ]
}

Return ONLY the JSON object.`, toJSON(summaries), strings.Join(parts, "\n\n---\n\n"))
}

// Synthesis asks for a unified organizational assessment of the document set
func Synthesis(summaries []DocumentScoreSummary) string {
	return fmt.Sprintf(`You are a senior security consultant. The analysis results of %d policy documents below together describe an organization's security and compliance posture.

INDIVIDUAL DOCUMENT RESULTS:
%s

Return valid JSON only:
{
  "overall_score": <0-100 considering all documents>,
  "risk_level": "low|medium|high|critical",
  "document_maturity": "basic|developing|established|mature|optimized",
  "coverage_summary": {
    "well_covered_areas": ["<areas addressed well>"],
    "weakly_covered_areas": ["<areas covered superficially>"],
    "uncovered_areas": ["<important areas nobody covers>"]
  },
  "top_priorities": [
    {"action": "<organizational action>", "priority": "critical|high|medium", "affected_documents": ["<filenames>"], "rationale": "<why>"}
  ],
  "strengths": ["<what the organization does well>"],
  "score_rationale": ["<how the overall score was derived>"],
  "executive_summary": "<3-5 sentence summary>"
}

Return ONLY the JSON object.`, len(summaries), toJSON(summaries))
}
