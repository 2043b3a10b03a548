package models

import (
	"github.com/google/uuid"
)

// BatchDocument is one fully extracted document handed to a batch run
type BatchDocument struct {
	ID       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	Text     string    `json:"-"`
}

// DocumentResult is the per-document entry of a batch
type DocumentResult struct {
	DocumentID uuid.UUID       `json:"document_id"`
	Filename   string          `json:"filename"`
	Result     *AnalysisResult `json:"result"`
}

// ResolvedGap reports whether another document in the set covers a gap.
// Status is one of covered, still_open, partially_covered.
type ResolvedGap struct {
	OriginalGap    string `json:"original_gap"`
	SourceDocument string `json:"source_document"`
	Status         string `json:"status"`
	CoveredBy      string `json:"covered_by,omitempty"`
	Evidence       string `json:"evidence,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// CorpusGap is a topic no document in the set addresses
type CorpusGap struct {
	GapTitle       string `json:"gap_title"`
	Severity       string `json:"severity"`
	Details        string `json:"details"`
	Recommendation string `json:"recommendation"`
}

// Contradiction is a disagreement between two documents
type Contradiction struct {
	Topic          string `json:"topic"`
	DocumentA      string `json:"document_a"`
	DocumentASays  string `json:"document_a_says"`
	DocumentB      string `json:"document_b"`
	DocumentBSays  string `json:"document_b_says"`
	Recommendation string `json:"recommendation"`
}

// CrossDocGaps is the outcome of cross-document gap resolution
type CrossDocGaps struct {
	ResolvedGaps   []ResolvedGap   `json:"resolved_gaps"`
	CorpusGaps     []CorpusGap     `json:"corpus_gaps"`
	Contradictions []Contradiction `json:"contradictions"`
	TotalTokens    int             `json:"total_tokens"`
	Error          string          `json:"error,omitempty"`
}

// Normalize replaces nil lists with empty ones
func (c *CrossDocGaps) Normalize() {
	if c.ResolvedGaps == nil {
		c.ResolvedGaps = []ResolvedGap{}
	}
	if c.CorpusGaps == nil {
		c.CorpusGaps = []CorpusGap{}
	}
	if c.Contradictions == nil {
		c.Contradictions = []Contradiction{}
	}
}

// CoverageSummary groups areas by how well the document set covers them
type CoverageSummary struct {
	WellCoveredAreas   []string `json:"well_covered_areas"`
	WeaklyCoveredAreas []string `json:"weakly_covered_areas"`
	UncoveredAreas     []string `json:"uncovered_areas"`
}

// PriorityAction is an organization-level action from the synthesis
type PriorityAction struct {
	Action            string   `json:"action"`
	Priority          string   `json:"priority"`
	AffectedDocuments []string `json:"affected_documents"`
	Rationale         string   `json:"rationale"`
}

// Synthesis is the unified assessment of a document set
type Synthesis struct {
	OverallScore     Score            `json:"overall_score"`
	RiskLevel        string           `json:"risk_level"`
	DocumentMaturity string           `json:"document_maturity"`
	CoverageSummary  CoverageSummary  `json:"coverage_summary"`
	TopPriorities    []PriorityAction `json:"top_priorities"`
	Strengths        []string         `json:"strengths"`
	ScoreRationale   []string         `json:"score_rationale"`
	ExecutiveSummary string           `json:"executive_summary"`
	TotalTokens      int              `json:"total_tokens"`
	Error            string           `json:"error,omitempty"`
}

// BatchResult aggregates a batch run
type BatchResult struct {
	BatchID           uuid.UUID        `json:"batch_id"`
	Status            JobStatus        `json:"status"`
	IndividualResults []DocumentResult `json:"individual_results"`
	CrossDocGaps      CrossDocGaps     `json:"cross_doc_gaps"`
	Synthesis         Synthesis        `json:"synthesis"`
	ProcessingTime    float64          `json:"processing_time"`
	DocumentCount     int              `json:"document_count"`
	TotalTokens       int              `json:"total_tokens"`
}
