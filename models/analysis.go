package models

import (
	"github.com/google/uuid"
)

// Risk levels reported by the risk stage and the batch synthesis
const (
	RiskLevelLow      = "low"
	RiskLevelMedium   = "medium"
	RiskLevelHigh     = "high"
	RiskLevelCritical = "critical"
	RiskLevelUnknown  = "unknown"
)

// Document maturity labels
const (
	MaturityBasic       = "basic"
	MaturityDeveloping  = "developing"
	MaturityEstablished = "established"
	MaturityMature      = "mature"
	MaturityOptimized   = "optimized"
	MaturityUnknown     = "unknown"
)

// Framework mapping sources
const (
	SourceUploadedStandard = "uploaded_standard"
	SourceAIKnowledge      = "ai_knowledge"
)

// Synopsis is the structured summary of what a document actually contains.
// It is produced first and handed to later stages as context.
type Synopsis struct {
	DocumentTitle             string   `json:"document_title"`
	StatedPurpose             string   `json:"stated_purpose"`
	SectionsFound             []string `json:"sections_found"`
	KeyTopicsCovered          []string `json:"key_topics_covered"`
	TopicsMentionedButShallow []string `json:"topics_mentioned_but_shallow"`
	TargetAudience            string   `json:"target_audience"`
	IndustrySector            string   `json:"industry_sector"`
	DocumentLengthAssessment  string   `json:"document_length_assessment"`
	ReferencesOtherDocuments  []string `json:"references_other_documents"`
}

// Finding is a compliance, security or risk observation.
// Risk findings carry Risk instead of Issue.
type Finding struct {
	Issue         string `json:"issue,omitempty"`
	Risk          string `json:"risk,omitempty"`
	Severity      string `json:"severity"`
	Category      string `json:"category,omitempty"`
	Type          string `json:"type,omitempty"`
	Likelihood    string `json:"likelihood,omitempty"`
	FrameworkHint string `json:"framework_hint,omitempty"`
	Evidence      string `json:"evidence,omitempty"`
	Section       string `json:"section,omitempty"`
}

// Title returns the issue or risk text, whichever is set
func (f Finding) Title() string {
	if f.Issue != "" {
		return f.Issue
	}
	return f.Risk
}

// GapDetection is a gap relative to the document's own stated scope
type GapDetection struct {
	GapTitle        string `json:"gap_title"`
	Severity        string `json:"severity"`
	Details         string `json:"details"`
	DocumentSection string `json:"document_section"`
	Recommendation  string `json:"recommendation"`
}

// MappedControl is one control or requirement of a framework.
// Frameworks name their controls differently, hence the optional fields.
type MappedControl struct {
	ControlID   string `json:"control_id,omitempty"`
	Theme       string `json:"theme,omitempty"`
	ControlName string `json:"control_name,omitempty"`
	Article     string `json:"article,omitempty"`
	Rule        string `json:"rule,omitempty"`
	Requirement string `json:"requirement,omitempty"`
	Status      string `json:"status,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// FrameworkMapping is the alignment of a document with one framework.
// A nil AlignmentScore means the framework was not scored this run.
type FrameworkMapping struct {
	AlignmentScore  *float64        `json:"alignment_score,omitempty"`
	StandardVersion string          `json:"standard_version,omitempty"`
	MappedControls  []MappedControl `json:"mapped_controls,omitempty"`
	Summary         string          `json:"summary,omitempty"`
	Source          string          `json:"source,omitempty"`
	NotUploaded     bool            `json:"not_uploaded,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// NotEvaluatedMapping is the placeholder for a requested framework that has no result
func NotEvaluatedMapping() FrameworkMapping {
	return FrameworkMapping{NotUploaded: true}
}

// DimensionScore is a single scoring dimension
type DimensionScore struct {
	Score     Score  `json:"score"`
	Rationale string `json:"rationale"`
}

// ScoringDetails holds the five quality dimensions and the maturity label
type ScoringDetails struct {
	Completeness     DimensionScore `json:"completeness"`
	SecurityStrength DimensionScore `json:"security_strength"`
	Coverage         DimensionScore `json:"coverage"`
	Clarity          DimensionScore `json:"clarity"`
	EnforcementLevel DimensionScore `json:"enforcement_level"`
	DocumentMaturity string         `json:"document_maturity,omitempty"`
}

// NamedDimension pairs a display label with its score
type NamedDimension struct {
	Label string
	DimensionScore
}

// Dimensions returns the dimensions in their fixed display order
func (s ScoringDetails) Dimensions() []NamedDimension {
	return []NamedDimension{
		{Label: "Completeness", DimensionScore: s.Completeness},
		{Label: "Security Strength", DimensionScore: s.SecurityStrength},
		{Label: "Coverage", DimensionScore: s.Coverage},
		{Label: "Clarity", DimensionScore: s.Clarity},
		{Label: "Enforcement Level", DimensionScore: s.EnforcementLevel},
	}
}

// BestPractice compares an area of the document with industry practice.
// Gap is one of high, medium, low, none.
type BestPractice struct {
	Area           string `json:"area"`
	CurrentState   string `json:"current_state"`
	BestPractice   string `json:"best_practice"`
	Gap            string `json:"gap"`
	Recommendation string `json:"recommendation"`
}

// Suggestion is a concrete improvement tied to a finding
type Suggestion struct {
	Type             string `json:"type"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Priority         string `json:"priority"`
	AddressesFinding string `json:"addresses_finding"`
	ExampleText      string `json:"example_text,omitempty"`
}

// Recommendation is one entry of the final prioritized action plan
type Recommendation struct {
	Action    string `json:"action"`
	Priority  string `json:"priority"`
	Category  string `json:"category"`
	Effort    string `json:"effort"`
	Rationale string `json:"rationale"`
}

// AnalysisState is the record threaded through every pipeline stage for one document run
type AnalysisState struct {
	DocumentID   uuid.UUID `json:"document_id"`
	DocumentText string    `json:"-"`
	DocumentType string    `json:"document_type"`

	Synopsis *Synopsis `json:"synopsis"`

	ComplianceFindings []Finding `json:"compliance_findings"`
	ComplianceScore    int       `json:"compliance_score"`
	SecurityFindings   []Finding `json:"security_findings"`
	SecurityScore      int       `json:"security_score"`
	RiskFindings       []Finding `json:"risk_findings"`
	RiskScore          int       `json:"risk_score"`
	RiskLevel          string    `json:"risk_level"`

	FrameworkMappings map[string]FrameworkMapping `json:"framework_mappings"`
	GapDetections     []GapDetection              `json:"gap_detections"`
	ScoringDetails    ScoringDetails              `json:"scoring_details"`
	BestPractices     []BestPractice              `json:"best_practices"`
	AutoSuggestions   []Suggestion                `json:"auto_suggestions"`
	Recommendations   []Recommendation            `json:"recommendations"`

	OverallScore     int      `json:"overall_score"`
	ScoreRationale   []string `json:"score_rationale"`
	DocumentMaturity string   `json:"document_maturity"`

	UploadedFrameworks map[string]bool `json:"uploaded_frameworks"`

	CurrentStep int      `json:"current_step"`
	Errors      []string `json:"errors"`
}

// NewAnalysisState creates the initial state for a run: empty collections, zero scores
func NewAnalysisState(documentID uuid.UUID, text, documentType string, frameworks map[string]bool) *AnalysisState {
	uploaded := make(map[string]bool, len(frameworks))
	for k, v := range frameworks {
		uploaded[k] = v
	}

	return &AnalysisState{
		DocumentID:         documentID,
		DocumentText:       text,
		DocumentType:       documentType,
		ComplianceFindings: []Finding{},
		SecurityFindings:   []Finding{},
		RiskFindings:       []Finding{},
		RiskLevel:          RiskLevelUnknown,
		FrameworkMappings:  map[string]FrameworkMapping{},
		GapDetections:      []GapDetection{},
		BestPractices:      []BestPractice{},
		AutoSuggestions:    []Suggestion{},
		Recommendations:    []Recommendation{},
		ScoreRationale:     []string{},
		DocumentMaturity:   MaturityUnknown,
		UploadedFrameworks: uploaded,
		Errors:             []string{},
	}
}

// AnalysisResult is the terminal state of a run plus run-level outputs
type AnalysisResult struct {
	AnalysisState

	ProcessingTime float64 `json:"processing_time"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
}

// PlaceholderResult stands in for a document whose run failed outright
func PlaceholderResult(documentID uuid.UUID, documentType, errMsg string) *AnalysisResult {
	state := NewAnalysisState(documentID, "", documentType, nil)
	state.Errors = []string{errMsg}
	return &AnalysisResult{AnalysisState: *state}
}
