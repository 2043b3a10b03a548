package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mehtasarang17/dockguard-ai/frameworks"
	"github.com/mehtasarang17/dockguard-ai/llm"
	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/prompts"
)

// Context caps: how much upstream output each stage passes on to the model
const (
	priorFindingsLimit     = 8
	bestPracticeGapsLimit  = 5
	suggestionGapsLimit    = 5
	finalizeItemsLimit     = 8
	maxGapDetections       = 10
	frameworkQueryChars    = 2000
	frameworkSearchTopK    = 10
	shortResponseMaxTokens = 2048
	longResponseMaxTokens  = 6144
)

type findingsResponse struct {
	Findings  []models.Finding `json:"findings"`
	Score     models.Score     `json:"score"`
	RiskLevel string           `json:"risk_level"`
}

func synopsisStage(ctx context.Context, run *stageRun) (stageUpdate, error) {
	s := run.state
	var syn models.Synopsis
	err := run.router.InvokeJSON(ctx, llm.TierFast, prompts.Synopsis(s.DocumentText, s.DocumentType), &syn,
		llm.WithMaxTokens(shortResponseMaxTokens))
	if err != nil {
		return nil, err
	}
	log.Printf("Synopsis: %q, %d sections", syn.DocumentTitle, len(syn.SectionsFound))
	return func(s *models.AnalysisState) {
		s.Synopsis = &syn
	}, nil
}

func complianceStage(ctx context.Context, run *stageRun) (stageUpdate, error) {
	s := run.state
	resp, err := invokeFindings(ctx, run.router, prompts.Compliance(s.DocumentText, s.DocumentType, s.Synopsis))
	if err != nil {
		return nil, err
	}
	return func(s *models.AnalysisState) {
		s.ComplianceFindings = resp.Findings
		s.ComplianceScore = resp.Score.Int()
	}, nil
}

func securityStage(ctx context.Context, run *stageRun) (stageUpdate, error) {
	s := run.state
	resp, err := invokeFindings(ctx, run.router, prompts.Security(s.DocumentText, s.DocumentType, s.Synopsis))
	if err != nil {
		return nil, err
	}
	return func(s *models.AnalysisState) {
		s.SecurityFindings = resp.Findings
		s.SecurityScore = resp.Score.Int()
	}, nil
}

func riskStage(ctx context.Context, run *stageRun) (stageUpdate, error) {
	s := run.state
	resp, err := invokeFindings(ctx, run.router, prompts.Risk(s.DocumentText, s.DocumentType, s.Synopsis))
	if err != nil {
		return nil, err
	}
	return func(s *models.AnalysisState) {
		s.RiskFindings = resp.Findings
		s.RiskScore = resp.Score.Int()
		s.RiskLevel = normalizeRiskLevel(resp.RiskLevel)
	}, nil
}

func invokeFindings(ctx context.Context, router *llm.Router, prompt string) (*findingsResponse, error) {
	var resp findingsResponse
	if err := router.InvokeJSON(ctx, llm.TierFast, prompt, &resp); err != nil {
		return nil, err
	}
	if resp.Findings == nil {
		resp.Findings = []models.Finding{}
	}
	for i := range resp.Findings {
		resp.Findings[i].Severity = strings.ToLower(strings.TrimSpace(resp.Findings[i].Severity))
	}
	return &resp, nil
}

// frameworkMappingStage maps the document against every requested framework.
// Keys with an uploaded standard are compared with retrieved standard text; the rest,
// including keys whose retrieval found nothing or failed, share one knowledge-based call.
// Every requested key ends up in the mapping.
func frameworkMappingStage(ctx context.Context, run *stageRun) (stageUpdate, error) {
	s := run.state
	requested := frameworks.SortedKeys(s.UploadedFrameworks)
	mappings := make(map[string]models.FrameworkMapping, len(requested))

	var failures []string
	var remaining []string
	for _, key := range requested {
		if s.UploadedFrameworks[key] && run.standards != nil {
			m, err := compareWithStandard(ctx, run, key)
			if err != nil {
				log.Printf("Warning: %s comparison with uploaded standard failed: %v", key, err)
				failures = append(failures, fmt.Sprintf("%s: %v", key, err))
			}
			if m != nil {
				mappings[key] = *m
				continue
			}
		}
		remaining = append(remaining, key)
	}

	if len(remaining) > 0 {
		// decoded per key so one malformed framework does not cost the others
		var data map[string]json.RawMessage
		err := run.router.InvokeJSON(ctx, llm.TierAccurate,
			prompts.FrameworkMapping(s.DocumentText, s.DocumentType, remaining), &data,
			llm.WithMaxTokens(longResponseMaxTokens))
		if err != nil {
			log.Printf("Warning: knowledge-based framework mapping failed: %v", err)
			failures = append(failures, fmt.Sprintf("%s: %v", models.SourceAIKnowledge, err))
		}
		for _, key := range remaining {
			raw, ok := data[key]
			if !ok {
				continue
			}
			var m models.FrameworkMapping
			if err := json.Unmarshal(raw, &m); err != nil {
				log.Printf("Warning: ignoring malformed %s mapping: %v", key, err)
				continue
			}
			m.Source = models.SourceAIKnowledge
			mappings[key] = m
		}
	}

	for _, key := range requested {
		if _, ok := mappings[key]; !ok {
			mappings[key] = models.NotEvaluatedMapping()
		}
	}

	update := func(s *models.AnalysisState) {
		s.FrameworkMappings = mappings
	}
	if len(failures) > 0 {
		return update, errors.New(strings.Join(failures, "; "))
	}
	return update, nil
}

// compareWithStandard returns nil without error when the standard has no matching text
func compareWithStandard(ctx context.Context, run *stageRun, key string) (*models.FrameworkMapping, error) {
	s := run.state
	sections, err := run.standards.SearchStandard(ctx, key, truncateRunes(s.DocumentText, frameworkQueryChars), frameworkSearchTopK)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, nil
	}

	var m models.FrameworkMapping
	prompt := prompts.FrameworkComparison(s.DocumentText, s.DocumentType, key, sections)
	if err := run.router.InvokeJSON(ctx, llm.TierAccurate, prompt, &m); err != nil {
		return nil, err
	}
	m.Source = models.SourceUploadedStandard
	return &m, nil
}

func gapDetectionStage(ctx context.Context, run *stageRun) (stageUpdate, error) {
	s := run.state
	prompt := prompts.GapDetection(s.DocumentText, s.DocumentType, s.Synopsis,
		head(s.ComplianceFindings, priorFindingsLimit), head(s.SecurityFindings, priorFindingsLimit))

	var resp struct {
		Gaps []models.GapDetection `json:"gaps"`
	}
	if err := run.router.InvokeJSON(ctx, llm.TierAccurate, prompt, &resp); err != nil {
		return nil, err
	}
	gaps := head(resp.Gaps, maxGapDetections)
	for i := range gaps {
		gaps[i].Severity = strings.ToLower(strings.TrimSpace(gaps[i].Severity))
	}
	return func(s *models.AnalysisState) {
		s.GapDetections = orEmpty(gaps)
	}, nil
}

func scoringStage(ctx context.Context, run *stageRun) (stageUpdate, error) {
	s := run.state
	var details models.ScoringDetails
	err := run.router.InvokeJSON(ctx, llm.TierFast, prompts.Scoring(s.DocumentText, s.DocumentType, s.Synopsis), &details,
		llm.WithMaxTokens(shortResponseMaxTokens))
	if err != nil {
		return nil, err
	}

	details.DocumentMaturity = normalizeMaturity(details.DocumentMaturity)
	overall, rationale := overallScore(s, details)
	return func(s *models.AnalysisState) {
		s.ScoringDetails = details
		s.OverallScore = overall
		s.ScoreRationale = rationale
		s.DocumentMaturity = details.DocumentMaturity
	}, nil
}

func bestPracticesStage(ctx context.Context, run *stageRun) (stageUpdate, error) {
	s := run.state
	prompt := prompts.BestPractices(s.DocumentText, s.DocumentType, s.Synopsis, head(s.GapDetections, bestPracticeGapsLimit))

	var resp struct {
		Comparisons []models.BestPractice `json:"comparisons"`
	}
	if err := run.router.InvokeJSON(ctx, llm.TierAccurate, prompt, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Comparisons {
		resp.Comparisons[i].Gap = strings.ToLower(strings.TrimSpace(resp.Comparisons[i].Gap))
	}
	return func(s *models.AnalysisState) {
		s.BestPractices = orEmpty(resp.Comparisons)
	}, nil
}

func suggestionsStage(ctx context.Context, run *stageRun) (stageUpdate, error) {
	s := run.state
	findings := prompts.FindingsContext{
		Compliance:       head(s.ComplianceFindings, priorFindingsLimit),
		Security:         head(s.SecurityFindings, priorFindingsLimit),
		Risk:             head(s.RiskFindings, priorFindingsLimit),
		Gaps:             head(s.GapDetections, suggestionGapsLimit),
		BestPracticeGaps: significantBestPractices(s.BestPractices),
	}

	var resp struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	prompt := prompts.Suggestions(s.DocumentText, s.DocumentType, s.Synopsis, findings)
	if err := run.router.InvokeJSON(ctx, llm.TierAccurate, prompt, &resp); err != nil {
		return nil, err
	}
	return func(s *models.AnalysisState) {
		s.AutoSuggestions = orEmpty(resp.Suggestions)
	}, nil
}

// finalizeStage synthesizes the action plan. When the model call fails the
// plan is derived from the findings themselves and the error is still reported.
func finalizeStage(ctx context.Context, run *stageRun) (stageUpdate, error) {
	s := run.state
	findings := prompts.FindingsContext{
		Compliance:       head(s.ComplianceFindings, priorFindingsLimit),
		Security:         head(s.SecurityFindings, priorFindingsLimit),
		Risk:             head(s.RiskFindings, priorFindingsLimit),
		Gaps:             head(s.GapDetections, finalizeItemsLimit),
		BestPracticeGaps: significantBestPractices(s.BestPractices),
		Suggestions:      head(s.AutoSuggestions, finalizeItemsLimit),
	}
	if s.Synopsis != nil {
		findings.DocumentTitle = s.Synopsis.DocumentTitle
		findings.StatedPurpose = s.Synopsis.StatedPurpose
	}

	var resp struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	if err := run.router.InvokeJSON(ctx, llm.TierAccurate, prompts.Recommendations(s.DocumentType, findings), &resp); err != nil {
		fallback := fallbackRecommendations(s)
		log.Printf("Warning: finalize failed, using %d fallback recommendations", len(fallback))
		return func(s *models.AnalysisState) {
			s.Recommendations = fallback
		}, err
	}
	return func(s *models.AnalysisState) {
		s.Recommendations = orEmpty(resp.Recommendations)
	}, nil
}

// significantBestPractices keeps the high and medium gaps among the first few comparisons
func significantBestPractices(all []models.BestPractice) []models.BestPractice {
	var out []models.BestPractice
	for _, bp := range head(all, bestPracticeGapsLimit) {
		if bp.Gap == "high" || bp.Gap == "medium" {
			out = append(out, bp)
		}
	}
	return out
}

func normalizeRiskLevel(level string) string {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case models.RiskLevelLow, models.RiskLevelMedium, models.RiskLevelHigh, models.RiskLevelCritical:
		return l
	default:
		return models.RiskLevelMedium
	}
}

func normalizeMaturity(maturity string) string {
	switch m := strings.ToLower(strings.TrimSpace(maturity)); m {
	case models.MaturityBasic, models.MaturityDeveloping, models.MaturityEstablished,
		models.MaturityMature, models.MaturityOptimized:
		return m
	default:
		return models.MaturityDeveloping
	}
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
