package service

import (
	"fmt"
	"math"

	"github.com/mehtasarang17/dockguard-ai/models"
)

const maxFallbackRecommendations = 10

// overallScore averages the compliance, security and risk scores, plus the mean
// framework alignment when at least one mapping carries a score. It also builds
// the rationale bullets shown with the score.
func overallScore(s *models.AnalysisState, details models.ScoringDetails) (int, []string) {
	scores := []float64{float64(s.ComplianceScore), float64(s.SecurityScore), float64(s.RiskScore)}

	var fwSum float64
	var fwCount int
	for _, m := range s.FrameworkMappings {
		if m.AlignmentScore != nil {
			fwSum += *m.AlignmentScore
			fwCount++
		}
	}
	if fwCount > 0 {
		scores = append(scores, fwSum/float64(fwCount))
	}

	var sum float64
	for _, v := range scores {
		sum += v
	}
	overall := int(math.Round(sum / float64(len(scores))))

	rationale := []string{
		fmt.Sprintf("Compliance Score: %d/100", s.ComplianceScore),
		fmt.Sprintf("Security Score: %d/100", s.SecurityScore),
		fmt.Sprintf("Risk Score: %d/100", s.RiskScore),
	}
	if fwCount > 0 {
		rationale = append(rationale, fmt.Sprintf("Framework Avg: %d/100", int(math.Round(fwSum/float64(fwCount)))))
	}
	for _, dim := range details.Dimensions() {
		if dim.Rationale != "" {
			rationale = append(rationale, fmt.Sprintf("%s: %s", dim.Label, dim.Rationale))
		}
	}
	return overall, rationale
}

// fallbackRecommendations builds an action plan without the model: one entry per
// high or critical compliance and security finding, then per critical or high gap
func fallbackRecommendations(s *models.AnalysisState) []models.Recommendation {
	recs := []models.Recommendation{}

	for _, f := range s.ComplianceFindings {
		if isHighOrCritical(f.Severity) {
			recs = append(recs, models.Recommendation{
				Action:    fmt.Sprintf("Address compliance issue: %s", orUnknown(f.Title())),
				Priority:  "high",
				Category:  "compliance",
				Effort:    "moderate",
				Rationale: fmt.Sprintf("Identified as %s severity compliance finding.", f.Severity),
			})
		}
	}
	for _, f := range s.SecurityFindings {
		if isHighOrCritical(f.Severity) {
			recs = append(recs, models.Recommendation{
				Action:    fmt.Sprintf("Remediate security issue: %s", orUnknown(f.Title())),
				Priority:  "high",
				Category:  "security",
				Effort:    "moderate",
				Rationale: fmt.Sprintf("Identified as %s severity security finding.", f.Severity),
			})
		}
	}
	for _, g := range s.GapDetections {
		if isHighOrCritical(g.Severity) {
			recs = append(recs, models.Recommendation{
				Action:    fmt.Sprintf("Close gap: %s", orUnknown(g.GapTitle)),
				Priority:  "high",
				Category:  "documentation",
				Effort:    "significant",
				Rationale: g.Details,
			})
		}
	}

	return head(recs, maxFallbackRecommendations)
}

func isHighOrCritical(severity string) bool {
	return severity == "high" || severity == "critical"
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
