package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehtasarang17/dockguard-ai/frameworks"
	"github.com/mehtasarang17/dockguard-ai/llm"
	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/prompts"
)

const samplePolicy = `# Access Control Policy
All staff accounts are reviewed by IT.
# Passwords
Passwords must be at least 12 characters.`

func runEngine(t *testing.T, e *Engine, req RunRequest) *models.AnalysisResult {
	t.Helper()
	if req.Text == "" {
		req.Text = samplePolicy
	}
	if req.DocumentType == "" {
		req.DocumentType = "policy"
	}
	res, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestEngine_Run_HappyPath(t *testing.T) {
	backend := newScriptedBackend()
	e := NewEngine(backend.routers())

	var steps []string
	res := runEngine(t, e, RunRequest{
		DocumentID: uuid.New(),
		Progress: func(step int, stage string, err error) {
			assert.NoError(t, err)
			assert.Equal(t, len(steps)+1, step)
			steps = append(steps, stage)
		},
	})

	assert.Equal(t, StageNames(), steps)
	assert.Equal(t, 10, res.CurrentStep)
	assert.Empty(t, res.Errors)

	require.NotNil(t, res.Synopsis)
	assert.Equal(t, "Access Control Policy", res.Synopsis.DocumentTitle)

	assert.Equal(t, 80, res.ComplianceScore)
	require.Len(t, res.ComplianceFindings, 1)
	assert.Equal(t, "high", res.ComplianceFindings[0].Severity)
	assert.Equal(t, 60, res.SecurityScore)
	assert.Equal(t, 70, res.RiskScore)
	assert.Equal(t, models.RiskLevelHigh, res.RiskLevel)

	// every core framework is present, scored or not
	require.Len(t, res.FrameworkMappings, len(frameworks.CoreKeys))
	iso := res.FrameworkMappings["ISO27001"]
	require.NotNil(t, iso.AlignmentScore)
	assert.Equal(t, 100.0, *iso.AlignmentScore)
	assert.Equal(t, models.SourceAIKnowledge, iso.Source)
	assert.True(t, res.FrameworkMappings["HIPAA"].NotUploaded)

	require.Len(t, res.GapDetections, 1)
	assert.Equal(t, "critical", res.GapDetections[0].Severity)

	// (80 + 60 + 70 + mean(100, 80)) / 4
	assert.Equal(t, 75, res.OverallScore)
	assert.Equal(t, models.Score(55), res.ScoringDetails.Coverage.Score)
	assert.Equal(t, models.MaturityEstablished, res.DocumentMaturity)

	require.Len(t, res.BestPractices, 2)
	require.Len(t, res.AutoSuggestions, 1)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "Write an offboarding procedure", res.Recommendations[0].Action)

	// ten calls at 10 in and 5 out each
	assert.Equal(t, 100, res.InputTokens)
	assert.Equal(t, 50, res.OutputTokens)
	assert.Equal(t, 150, res.TotalTokens)
	assert.GreaterOrEqual(t, res.ProcessingTime, 0.0)
}

func TestEngine_Run_PassesContextForward(t *testing.T) {
	backend := newScriptedBackend()
	runEngine(t, NewEngine(backend.routers()), RunRequest{DocumentID: uuid.New()})

	compliance := backend.promptsFor(StageCompliance)
	require.Len(t, compliance, 1)
	assert.Contains(t, compliance[0], "Access Control Policy")

	gaps := backend.promptsFor(StageGapDetection)
	require.Len(t, gaps, 1)
	assert.Contains(t, gaps[0], "No review cadence")
	assert.Contains(t, gaps[0], "MFA optional")

	final := backend.promptsFor(StageFinalize)
	require.Len(t, final, 1)
	assert.Contains(t, final[0], "Add offboarding")
	assert.Contains(t, final[0], "Passwords")
	assert.NotContains(t, final[0], "Logging")
}

func TestEngine_Run_SingleStageFailure(t *testing.T) {
	for _, stage := range StageNames() {
		t.Run(stage, func(t *testing.T) {
			backend := newScriptedBackend()
			backend.failures[stage] = errModelDown

			var reported []string
			res := runEngine(t, NewEngine(backend.routers()), RunRequest{
				DocumentID: uuid.New(),
				Progress: func(_ int, name string, err error) {
					if err != nil {
						reported = append(reported, name)
					}
				},
			})

			assert.Equal(t, 10, res.CurrentStep)
			require.Len(t, res.Errors, 1)
			assert.True(t, strings.HasPrefix(res.Errors[0], stage+": "), res.Errors[0])
			assert.Contains(t, res.Errors[0], "model unavailable")
			assert.Equal(t, []string{stage}, reported)

			// the stages after the failed one still produce output
			if stage != StageFinalize {
				assert.NotEmpty(t, res.Recommendations)
			}
			if stage != StageSuggestions {
				assert.Len(t, res.AutoSuggestions, 1)
			}
			if stage != StageSynopsis {
				assert.NotNil(t, res.Synopsis)
			}
			assert.Len(t, res.FrameworkMappings, len(frameworks.CoreKeys))
		})
	}
}

func TestEngine_Run_FailedStageKeepsDefaults(t *testing.T) {
	backend := newScriptedBackend()
	backend.failures[StageRisk] = errModelDown
	backend.failures[StageFrameworkMapping] = errModelDown

	res := runEngine(t, NewEngine(backend.routers()), RunRequest{DocumentID: uuid.New()})

	require.Len(t, res.Errors, 2)
	assert.Equal(t, 0, res.RiskScore)
	assert.Equal(t, models.RiskLevelUnknown, res.RiskLevel)
	assert.Empty(t, res.RiskFindings)
	for key, m := range res.FrameworkMappings {
		assert.True(t, m.NotUploaded, key)
		assert.Nil(t, m.AlignmentScore, key)
	}
	// no framework term: (80 + 60 + 0) / 3
	assert.Equal(t, 47, res.OverallScore)
}

func TestEngine_Run_FinalizeFallback(t *testing.T) {
	backend := newScriptedBackend()
	backend.failures[StageFinalize] = errModelDown

	res := runEngine(t, NewEngine(backend.routers()), RunRequest{DocumentID: uuid.New()})

	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], StageFinalize+": "))
	// one high compliance finding and one critical gap; the medium security finding is skipped
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, "Address compliance issue: No review cadence", res.Recommendations[0].Action)
	assert.Equal(t, "compliance", res.Recommendations[0].Category)
	assert.Equal(t, "Close gap: No offboarding procedure", res.Recommendations[1].Action)
	assert.Equal(t, "documentation", res.Recommendations[1].Category)
	assert.Equal(t, "Leavers keep access", res.Recommendations[1].Rationale)
}

func TestEngine_Run_StandardRetrieval(t *testing.T) {
	sections := map[string][]prompts.StandardSection{
		"GDPR": {{Source: "gdpr.pdf", Version: "2016", Text: "Personal data shall be processed lawfully."}},
	}

	t.Run("uploaded standard compared, others from knowledge", func(t *testing.T) {
		backend := newScriptedBackend()
		backend.responses[StageFrameworkMapping] = `{"HIPAA": {"alignment_score": 40}}`
		standards := &fakeStandards{sections: sections}

		res := runEngine(t, NewEngine(backend.routers(), EngineWithStandardSearcher(standards)), RunRequest{
			DocumentID: uuid.New(),
			Frameworks: map[string]bool{"GDPR": true, "HIPAA": false},
		})

		assert.Empty(t, res.Errors)
		require.Len(t, res.FrameworkMappings, 2)
		assert.Equal(t, models.SourceUploadedStandard, res.FrameworkMappings["GDPR"].Source)
		assert.Equal(t, "2016", res.FrameworkMappings["GDPR"].StandardVersion)
		assert.Equal(t, models.SourceAIKnowledge, res.FrameworkMappings["HIPAA"].Source)
		assert.Equal(t, []string{"GDPR/10/" + itoa(len([]rune(samplePolicy)))}, standards.queries)

		comparison := backend.promptsFor("framework_comparison")
		require.Len(t, comparison, 1)
		assert.Contains(t, comparison[0], "Personal data shall be processed lawfully.")

		knowledge := backend.promptsFor(StageFrameworkMapping)
		require.Len(t, knowledge, 1)
		assert.Contains(t, knowledge[0], "1. HIPAA")
		assert.NotContains(t, knowledge[0], "GDPR")

		// (80 + 60 + 70 + mean(90, 40)) / 4
		assert.Equal(t, 69, res.OverallScore)
	})

	t.Run("retrieval failure falls back to knowledge", func(t *testing.T) {
		backend := newScriptedBackend()
		backend.responses[StageFrameworkMapping] = `{"GDPR": {"alignment_score": 55}, "HIPAA": {"alignment_score": 40}}`
		standards := &fakeStandards{err: errors.New("vector store offline")}

		res := runEngine(t, NewEngine(backend.routers(), EngineWithStandardSearcher(standards)), RunRequest{
			DocumentID: uuid.New(),
			Frameworks: map[string]bool{"GDPR": true, "HIPAA": false},
		})

		require.Len(t, res.Errors, 1)
		assert.True(t, strings.HasPrefix(res.Errors[0], "framework_mapping: GDPR: "), res.Errors[0])
		assert.Equal(t, models.SourceAIKnowledge, res.FrameworkMappings["GDPR"].Source)
		require.NotNil(t, res.FrameworkMappings["GDPR"].AlignmentScore)
		assert.Equal(t, 55.0, *res.FrameworkMappings["GDPR"].AlignmentScore)
		assert.Empty(t, backend.promptsFor("framework_comparison"))
	})

	t.Run("no matching sections is not an error", func(t *testing.T) {
		backend := newScriptedBackend()
		backend.responses[StageFrameworkMapping] = `{"GDPR": {"alignment_score": 55}}`
		standards := &fakeStandards{sections: map[string][]prompts.StandardSection{}}

		res := runEngine(t, NewEngine(backend.routers(), EngineWithStandardSearcher(standards)), RunRequest{
			DocumentID: uuid.New(),
			Frameworks: map[string]bool{"GDPR": true},
		})

		assert.Empty(t, res.Errors)
		assert.Equal(t, models.SourceAIKnowledge, res.FrameworkMappings["GDPR"].Source)
	})

	t.Run("without a searcher uploaded keys use knowledge", func(t *testing.T) {
		backend := newScriptedBackend()
		backend.responses[StageFrameworkMapping] = `{"GDPR": {"alignment_score": 55}}`

		res := runEngine(t, NewEngine(backend.routers()), RunRequest{
			DocumentID: uuid.New(),
			Frameworks: map[string]bool{"GDPR": true},
		})

		assert.Empty(t, res.Errors)
		assert.Equal(t, models.SourceAIKnowledge, res.FrameworkMappings["GDPR"].Source)
	})
}

func TestEngine_Run_MistypedFieldsKeepTheRest(t *testing.T) {
	backend := newScriptedBackend()
	backend.responses[StageCompliance] = `{"findings": [
		{"issue": "No review cadence", "severity": "High", "section": 4},
		{"issue": ["Retention", "undefined"], "severity": "low"}], "score": "80"}`
	backend.responses[StageFrameworkMapping] = `{
		"ISO27001": {"alignment_score": "85", "mapped_controls": [{"control_id": 5.15, "status": "met"}, 7]},
		"SOC2": {"alignment_score": 140},
		"GDPR": "not applicable",
		"HIPAA": {"alignment_score": "n/a", "summary": "Unclear"}}`
	backend.responses[StageGapDetection] = `{"gaps": [{"gap_title": "No offboarding procedure", "severity": "critical", "details": {"owner": "HR"}}]}`

	res := runEngine(t, NewEngine(backend.routers()), RunRequest{
		DocumentID: uuid.New(),
		Frameworks: map[string]bool{"ISO27001": false, "SOC2": false, "GDPR": false, "HIPAA": false},
	})

	assert.Empty(t, res.Errors)

	assert.Equal(t, 80, res.ComplianceScore)
	require.Len(t, res.ComplianceFindings, 2)
	assert.Equal(t, "4", res.ComplianceFindings[0].Section)
	assert.Equal(t, "high", res.ComplianceFindings[0].Severity)
	assert.Equal(t, "Retention, undefined", res.ComplianceFindings[1].Issue)

	require.Len(t, res.FrameworkMappings, 4)
	iso := res.FrameworkMappings["ISO27001"]
	require.NotNil(t, iso.AlignmentScore)
	assert.Equal(t, 85.0, *iso.AlignmentScore)
	require.Len(t, iso.MappedControls, 2)
	assert.Equal(t, "5.15", iso.MappedControls[0].ControlID)
	assert.Equal(t, "7", iso.MappedControls[1].ControlName)

	soc2 := res.FrameworkMappings["SOC2"]
	require.NotNil(t, soc2.AlignmentScore)
	assert.Equal(t, 100.0, *soc2.AlignmentScore)

	// only the malformed entry is dropped
	assert.True(t, res.FrameworkMappings["GDPR"].NotUploaded)

	hipaa := res.FrameworkMappings["HIPAA"]
	assert.Nil(t, hipaa.AlignmentScore)
	assert.False(t, hipaa.NotUploaded)
	assert.Equal(t, "Unclear", hipaa.Summary)
	assert.Equal(t, models.SourceAIKnowledge, hipaa.Source)

	require.Len(t, res.GapDetections, 1)
	assert.Equal(t, `{"owner": "HR"}`, res.GapDetections[0].Details)
}

func TestEngine_Run_RecoversPanickingStage(t *testing.T) {
	backend := newScriptedBackend()
	e := NewEngine(backend.routers())
	e.stages[2].fn = func(context.Context, *stageRun) (stageUpdate, error) {
		panic("boom")
	}

	calls := 0
	res := runEngine(t, e, RunRequest{
		DocumentID: uuid.New(),
		Progress:   func(int, string, error) { calls++ },
	})

	assert.Equal(t, 10, calls)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "security: panic: boom", res.Errors[0])
	assert.NotEmpty(t, res.Recommendations)
}

func TestEngine_Run_RouterUnavailable(t *testing.T) {
	_, err := NewEngine(nil).Run(context.Background(), RunRequest{Text: "x"})
	assert.ErrorIs(t, err, llm.ErrNoBackend)

	failing := func(context.Context) (*llm.Router, error) { return nil, errModelDown }
	_, err = NewEngine(failing).Run(context.Background(), RunRequest{Text: "x"})
	assert.ErrorIs(t, err, errModelDown)
}

func TestOverallScore(t *testing.T) {
	score := func(v float64) *float64 { return &v }

	t.Run("three terms without framework scores", func(t *testing.T) {
		s := models.NewAnalysisState(uuid.New(), "", "policy", nil)
		s.ComplianceScore, s.SecurityScore, s.RiskScore = 80, 60, 70
		s.FrameworkMappings["GDPR"] = models.NotEvaluatedMapping()

		overall, rationale := overallScore(s, models.ScoringDetails{})
		assert.Equal(t, 70, overall)
		assert.Equal(t, []string{"Compliance Score: 80/100", "Security Score: 60/100", "Risk Score: 70/100"}, rationale)
	})

	t.Run("framework average as fourth term", func(t *testing.T) {
		s := models.NewAnalysisState(uuid.New(), "", "policy", nil)
		s.ComplianceScore, s.SecurityScore, s.RiskScore = 80, 60, 70
		s.FrameworkMappings["ISO27001"] = models.FrameworkMapping{AlignmentScore: score(100)}
		s.FrameworkMappings["SOC2"] = models.FrameworkMapping{AlignmentScore: score(80)}
		s.FrameworkMappings["HIPAA"] = models.NotEvaluatedMapping()

		details := models.ScoringDetails{
			Clarity: models.DimensionScore{Score: 90, Rationale: "Plain language"},
		}
		overall, rationale := overallScore(s, details)
		assert.Equal(t, 75, overall)
		assert.Equal(t, []string{
			"Compliance Score: 80/100",
			"Security Score: 60/100",
			"Risk Score: 70/100",
			"Framework Avg: 90/100",
			"Clarity: Plain language",
		}, rationale)
	})
}

func TestFallbackRecommendations(t *testing.T) {
	s := models.NewAnalysisState(uuid.New(), "", "policy", nil)
	s.ComplianceFindings = []models.Finding{{Issue: "X", Severity: "critical"}, {Issue: "Y", Severity: "low"}}
	s.SecurityFindings = []models.Finding{{Severity: "high"}}

	recs := fallbackRecommendations(s)
	require.Len(t, recs, 2)
	assert.Equal(t, "Address compliance issue: X", recs[0].Action)
	assert.Equal(t, "high", recs[0].Priority)
	assert.Equal(t, "Remediate security issue: Unknown", recs[1].Action)

	for i := 0; i < 15; i++ {
		s.GapDetections = append(s.GapDetections, models.GapDetection{GapTitle: "gap", Severity: "high"})
	}
	assert.Len(t, fallbackRecommendations(s), maxFallbackRecommendations)

	empty := models.NewAnalysisState(uuid.New(), "", "policy", nil)
	assert.NotNil(t, fallbackRecommendations(empty))
	assert.Empty(t, fallbackRecommendations(empty))
}

func TestNormalizeLabels(t *testing.T) {
	assert.Equal(t, "critical", normalizeRiskLevel(" Critical "))
	assert.Equal(t, models.RiskLevelMedium, normalizeRiskLevel("severe"))
	assert.Equal(t, models.MaturityMature, normalizeMaturity("MATURE"))
	assert.Equal(t, models.MaturityDeveloping, normalizeMaturity(""))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "éé", truncateRunes("ééé", 2))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
