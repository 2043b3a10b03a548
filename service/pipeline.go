package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/mehtasarang17/dockguard-ai/frameworks"
	"github.com/mehtasarang17/dockguard-ai/llm"
	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/prompts"

	"github.com/google/uuid"
)

// Stage names, in execution order
const (
	StageSynopsis         = "synopsis"
	StageCompliance       = "compliance"
	StageSecurity         = "security"
	StageRisk             = "risk"
	StageFrameworkMapping = "framework_mapping"
	StageGapDetection     = "gap_detection"
	StageScoring          = "scoring"
	StageBestPractices    = "best_practices"
	StageSuggestions      = "suggestions"
	StageFinalize         = "finalize"
)

// StageNames returns the stage names in execution order
func StageNames() []string {
	return []string{
		StageSynopsis, StageCompliance, StageSecurity, StageRisk, StageFrameworkMapping,
		StageGapDetection, StageScoring, StageBestPractices, StageSuggestions, StageFinalize,
	}
}

// RouterFactory returns a fresh router for one run
type RouterFactory func(ctx context.Context) (*llm.Router, error)

// StandardSearcher retrieves excerpts of an uploaded framework standard
type StandardSearcher interface {
	SearchStandard(ctx context.Context, key, query string, topK int) ([]prompts.StandardSection, error)
}

// ProgressFunc is called after each stage with its 1-based position
type ProgressFunc func(step int, stage string, err error)

// stageUpdate applies a stage's output to the state
type stageUpdate func(state *models.AnalysisState)

// stageFunc reads the state and returns the update to apply.
// It may return a degraded update together with an error.
type stageFunc func(ctx context.Context, run *stageRun) (stageUpdate, error)

type stage struct {
	name string
	fn   stageFunc
}

// stageRun is what a stage sees: the state so far and the run's collaborators
type stageRun struct {
	state     *models.AnalysisState
	router    *llm.Router
	standards StandardSearcher
}

// Engine runs documents through the fixed sequence of analysis stages
type Engine struct {
	routers   RouterFactory
	standards StandardSearcher
	stages    []stage
}

// EngineOption is a functional option for Engine
type EngineOption func(*Engine)

// EngineWithStandardSearcher enables retrieval against uploaded framework standards
func EngineWithStandardSearcher(s StandardSearcher) EngineOption {
	return func(e *Engine) {
		e.standards = s
	}
}

// NewEngine creates a pipeline engine. routers is called once per run.
func NewEngine(routers RouterFactory, opts ...EngineOption) *Engine {
	e := &Engine{routers: routers}
	for _, opt := range opts {
		opt(e)
	}
	e.stages = []stage{
		{StageSynopsis, synopsisStage},
		{StageCompliance, complianceStage},
		{StageSecurity, securityStage},
		{StageRisk, riskStage},
		{StageFrameworkMapping, frameworkMappingStage},
		{StageGapDetection, gapDetectionStage},
		{StageScoring, scoringStage},
		{StageBestPractices, bestPracticesStage},
		{StageSuggestions, suggestionsStage},
		{StageFinalize, finalizeStage},
	}
	return e
}

// RunRequest describes a single-document run
type RunRequest struct {
	DocumentID   uuid.UUID
	Text         string
	DocumentType string
	// Frameworks maps each requested framework key to whether a standard is uploaded for it.
	// Empty requests the core frameworks, mapped from model knowledge.
	Frameworks map[string]bool
	Progress   ProgressFunc
}

// Run analyzes one document. Stage failures are recorded in the result's errors;
// an error is returned only when the run cannot start.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*models.AnalysisResult, error) {
	if e.routers == nil {
		return nil, llm.ErrNoBackend
	}
	router, err := e.routers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create model router: %w", err)
	}

	requested := req.Frameworks
	if len(requested) == 0 {
		requested = make(map[string]bool, len(frameworks.CoreKeys))
		for _, key := range frameworks.CoreKeys {
			requested[key] = false
		}
	}

	start := time.Now()
	state := models.NewAnalysisState(req.DocumentID, req.Text, req.DocumentType, requested)
	run := &stageRun{state: state, router: router, standards: e.standards}

	log.Printf("Starting analysis of document %s (%s, %d chars)", req.DocumentID, req.DocumentType, len(req.Text))
	for i, st := range e.stages {
		stageErr := e.runStage(ctx, st, run)
		if stageErr != nil {
			state.Errors = append(state.Errors, stageErr.Error())
			log.Printf("Warning: stage %d/%d %v", i+1, len(e.stages), stageErr)
		}
		state.CurrentStep++

		if req.Progress != nil {
			req.Progress(i+1, st.name, stageErr)
		}
	}

	in, out := router.Tokens()
	result := &models.AnalysisResult{
		AnalysisState:  *state,
		ProcessingTime: math.Round(time.Since(start).Seconds()*100) / 100,
		InputTokens:    in,
		OutputTokens:   out,
		TotalTokens:    in + out,
	}
	log.Printf("Finished analysis of document %s: score=%d, %d errors, %d tokens in %.2fs",
		req.DocumentID, result.OverallScore, len(result.Errors), result.TotalTokens, result.ProcessingTime)
	return result, nil
}

// runStage executes one stage and applies its update. Panics become stage errors.
func (e *Engine) runStage(ctx context.Context, st stage, run *stageRun) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: st.name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	update, stageErr := st.fn(ctx, run)
	if update != nil {
		update(run.state)
	}
	if stageErr != nil {
		return &StageError{Stage: st.name, Err: stageErr}
	}
	return nil
}
