package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/mehtasarang17/dockguard-ai/chunkindex"
	"github.com/mehtasarang17/dockguard-ai/llm"
	"github.com/mehtasarang17/dockguard-ai/models"
	"github.com/mehtasarang17/dockguard-ai/prompts"

	"github.com/google/uuid"
)

// Cross-document resolution limits
const (
	crossRefChunkSize   = 1500
	crossRefOverlap     = 200
	crossRefMaxQueries  = 15
	crossRefTopK        = 5
	crossRefHitChars    = 800
	crossRefDedupeChars = 100
	summaryTopItems     = 3
	crossRefNamespace   = "batch_cross_ref_"
)

// Analyzer runs the single-document pipeline
type Analyzer interface {
	Run(ctx context.Context, req RunRequest) (*models.AnalysisResult, error)
}

// BatchProgressFunc reports progress through a batch. index is 1-based within phase.
type BatchProgressFunc func(phase string, index, total int)

// Batch phases
const (
	PhaseAnalysis     = "analysis"
	PhaseCrossDocGaps = "cross_doc_gaps"
	PhaseSynthesis    = "synthesis"
)

// BatchCoordinator analyzes a set of documents, resolves gaps across them and
// synthesizes an organization-level assessment
type BatchCoordinator struct {
	analyzer Analyzer
	routers  RouterFactory
	store    chunkindex.Store
	embedder chunkindex.Embedder
}

// BatchCoordinatorOption is a functional option for BatchCoordinator
type BatchCoordinatorOption func(*BatchCoordinator)

// BatchWithCrossRefStore sets the store holding transient cross-reference namespaces
func BatchWithCrossRefStore(store chunkindex.Store) BatchCoordinatorOption {
	return func(c *BatchCoordinator) {
		c.store = store
	}
}

// NewBatchCoordinator creates a batch coordinator. Cross-reference namespaces
// live in memory unless another store is set.
func NewBatchCoordinator(analyzer Analyzer, routers RouterFactory, embedder chunkindex.Embedder, opts ...BatchCoordinatorOption) *BatchCoordinator {
	c := &BatchCoordinator{
		analyzer: analyzer,
		routers:  routers,
		embedder: embedder,
		store:    chunkindex.NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BatchRequest describes a batch run
type BatchRequest struct {
	BatchID      uuid.UUID
	Documents    []models.BatchDocument
	DocumentType string
	Frameworks   map[string]bool
	Progress     BatchProgressFunc
}

// RunBatch analyzes every document, then resolves gaps across them and synthesizes the set.
// A *FatalBatchError is returned when the batch cannot complete; the partial result
// carries the failed or cancelled status.
func (c *BatchCoordinator) RunBatch(ctx context.Context, req BatchRequest) (*models.BatchResult, error) {
	if req.BatchID == uuid.Nil {
		req.BatchID = uuid.New()
	}
	result := &models.BatchResult{
		BatchID:           req.BatchID,
		Status:            models.JobStatusInProgress,
		IndividualResults: []models.DocumentResult{},
		DocumentCount:     len(req.Documents),
	}
	result.CrossDocGaps.Normalize()

	if len(req.Documents) == 0 {
		result.Status = models.JobStatusFailed
		return result, &FatalBatchError{Phase: PhaseAnalysis, Err: ErrNoDocuments}
	}

	start := time.Now()
	log.Printf("Batch %s: analyzing %d documents", req.BatchID, len(req.Documents))

	// Phase 1
	for i, doc := range req.Documents {
		if err := ctx.Err(); err != nil {
			log.Printf("Warning: batch %s cancelled after %d of %d documents", req.BatchID, i, len(req.Documents))
			result.Status = models.JobStatusCancelled
			result.ProcessingTime = elapsedSeconds(start)
			return result, &FatalBatchError{Phase: PhaseAnalysis, Err: err}
		}
		if req.Progress != nil {
			req.Progress(PhaseAnalysis, i+1, len(req.Documents))
		}

		log.Printf("Batch %s: document %d/%d %s", req.BatchID, i+1, len(req.Documents), doc.Filename)
		res := c.analyzeDocument(context.WithoutCancel(ctx), doc, req)
		result.IndividualResults = append(result.IndividualResults, models.DocumentResult{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Result:     res,
		})
	}

	// The remaining phases are not interrupted by cancellation
	work := context.WithoutCancel(ctx)

	if req.Progress != nil {
		req.Progress(PhaseCrossDocGaps, 1, 1)
	}
	gaps, err := c.crossDocGaps(work, req, result.IndividualResults)
	if err != nil {
		result.Status = models.JobStatusFailed
		result.ProcessingTime = elapsedSeconds(start)
		return result, err
	}
	result.CrossDocGaps = gaps

	if req.Progress != nil {
		req.Progress(PhaseSynthesis, 1, 1)
	}
	result.Synthesis = c.synthesize(work, result.IndividualResults)

	total := 0
	for _, ir := range result.IndividualResults {
		total += ir.Result.TotalTokens
	}
	total += result.CrossDocGaps.TotalTokens + result.Synthesis.TotalTokens

	result.TotalTokens = total
	result.Status = models.JobStatusCompleted
	result.ProcessingTime = elapsedSeconds(start)
	log.Printf("Batch %s: completed in %.2fs, %d tokens", req.BatchID, result.ProcessingTime, total)
	return result, nil
}

// analyzeDocument never fails: an error or panic yields a zero-valued placeholder
func (c *BatchCoordinator) analyzeDocument(ctx context.Context, doc models.BatchDocument, req BatchRequest) (res *models.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: document %s panicked: %v", doc.Filename, r)
			res = models.PlaceholderResult(doc.ID, req.DocumentType, fmt.Sprintf("panic: %v", r))
		}
	}()

	res, err := c.analyzer.Run(ctx, RunRequest{
		DocumentID:   doc.ID,
		Text:         doc.Text,
		DocumentType: req.DocumentType,
		Frameworks:   req.Frameworks,
	})
	if err != nil {
		log.Printf("Warning: document %s failed: %v", doc.Filename, err)
		return models.PlaceholderResult(doc.ID, req.DocumentType, err.Error())
	}
	if res == nil {
		return models.PlaceholderResult(doc.ID, req.DocumentType, "analysis returned no result")
	}
	return res
}

// crossDocGaps indexes every document in a namespace scoped to this batch, retrieves
// excerpts relevant to each document's gaps, and asks the model which gaps another
// document resolves. Only a namespace that cannot be created is fatal.
func (c *BatchCoordinator) crossDocGaps(ctx context.Context, req BatchRequest, results []models.DocumentResult) (models.CrossDocGaps, error) {
	namespace := crossRefNamespace + req.BatchID.String()
	idx, err := chunkindex.Open(ctx, namespace, c.store, c.embedder,
		chunkindex.WithChunkSize(crossRefChunkSize), chunkindex.WithOverlap(crossRefOverlap))
	if err != nil {
		return models.CrossDocGaps{}, &FatalBatchError{Phase: PhaseCrossDocGaps, Err: err}
	}
	defer func() {
		if err := idx.Drop(context.WithoutCancel(ctx)); err != nil {
			log.Printf("Warning: failed to drop namespace %s: %v", namespace, err)
		}
	}()

	for _, doc := range req.Documents {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		if _, err := idx.Add(ctx, doc.ID.String(), doc.Filename, doc.Text); err != nil {
			log.Printf("Warning: failed to index %s for cross-reference: %v", doc.Filename, err)
		}
	}

	summaries := make([]prompts.DocumentGapSummary, 0, len(results))
	var queries []string
	for _, ir := range results {
		summaries = append(summaries, prompts.DocumentGapSummary{
			Filename:      ir.Filename,
			Synopsis:      ir.Result.Synopsis,
			GapDetections: ir.Result.GapDetections,
			OverallScore:  ir.Result.OverallScore,
		})
		for _, g := range ir.Result.GapDetections {
			queries = append(queries, g.GapTitle+" "+g.Details)
		}
	}

	chunks := c.crossReference(ctx, idx, head(queries, crossRefMaxQueries))

	gaps := models.CrossDocGaps{}
	router, err := c.routers(ctx)
	if err != nil {
		gaps.Error = err.Error()
		gaps.Normalize()
		return gaps, nil
	}
	err = router.InvokeJSON(ctx, llm.TierAccurate, prompts.CrossDocumentGaps(summaries, chunks), &gaps,
		llm.WithMaxTokens(longResponseMaxTokens))
	if err != nil {
		log.Printf("Warning: cross-document gap detection failed: %v", err)
		gaps = models.CrossDocGaps{Error: err.Error()}
	}
	gaps.TotalTokens = router.TotalTokens()
	gaps.Normalize()
	log.Printf("Cross-document gaps: %d resolved, %d corpus, %d contradictions",
		len(gaps.ResolvedGaps), len(gaps.CorpusGaps), len(gaps.Contradictions))
	return gaps, nil
}

// crossReference runs each query and keeps distinct excerpts
func (c *BatchCoordinator) crossReference(ctx context.Context, idx *chunkindex.Index, queries []string) []prompts.CrossRefChunk {
	seen := make(map[string]bool)
	var chunks []prompts.CrossRefChunk
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		hits, err := idx.Search(ctx, q, crossRefTopK, "")
		if err != nil {
			log.Printf("Warning: cross-reference search failed: %v", err)
			continue
		}
		for _, h := range hits {
			text := truncateRunes(h.Text, crossRefHitChars)
			key := truncateRunes(text, crossRefDedupeChars)
			if seen[key] {
				continue
			}
			seen[key] = true
			chunks = append(chunks, prompts.CrossRefChunk{Filename: h.Label, Text: text})
		}
	}
	return head(chunks, prompts.MaxCrossRefChunks)
}

// synthesize produces the organization-level assessment, or the mean of the
// per-document scores when the model call fails
func (c *BatchCoordinator) synthesize(ctx context.Context, results []models.DocumentResult) models.Synthesis {
	summaries := make([]prompts.DocumentScoreSummary, 0, len(results))
	for _, ir := range results {
		r := ir.Result
		topGaps := []string{}
		for _, g := range head(r.GapDetections, summaryTopItems) {
			topGaps = append(topGaps, g.GapTitle)
		}
		topRisks := []string{}
		for _, f := range head(r.RiskFindings, summaryTopItems) {
			topRisks = append(topRisks, f.Risk)
		}
		summaries = append(summaries, prompts.DocumentScoreSummary{
			Filename:         ir.Filename,
			OverallScore:     r.OverallScore,
			ComplianceScore:  r.ComplianceScore,
			SecurityScore:    r.SecurityScore,
			RiskScore:        r.RiskScore,
			RiskLevel:        r.RiskLevel,
			DocumentMaturity: r.DocumentMaturity,
			GapCount:         len(r.GapDetections),
			TopGaps:          topGaps,
			TopRisks:         topRisks,
		})
	}

	var syn models.Synthesis
	router, err := c.routers(ctx)
	if err == nil {
		err = router.InvokeJSON(ctx, llm.TierAccurate, prompts.Synthesis(summaries), &syn)
		syn.TotalTokens = router.TotalTokens()
	}
	if err != nil {
		log.Printf("Warning: multi-document synthesis failed: %v", err)
		return fallbackSynthesis(results, syn.TotalTokens, err)
	}

	syn.RiskLevel = normalizeRiskLevel(syn.RiskLevel)
	syn.DocumentMaturity = normalizeMaturity(syn.DocumentMaturity)
	normalizeSynthesis(&syn)
	log.Printf("Synthesis complete: overall_score=%d", syn.OverallScore.Int())
	return syn
}

func fallbackSynthesis(results []models.DocumentResult, tokens int, err error) models.Synthesis {
	sum := 0
	for _, ir := range results {
		sum += ir.Result.OverallScore
	}
	mean := 0
	if len(results) > 0 {
		mean = int(math.Round(float64(sum) / float64(len(results))))
	}
	syn := models.Synthesis{
		OverallScore:     models.Score(mean),
		RiskLevel:        models.RiskLevelMedium,
		DocumentMaturity: models.MaturityDeveloping,
		ExecutiveSummary: "Multi-document synthesis failed. Individual results are available.",
		TotalTokens:      tokens,
		Error:            err.Error(),
	}
	normalizeSynthesis(&syn)
	return syn
}

func normalizeSynthesis(syn *models.Synthesis) {
	syn.CoverageSummary.WellCoveredAreas = orEmpty(syn.CoverageSummary.WellCoveredAreas)
	syn.CoverageSummary.WeaklyCoveredAreas = orEmpty(syn.CoverageSummary.WeaklyCoveredAreas)
	syn.CoverageSummary.UncoveredAreas = orEmpty(syn.CoverageSummary.UncoveredAreas)
	syn.TopPriorities = orEmpty(syn.TopPriorities)
	syn.Strengths = orEmpty(syn.Strengths)
	syn.ScoreRationale = orEmpty(syn.ScoreRationale)
}

func elapsedSeconds(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*100) / 100
}
