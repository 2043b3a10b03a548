package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehtasarang17/dockguard-ai/chunkindex"
	"github.com/mehtasarang17/dockguard-ai/models"
)

// analyzerFunc adapts a function to Analyzer
type analyzerFunc func(ctx context.Context, req RunRequest) (*models.AnalysisResult, error)

func (f analyzerFunc) Run(ctx context.Context, req RunRequest) (*models.AnalysisResult, error) {
	return f(ctx, req)
}

func scoredResult(id uuid.UUID, score, tokens int, gaps ...string) *models.AnalysisResult {
	state := models.NewAnalysisState(id, "", "policy", nil)
	state.OverallScore = score
	for _, g := range gaps {
		state.GapDetections = append(state.GapDetections, models.GapDetection{GapTitle: g, Severity: "high", Details: g + " details"})
	}
	return &models.AnalysisResult{AnalysisState: *state, TotalTokens: tokens}
}

func batchDocs(n int) []models.BatchDocument {
	texts := []string{
		"# Access\nAccounts of leavers are disabled by HR on the last day.",
		"# Backup\nBackups run nightly and are tested quarterly.",
		"# Incident\nIncidents are reported to the security team within one hour.",
	}
	docs := make([]models.BatchDocument, n)
	for i := range docs {
		docs[i] = models.BatchDocument{
			ID:       uuid.New(),
			Filename: string(rune('a'+i)) + ".md",
			Text:     texts[i%len(texts)],
		}
	}
	return docs
}

func TestBatchCoordinator_RunBatch(t *testing.T) {
	backend := newScriptedBackend()
	store := chunkindex.NewMemoryStore()
	docs := batchDocs(3)

	analyzer := analyzerFunc(func(_ context.Context, req RunRequest) (*models.AnalysisResult, error) {
		assert.Equal(t, "policy", req.DocumentType)
		switch req.DocumentID {
		case docs[0].ID:
			return scoredResult(req.DocumentID, 80, 150, "No offboarding procedure"), nil
		case docs[1].ID:
			return nil, errModelDown
		default:
			return scoredResult(req.DocumentID, 70, 150), nil
		}
	})
	c := NewBatchCoordinator(analyzer, backend.routers(), bagOfWordsEmbedder{}, BatchWithCrossRefStore(store))

	var phases []string
	res, err := c.RunBatch(context.Background(), BatchRequest{
		Documents:    docs,
		DocumentType: "policy",
		Progress: func(phase string, index, total int) {
			phases = append(phases, phase)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, res.Status)
	assert.NotEqual(t, uuid.Nil, res.BatchID)
	assert.Equal(t, 3, res.DocumentCount)
	require.Len(t, res.IndividualResults, 3)
	assert.Equal(t, []string{PhaseAnalysis, PhaseAnalysis, PhaseAnalysis, PhaseCrossDocGaps, PhaseSynthesis}, phases)

	failed := res.IndividualResults[1]
	assert.Equal(t, docs[1].ID, failed.DocumentID)
	assert.Equal(t, "b.md", failed.Filename)
	assert.Equal(t, 0, failed.Result.OverallScore)
	assert.Equal(t, []string{"model unavailable"}, failed.Result.Errors)

	require.Len(t, res.CrossDocGaps.ResolvedGaps, 1)
	assert.Equal(t, "covered", res.CrossDocGaps.ResolvedGaps[0].Status)
	assert.NotNil(t, res.CrossDocGaps.CorpusGaps)
	assert.Empty(t, res.CrossDocGaps.Error)
	assert.Equal(t, 15, res.CrossDocGaps.TotalTokens)

	assert.Equal(t, models.Score(66), res.Synthesis.OverallScore)
	assert.Equal(t, models.RiskLevelHigh, res.Synthesis.RiskLevel)
	assert.Equal(t, 15, res.Synthesis.TotalTokens)

	assert.Equal(t, 150+0+150+15+15, res.TotalTokens)

	prompt := backend.promptsFor(PhaseCrossDocGaps)
	require.Len(t, prompt, 1)
	assert.Contains(t, prompt[0], "No offboarding procedure")
	assert.Contains(t, prompt[0], "[From: a.md]")

	synthesis := backend.promptsFor(PhaseSynthesis)
	require.Len(t, synthesis, 1)
	assert.Contains(t, synthesis[0], "results of 3 policy documents")

	// the transient namespace is gone
	assert.Empty(t, store.Namespaces())
}

func TestBatchCoordinator_AnalyzerPanic(t *testing.T) {
	backend := newScriptedBackend()
	analyzer := analyzerFunc(func(_ context.Context, req RunRequest) (*models.AnalysisResult, error) {
		panic("corrupt state")
	})
	c := NewBatchCoordinator(analyzer, backend.routers(), bagOfWordsEmbedder{})

	res, err := c.RunBatch(context.Background(), BatchRequest{Documents: batchDocs(2), DocumentType: "policy"})
	require.NoError(t, err)
	require.Len(t, res.IndividualResults, 2)
	for _, ir := range res.IndividualResults {
		assert.Equal(t, []string{"panic: corrupt state"}, ir.Result.Errors)
	}
	assert.Equal(t, models.JobStatusCompleted, res.Status)
}

func TestBatchCoordinator_NoDocuments(t *testing.T) {
	c := NewBatchCoordinator(analyzerFunc(nil), newScriptedBackend().routers(), bagOfWordsEmbedder{})

	res, err := c.RunBatch(context.Background(), BatchRequest{})
	var fatal *FatalBatchError
	require.True(t, errors.As(err, &fatal))
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.Equal(t, models.JobStatusFailed, res.Status)
}

func TestBatchCoordinator_Cancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		analyzer := analyzerFunc(func(_ context.Context, req RunRequest) (*models.AnalysisResult, error) {
			calls++
			return scoredResult(req.DocumentID, 50, 0), nil
		})
		c := NewBatchCoordinator(analyzer, newScriptedBackend().routers(), bagOfWordsEmbedder{})

		res, err := c.RunBatch(ctx, BatchRequest{Documents: batchDocs(2)})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, models.JobStatusCancelled, res.Status)
		assert.Empty(t, res.IndividualResults)
		assert.Equal(t, 0, calls)
	})

	t.Run("between documents", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		backend := newScriptedBackend()
		analyzer := analyzerFunc(func(runCtx context.Context, req RunRequest) (*models.AnalysisResult, error) {
			cancel()
			// the running document is not interrupted
			assert.NoError(t, runCtx.Err())
			return scoredResult(req.DocumentID, 50, 10), nil
		})
		c := NewBatchCoordinator(analyzer, backend.routers(), bagOfWordsEmbedder{})

		res, err := c.RunBatch(ctx, BatchRequest{Documents: batchDocs(3)})
		var fatal *FatalBatchError
		require.True(t, errors.As(err, &fatal))
		assert.Equal(t, PhaseAnalysis, fatal.Phase)
		assert.Equal(t, models.JobStatusCancelled, res.Status)
		assert.Len(t, res.IndividualResults, 1)
		assert.Empty(t, backend.promptsFor(PhaseCrossDocGaps))
	})
}

func TestBatchCoordinator_CrossDocFailureStillDropsNamespace(t *testing.T) {
	backend := newScriptedBackend()
	backend.failures[PhaseCrossDocGaps] = errModelDown
	store := chunkindex.NewMemoryStore()

	analyzer := analyzerFunc(func(_ context.Context, req RunRequest) (*models.AnalysisResult, error) {
		return scoredResult(req.DocumentID, 60, 0, "Gap"), nil
	})
	c := NewBatchCoordinator(analyzer, backend.routers(), bagOfWordsEmbedder{}, BatchWithCrossRefStore(store))

	res, err := c.RunBatch(context.Background(), BatchRequest{Documents: batchDocs(2)})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, res.Status)
	assert.Contains(t, res.CrossDocGaps.Error, "model unavailable")
	assert.Empty(t, res.CrossDocGaps.ResolvedGaps)
	assert.NotNil(t, res.CrossDocGaps.ResolvedGaps)
	assert.Empty(t, store.Namespaces())
}

// brokenStore cannot create namespaces
type brokenStore struct {
	*chunkindex.MemoryStore
}

func (brokenStore) EnsureNamespace(context.Context, string) error {
	return errors.New("disk full")
}

func TestBatchCoordinator_NamespaceFailureIsFatal(t *testing.T) {
	analyzer := analyzerFunc(func(_ context.Context, req RunRequest) (*models.AnalysisResult, error) {
		return scoredResult(req.DocumentID, 60, 0), nil
	})
	c := NewBatchCoordinator(analyzer, newScriptedBackend().routers(), bagOfWordsEmbedder{},
		BatchWithCrossRefStore(brokenStore{chunkindex.NewMemoryStore()}))

	res, err := c.RunBatch(context.Background(), BatchRequest{Documents: batchDocs(2)})
	var fatal *FatalBatchError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, PhaseCrossDocGaps, fatal.Phase)
	assert.Equal(t, models.JobStatusFailed, res.Status)
	assert.Len(t, res.IndividualResults, 2)
}

func TestBatchCoordinator_SynthesisFallback(t *testing.T) {
	backend := newScriptedBackend()
	backend.failures[PhaseSynthesis] = errModelDown
	docs := batchDocs(3)
	scores := map[uuid.UUID]int{docs[0].ID: 80, docs[1].ID: 0, docs[2].ID: 71}

	analyzer := analyzerFunc(func(_ context.Context, req RunRequest) (*models.AnalysisResult, error) {
		return scoredResult(req.DocumentID, scores[req.DocumentID], 0), nil
	})
	c := NewBatchCoordinator(analyzer, backend.routers(), bagOfWordsEmbedder{})

	res, err := c.RunBatch(context.Background(), BatchRequest{Documents: docs})
	require.NoError(t, err)

	syn := res.Synthesis
	assert.Equal(t, models.Score(50), syn.OverallScore)
	assert.Equal(t, models.RiskLevelMedium, syn.RiskLevel)
	assert.Equal(t, models.MaturityDeveloping, syn.DocumentMaturity)
	assert.Equal(t, "Multi-document synthesis failed. Individual results are available.", syn.ExecutiveSummary)
	assert.Contains(t, syn.Error, "model unavailable")
	assert.NotNil(t, syn.TopPriorities)
	assert.NotNil(t, syn.CoverageSummary.UncoveredAreas)
}

func TestBatchCoordinator_CrossReferenceDedupes(t *testing.T) {
	store := chunkindex.NewMemoryStore()
	idx, err := chunkindex.Open(context.Background(), "batch_cross_ref_test", store, bagOfWordsEmbedder{})
	require.NoError(t, err)
	_, err = idx.Add(context.Background(), "1", "a.md", "Leavers lose access on their last day.")
	require.NoError(t, err)

	c := NewBatchCoordinator(nil, nil, bagOfWordsEmbedder{})
	chunks := c.crossReference(context.Background(), idx, []string{"leavers access", "  ", "access on last day"})
	require.Len(t, chunks, 1)
	assert.Equal(t, "a.md", chunks[0].Filename)
}
