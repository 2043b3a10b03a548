package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehtasarang17/dockguard-ai/chunkindex"
	"github.com/mehtasarang17/dockguard-ai/models"
)

func TestKnowledgeService(t *testing.T) {
	ctx := context.Background()
	access := &models.Document{ID: uuid.New(), Filename: "access.md", ExtractedText: samplePolicy}
	backup := &models.Document{ID: uuid.New(), Filename: "backup.md", ExtractedText: "# Backup\nBackups run nightly and are restored quarterly."}
	empty := &models.Document{ID: uuid.New(), Filename: "empty.md", ExtractedText: "  "}
	docs := newMemDocuments(access, backup, empty)
	kb := NewKnowledgeService(docs, chunkindex.NewMemoryStore(), bagOfWordsEmbedder{})

	res, err := kb.Save(ctx, access.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "medium", res.Preset)
	assert.Equal(t, 2, res.ChunkCount)

	_, err = kb.Save(ctx, backup.ID, "LARGE")
	require.NoError(t, err)

	saved, err := docs.GetByID(ctx, access.ID)
	require.NoError(t, err)
	assert.True(t, saved.InKnowledge)

	t.Run("search", func(t *testing.T) {
		hits, err := kb.Search(ctx, "nightly backups restored", 0, "")
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, "backup.md", hits[0].Label)

		hits, err = kb.Search(ctx, "nightly backups restored", 500, "backup.md")
		require.NoError(t, err)
		for _, h := range hits {
			assert.NotEqual(t, "backup.md", h.Label)
		}
	})

	t.Run("full text", func(t *testing.T) {
		text, err := kb.FullText(ctx, "access.md")
		require.NoError(t, err)
		assert.True(t, strings.Contains(text, "Passwords must be at least 12 characters."))

		_, err = kb.FullText(ctx, "missing.md")
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	})

	t.Run("stats and sources", func(t *testing.T) {
		stats, err := kb.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.DocumentCount)
		assert.Equal(t, 3, stats.ChunkCount)

		sources, err := kb.Sources(ctx)
		require.NoError(t, err)
		require.Len(t, sources, 2)
		assert.Equal(t, access.ID.String(), sources[0].SourceID)
	})

	t.Run("unsave", func(t *testing.T) {
		require.NoError(t, kb.Unsave(ctx, backup.ID))
		stats, err := kb.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.DocumentCount)

		doc, err := docs.GetByID(ctx, backup.ID)
		require.NoError(t, err)
		assert.False(t, doc.InKnowledge)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := kb.Save(ctx, uuid.New(), "small")
		assert.ErrorIs(t, err, ErrDocumentNotFound)

		_, err = kb.Save(ctx, empty.ID, "small")
		assert.Error(t, err)
	})
}
