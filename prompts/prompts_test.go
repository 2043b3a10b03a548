package prompts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehtasarang17/dockguard-ai/models"
)

func TestTrim(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "policy text", Trim("policy text"))
	})

	t.Run("limit is inclusive", func(t *testing.T) {
		text := strings.Repeat("a", MaxDocumentChars)
		assert.Equal(t, text, Trim(text))
	})

	t.Run("long text sampled", func(t *testing.T) {
		text := strings.Repeat("h", 40000) + strings.Repeat("m", 40000) + strings.Repeat("t", 40000)
		out := Trim(text)

		assert.Equal(t, 2, strings.Count(out, "[... content omitted for length ...]"))
		assert.True(t, strings.HasPrefix(out, "hhh"))
		assert.True(t, strings.HasSuffix(out, "ttt"))
		assert.Contains(t, out, "mmm")
		third := MaxDocumentChars / 3
		assert.Equal(t, 3*third+2*utf8.RuneCountInString(omissionMarker), utf8.RuneCountInString(out))
	})

	t.Run("counts runes", func(t *testing.T) {
		text := strings.Repeat("é", MaxDocumentChars+1)
		out := Trim(text)
		assert.True(t, utf8.ValidString(out))
		assert.Contains(t, out, "omitted")
	})
}

func TestSynopsisBlockOptional(t *testing.T) {
	without := Compliance("Body.", "policy", nil)
	assert.NotContains(t, without, "DOCUMENT SYNOPSIS")

	with := Compliance("Body.", "policy", &models.Synopsis{DocumentTitle: "Access Policy"})
	assert.Contains(t, with, "DOCUMENT SYNOPSIS")
	assert.Contains(t, with, `"document_title": "Access Policy"`)
}

func TestGapDetectionPriorFindings(t *testing.T) {
	p := GapDetection("Body.", "policy", nil, nil, nil)
	assert.NotContains(t, p, "FINDINGS FROM PRIOR ANALYSIS")

	p = GapDetection("Body.", "policy", nil, []models.Finding{{Issue: "No retention period", Severity: "high"}}, nil)
	assert.Contains(t, p, "FINDINGS FROM PRIOR ANALYSIS")
	assert.Contains(t, p, "No retention period")
	assert.NotContains(t, p, "security_findings")
}

func TestFrameworkMappingListsEveryKey(t *testing.T) {
	p := FrameworkMapping("Body.", "policy", []string{"GDPR", "ISO27001"})
	assert.Contains(t, p, `"GDPR": {`)
	assert.Contains(t, p, `"ISO27001": {`)
	assert.Contains(t, p, "Annex A")

	p = FrameworkMapping("Body.", "policy", []string{"HIPAA"})
	assert.NotContains(t, p, "Annex A")
}

func TestFrameworkComparisonSections(t *testing.T) {
	p := FrameworkComparison("Body.", "policy", "GDPR", []StandardSection{
		{Source: "gdpr.md", Version: "2016", Text: "Article 5 principles"},
		{Source: "gdpr.md", Text: "Article 32 security"},
	})
	assert.Contains(t, p, "[Section from gdpr.md v2016]\nArticle 5 principles")
	assert.Contains(t, p, "[Section from gdpr.md v?]\nArticle 32 security")
	assert.Contains(t, p, "\n\n---\n\n")
}

func TestRecommendationsOmitsEmptyLists(t *testing.T) {
	p := Recommendations("policy", FindingsContext{
		DocumentTitle: "Access Policy",
		Gaps:          []models.GapDetection{{GapTitle: "No MFA", Severity: "high"}},
	})
	assert.Contains(t, p, `"document_type": "policy"`)
	assert.Contains(t, p, "No MFA")
	assert.NotContains(t, p, "compliance_findings")
	assert.NotContains(t, p, "suggestions\"")
}

func TestCrossDocumentGapsCapsChunks(t *testing.T) {
	var chunks []CrossRefChunk
	for i := 0; i < 25; i++ {
		chunks = append(chunks, CrossRefChunk{Filename: "a.md", Text: "excerpt"})
	}
	p := CrossDocumentGaps([]DocumentGapSummary{{Filename: "a.md"}}, chunks)
	require.Equal(t, MaxCrossRefChunks, strings.Count(p, "[From: a.md]"))
}

func TestSynthesisCountsDocuments(t *testing.T) {
	p := Synthesis([]DocumentScoreSummary{{Filename: "a.md"}, {Filename: "b.md"}})
	assert.Contains(t, p, "results of 2 policy documents")
}
