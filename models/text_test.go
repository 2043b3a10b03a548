package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextValue(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"plain"`, "plain"},
		{`4`, "4"},
		{`true`, "true"},
		{`null`, ""},
		{`["a", 2, null, ""]`, "a, 2"},
		{`{"k": "v"}`, `{"k": "v"}`},
		{``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, textValue(json.RawMessage(tt.raw)))
		})
	}
}

func TestFinding_UnmarshalJSON(t *testing.T) {
	t.Run("numeric section", func(t *testing.T) {
		var findings []Finding
		require.NoError(t, json.Unmarshal([]byte(`[{"issue": "No owner", "severity": "high", "section": 4}]`), &findings))
		require.Len(t, findings, 1)
		assert.Equal(t, Finding{Issue: "No owner", Severity: "high", Section: "4"}, findings[0])
	})

	t.Run("bare string is the issue", func(t *testing.T) {
		var f Finding
		require.NoError(t, json.Unmarshal([]byte(`"Passwords never expire"`), &f))
		assert.Equal(t, "Passwords never expire", f.Title())
	})

	t.Run("decoding resets earlier values", func(t *testing.T) {
		f := Finding{Issue: "old", Evidence: "old"}
		require.NoError(t, json.Unmarshal([]byte(`{"risk": "new"}`), &f))
		assert.Equal(t, Finding{Risk: "new"}, f)
	})
}

func TestGapDetection_UnmarshalJSON(t *testing.T) {
	var g GapDetection
	require.NoError(t, json.Unmarshal([]byte(`{"gap_title": "No DR plan", "severity": 3, "recommendation": ["Write one", "Test it"]}`), &g))
	assert.Equal(t, GapDetection{GapTitle: "No DR plan", Severity: "3", Recommendation: "Write one, Test it"}, g)
}

func TestFrameworkMapping_UnmarshalJSON(t *testing.T) {
	decode := func(t *testing.T, raw string) FrameworkMapping {
		t.Helper()
		var m FrameworkMapping
		require.NoError(t, json.Unmarshal([]byte(raw), &m))
		return m
	}

	t.Run("alignment score forms", func(t *testing.T) {
		tests := []struct {
			raw  string
			want *float64
		}{
			{`{"alignment_score": 72.5}`, ptr(72.5)},
			{`{"alignment_score": "85"}`, ptr(85)},
			{`{"alignment_score": "60%"}`, ptr(60)},
			{`{"alignment_score": 140}`, ptr(100)},
			{`{"alignment_score": -5}`, ptr(0)},
			{`{"alignment_score": "n/a"}`, nil},
			{`{"alignment_score": null}`, nil},
			{`{}`, nil},
		}
		for _, tt := range tests {
			t.Run(tt.raw, func(t *testing.T) {
				assert.Equal(t, tt.want, decode(t, tt.raw).AlignmentScore)
			})
		}
	})

	t.Run("controls keep what decodes", func(t *testing.T) {
		m := decode(t, `{"mapped_controls": [{"article": 32, "status": "partial"}, "Art. 30"], "summary": ["a", "b"]}`)
		assert.Equal(t, []MappedControl{{Article: "32", Status: "partial"}, {ControlName: "Art. 30"}}, m.MappedControls)
		assert.Equal(t, "a, b", m.Summary)
	})

	t.Run("controls that are not a list are dropped", func(t *testing.T) {
		m := decode(t, `{"alignment_score": 50, "mapped_controls": "none"}`)
		assert.Nil(t, m.MappedControls)
		require.NotNil(t, m.AlignmentScore)
	})

	t.Run("one bad entry does not fail the others", func(t *testing.T) {
		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(`{"GDPR": {"alignment_score": "85"}, "HIPAA": "not applicable"}`), &raw))

		var gdpr, hipaa FrameworkMapping
		require.NoError(t, json.Unmarshal(raw["GDPR"], &gdpr))
		assert.Error(t, json.Unmarshal(raw["HIPAA"], &hipaa))
		assert.Equal(t, ptr(85), gdpr.AlignmentScore)
	})

	t.Run("round trip of a stored mapping", func(t *testing.T) {
		in := FrameworkMapping{AlignmentScore: ptr(40), Source: SourceUploadedStandard, StandardVersion: "2022", NotUploaded: false}
		b, err := json.Marshal(in)
		require.NoError(t, err)
		assert.Equal(t, in, decode(t, string(b)))
		assert.Equal(t, NotEvaluatedMapping(), decode(t, `{"not_uploaded": true}`))
	})
}

func TestScore_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want Score
	}{
		{`80`, 80},
		{`79.6`, 80},
		{`"55"`, 55},
		{`"90 %"`, 90},
		{`250`, 100},
		{`-3`, 0},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var s Score
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &s))
			assert.Equal(t, tt.want, s)
		})
	}

	var s Score
	assert.Error(t, json.Unmarshal([]byte(`"high"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`"NaN"`), &s))
}

func ptr(v float64) *float64 {
	return &v
}
