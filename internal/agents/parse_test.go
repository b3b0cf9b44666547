package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurant/docpipe/internal/domain"
)

func TestParseFields_CleanJSON(t *testing.T) {
	fields, err := ParseFields(`{
		"total_amount": {"value": 50000, "confidence": 0.9},
		"currency": {"value": "USD", "confidence": 0.8}
	}`)
	require.NoError(t, err)

	require.Len(t, fields, 2)
	assert.Equal(t, 50000.0, fields["total_amount"].Value)
	assert.Equal(t, 0.9, fields["total_amount"].Confidence)
	assert.Equal(t, "USD", fields["currency"].Value)
}

func TestParseFields_RepairsCommonDamage(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "markdown fence",
			content: "```json\n" +
				`{"total_amount": {"value": 100, "confidence": 0.5}}` +
				"\n```",
		},
		{
			name:    "surrounding prose",
			content: `Here is the extraction: {"total_amount": {"value": 100, "confidence": 0.5}} Hope that helps!`,
		},
		{
			name:    "trailing comma",
			content: `{"total_amount": {"value": 100, "confidence": 0.5},}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := ParseFields(tt.content)
			require.NoError(t, err)
			require.Contains(t, fields, "total_amount")
			assert.Equal(t, 100.0, fields["total_amount"].Value)
		})
	}
}

func TestParseFields_UnrepairableFails(t *testing.T) {
	_, err := ParseFields("I could not analyze this document.")
	assert.Error(t, err)
}

func TestParseFields_ClampsConfidence(t *testing.T) {
	fields, err := ParseFields(`{
		"a": {"value": 1, "confidence": 1.7},
		"b": {"value": 2, "confidence": -0.3}
	}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, fields["a"].Confidence)
	assert.Equal(t, 0.0, fields["b"].Confidence)
}

func TestParseFields_DropsNullValues(t *testing.T) {
	fields, err := ParseFields(`{
		"present": {"value": "x", "confidence": 0.5},
		"absent": {"value": null, "confidence": 0.9}
	}`)
	require.NoError(t, err)
	assert.Contains(t, fields, "present")
	assert.NotContains(t, fields, "absent")
}

func TestParseFields_PreservesCompositeValues(t *testing.T) {
	fields, err := ParseFields(`{
		"risk_factors": {"value": ["liability exposure", "penalty clauses"], "confidence": 0.6}
	}`)
	require.NoError(t, err)

	fv, ok := fields["risk_factors"]
	require.True(t, ok)
	assert.Equal(t, []any{"liability exposure", "penalty clauses"}, fv.Value)
	assert.IsType(t, domain.FieldValue{}, fv)
}
