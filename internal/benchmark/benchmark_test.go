package benchmark

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/domain"
)

func newEngine(pop Provider) *Engine {
	if pop == nil {
		pop = NewMemoryPopulation()
	}
	return New(config.BenchmarkConfig{
		DimensionWeights:   domain.DefaultDimensionWeights(),
		StrengthThreshold:  config.DefaultStrengthThreshold,
		WeaknessThreshold:  config.DefaultWeaknessThreshold,
		UsabilityThreshold: config.DefaultUsabilityThreshold,
	}, pop)
}

func testRecord(fields map[string]any) *domain.ContractRecord {
	conf := make(map[string]float64, len(fields))
	contrib := make(map[string][]string, len(fields))
	for name := range fields {
		conf[name] = 0.9
		contrib[name] = []string{"agent"}
	}
	return &domain.ContractRecord{
		DocumentID:        "doc-1",
		RunID:             "run-1",
		ContractType:      "saas",
		Fields:            fields,
		Confidence:        conf,
		Contributors:      contrib,
		OverallConfidence: 0.9,
		Status:            domain.StatusComplete,
	}
}

// strongFields populates every driver of every dimension favorably.
func strongFields() map[string]any {
	return map[string]any{
		domain.FieldTotalAmount: 120000.0,
		domain.FieldCurrency:    "USD",
		domain.FieldPricingItems: []domain.LineItem{
			{Description: "Seats", Quantity: 100, UnitPrice: 1200, Total: 120000, Currency: "USD"},
		},
		domain.FieldDiscountPercent:   15.0,
		domain.FieldVariancePercent:   5.0,
		domain.FieldPaymentTermsDays:  60.0,
		domain.FieldTerminationClause: true,
		domain.FieldLiabilityCap:      true,
		domain.FieldSLATarget:         "99.9%",
		domain.FieldRiskScore:         0.1,
		domain.FieldComplianceScore:   0.95,
	}
}

func TestBenchmark_StrongContractScoresHigh(t *testing.T) {
	report, err := newEngine(nil).Benchmark(context.Background(), testRecord(strongFields()))
	require.NoError(t, err)

	assert.Equal(t, domain.BenchmarkOK, report.Status)
	for _, dim := range domain.BenchmarkDimensions() {
		assert.GreaterOrEqual(t, report.Dimensions[dim], 8.0, "dimension %s", dim)
		assert.LessOrEqual(t, report.Dimensions[dim], 10.0, "dimension %s", dim)
	}
	assert.GreaterOrEqual(t, report.OverallScore, 8.0)
	assert.ElementsMatch(t, domain.BenchmarkDimensions(), report.Strengths)
	assert.Empty(t, report.Weaknesses)
	assert.Empty(t, report.Recommendations)
}

func TestBenchmark_SparseContractScoresLowWithRecommendations(t *testing.T) {
	report, err := newEngine(nil).Benchmark(context.Background(), testRecord(map[string]any{
		domain.FieldVendorName: "Acme Corp",
	}))
	require.NoError(t, err)

	assert.Contains(t, report.Weaknesses, domain.DimensionTerms)
	assert.Contains(t, report.Weaknesses, domain.DimensionCompliance)
	assert.NotEmpty(t, report.Recommendations)

	// Each recommendation names a missing driver of a weak dimension.
	for _, rec := range report.Recommendations {
		assert.Contains(t, report.Weaknesses, rec.Dimension)
		assert.NotEmpty(t, rec.Text)
	}
}

func TestBenchmark_RiskNeutralWhenUnextracted(t *testing.T) {
	record := testRecord(map[string]any{domain.FieldTotalAmount: 100.0})
	report, err := newEngine(nil).Benchmark(context.Background(), record)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, report.Dimensions[domain.DimensionRisk], 1e-9)
}

func TestBenchmark_LowConfidenceFlaggedNotWithheld(t *testing.T) {
	record := testRecord(strongFields())
	record.OverallConfidence = 0.2
	record.Status = domain.StatusPartial

	report, err := newEngine(nil).Benchmark(context.Background(), record)
	require.NoError(t, err)

	assert.Equal(t, domain.BenchmarkLowConfidence, report.Status)
	assert.Greater(t, report.OverallScore, 0.0, "scores still computed")
}

func TestBenchmark_PercentileAgainstPopulation(t *testing.T) {
	pop := NewMemoryPopulation()
	pop.Seed("saas", 2, 4, 6, 8)

	report, err := newEngine(pop).Benchmark(context.Background(), testRecord(strongFields()))
	require.NoError(t, err)
	assert.Greater(t, report.Percentile, 50.0)
}

func TestBenchmark_Deterministic(t *testing.T) {
	pop := NewMemoryPopulation()
	pop.Seed("saas", 3, 5, 7)
	engine := newEngine(pop)
	record := testRecord(strongFields())

	a, err := engine.Benchmark(context.Background(), record)
	require.NoError(t, err)
	b, err := engine.Benchmark(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		population []float64
		want       float64
	}{
		{name: "empty population is neutral", score: 7, population: nil, want: 50},
		{name: "below all", score: 1, population: []float64{2, 4, 6}, want: 0},
		{name: "above all", score: 9, population: []float64{2, 4, 6}, want: 100},
		{name: "exact minimum", score: 2, population: []float64{2, 4, 6}, want: 0},
		{name: "exact maximum", score: 6, population: []float64{2, 4, 6}, want: 100},
		{name: "midpoint interpolates", score: 3, population: []float64{2, 4, 6}, want: 25},
		{name: "upper half interpolates", score: 5, population: []float64{2, 4, 6}, want: 75},
		{name: "single equal entry", score: 4, population: []float64{4}, want: 50},
		{name: "single entry above", score: 5, population: []float64{4}, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(tt.score, tt.population), 1e-9)
		})
	}
}

func TestOverall_WeightsRespected(t *testing.T) {
	engine := New(config.BenchmarkConfig{
		DimensionWeights: map[domain.BenchmarkDimension]float64{
			domain.DimensionPricing:    1.0,
			domain.DimensionTerms:      0.0,
			domain.DimensionRisk:       0.0,
			domain.DimensionCompliance: 0.0,
		},
		StrengthThreshold:  config.DefaultStrengthThreshold,
		WeaknessThreshold:  config.DefaultWeaknessThreshold,
		UsabilityThreshold: config.DefaultUsabilityThreshold,
	}, NewMemoryPopulation())

	overall := engine.overall(map[domain.BenchmarkDimension]float64{
		domain.DimensionPricing:    9,
		domain.DimensionTerms:      1,
		domain.DimensionRisk:       1,
		domain.DimensionCompliance: 1,
	})
	assert.InDelta(t, 9.0, overall, 1e-9)
}
