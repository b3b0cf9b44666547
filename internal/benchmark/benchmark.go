// Package benchmark scores aggregated contracts on four quality
// dimensions and ranks them against a reference population. Scoring is a
// pure function of the record; the population enters only through the
// percentile, computed against a frozen snapshot so concurrent population
// updates never bleed into an in-flight report.
package benchmark

import (
	"context"
	"fmt"
	"sort"

	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/domain"
)

// Engine benchmarks contract records.
type Engine struct {
	cfg config.BenchmarkConfig
	pop Provider
}

// New creates a benchmarking engine over the given population source.
func New(cfg config.BenchmarkConfig, pop Provider) *Engine {
	return &Engine{cfg: cfg, pop: pop}
}

// Benchmark scores the record and ranks it within its contract type's
// population. Low record confidence flags the report, it never suppresses
// it.
func (e *Engine) Benchmark(ctx context.Context, record *domain.ContractRecord) (*domain.BenchmarkReport, error) {
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("invalid contract record: %w", err)
	}

	dims := map[domain.BenchmarkDimension]float64{
		domain.DimensionPricing:    scorePricing(record),
		domain.DimensionTerms:      scoreTerms(record),
		domain.DimensionRisk:       scoreRisk(record),
		domain.DimensionCompliance: scoreCompliance(record),
	}

	overall := e.overall(dims)

	snapshot, err := e.pop.Snapshot(ctx, record.ContractType)
	if err != nil {
		return nil, fmt.Errorf("population snapshot: %w", err)
	}

	status := domain.BenchmarkOK
	if record.OverallConfidence < e.cfg.UsabilityThreshold {
		status = domain.BenchmarkLowConfidence
	}

	report := &domain.BenchmarkReport{
		ContractID:   record.DocumentID,
		ContractType: record.ContractType,
		Status:       status,
		OverallScore: overall,
		Dimensions:   dims,
		Percentile:   Percentile(overall, snapshot.Scores),
	}
	report.Strengths, report.Weaknesses = e.classify(dims)
	report.Recommendations = e.recommend(record, report.Weaknesses)

	return report, nil
}

// overall combines dimension scores by the configured weights, normalized
// so partial weight maps still average correctly.
func (e *Engine) overall(dims map[domain.BenchmarkDimension]float64) float64 {
	weights := e.cfg.DimensionWeights
	if len(weights) == 0 {
		weights = domain.DefaultDimensionWeights()
	}

	var sum, total float64
	for _, dim := range domain.BenchmarkDimensions() {
		w, ok := weights[dim]
		if !ok {
			w = 1.0 / float64(len(domain.BenchmarkDimensions()))
		}
		sum += dims[dim] * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return domain.Clamp10(sum / total)
}

// classify splits dimensions into strengths (best first) and weaknesses
// (worst first). Ties break on canonical dimension order.
func (e *Engine) classify(dims map[domain.BenchmarkDimension]float64) (strengths, weaknesses []domain.BenchmarkDimension) {
	ordered := domain.BenchmarkDimensions()
	for _, dim := range ordered {
		switch {
		case dims[dim] >= e.cfg.StrengthThreshold:
			strengths = append(strengths, dim)
		case dims[dim] <= e.cfg.WeaknessThreshold:
			weaknesses = append(weaknesses, dim)
		}
	}
	sort.SliceStable(strengths, func(i, j int) bool {
		return dims[strengths[i]] > dims[strengths[j]]
	})
	sort.SliceStable(weaknesses, func(i, j int) bool {
		return dims[weaknesses[i]] < dims[weaknesses[j]]
	})
	return strengths, weaknesses
}

// Percentile ranks a score within a population, 0-100, linearly
// interpolated between neighbors. An empty population yields the neutral
// 50th percentile.
func Percentile(score float64, population []float64) float64 {
	n := len(population)
	if n == 0 {
		return 50
	}
	if n == 1 {
		switch {
		case score < population[0]:
			return 0
		case score > population[0]:
			return 100
		default:
			return 50
		}
	}

	sorted := make([]float64, n)
	copy(sorted, population)
	sort.Float64s(sorted)

	if score <= sorted[0] {
		return 0
	}
	if score >= sorted[n-1] {
		return 100
	}

	i := sort.SearchFloat64s(sorted, score)
	lo, hi := sorted[i-1], sorted[i]
	frac := 0.0
	if hi > lo {
		frac = (score - lo) / (hi - lo)
	}
	return (float64(i-1) + frac) / float64(n-1) * 100
}

// scorePricing grades pricing transparency and favorability: a verifiable
// total and itemization form the base, discounts and stated variance caps
// add on top.
func scorePricing(record *domain.ContractRecord) float64 {
	score := 3.0
	if _, ok := record.NumberField(domain.FieldTotalAmount); ok {
		score += 2.5
	}
	if _, ok := record.StringField(domain.FieldCurrency); ok {
		score += 0.5
	}
	if items, ok := record.LineItemsField(domain.FieldPricingItems); ok && len(items) > 0 {
		score += 2.0
	}
	if discount, ok := record.NumberField(domain.FieldDiscountPercent); ok && discount > 0 {
		score += min(discount/10, 1.5)
	}
	if _, ok := record.NumberField(domain.FieldVariancePercent); ok {
		score += 0.5
	}
	return domain.Clamp10(score)
}

// scoreTerms grades obligation completeness plus payment term
// favorability for the buyer.
func scoreTerms(record *domain.ContractRecord) float64 {
	fields := domain.TermsCompletenessFields()
	present := 0
	for _, name := range fields {
		if _, ok := record.Fields[name]; ok {
			present++
		}
	}
	score := 9.0 * float64(present) / float64(len(fields))

	if days, ok := record.NumberField(domain.FieldPaymentTermsDays); ok {
		switch {
		case days >= 45:
			score += 1.0
		case days < 15:
			score -= 1.0
		}
	}
	return domain.Clamp10(score)
}

// scoreRisk inverts the extracted risk score onto the 0-10 scale; absent
// risk signal reads as neutral, and a long factor list drags the score
// further down.
func scoreRisk(record *domain.ContractRecord) float64 {
	risk, ok := record.NumberField(domain.FieldRiskScore)
	if !ok {
		return 5.0
	}
	score := 10 * (1 - domain.Clamp01(risk))

	if factors, ok := record.StringsField(domain.FieldRiskFactors); ok && len(factors) > 2 {
		score -= 0.5 * float64(len(factors)-2)
	}
	return domain.Clamp10(score)
}

// scoreCompliance prefers the explicit compliance score when extracted,
// falling back to regulatory field coverage.
func scoreCompliance(record *domain.ContractRecord) float64 {
	if cs, ok := record.NumberField(domain.FieldComplianceScore); ok {
		return domain.Clamp10(10 * domain.Clamp01(cs))
	}

	fields := domain.RequiredComplianceFields()
	present := 0
	for _, name := range fields {
		if _, ok := record.Fields[name]; ok {
			present++
		}
	}
	return domain.Clamp10(10 * float64(present) / float64(len(fields)))
}

// recommend emits one deterministic remediation per field driving each
// weakness.
func (e *Engine) recommend(record *domain.ContractRecord, weaknesses []domain.BenchmarkDimension) []domain.Recommendation {
	var out []domain.Recommendation
	for _, dim := range weaknesses {
		for _, field := range dimensionFields(dim) {
			if _, ok := record.Fields[field]; !ok {
				out = append(out, domain.Recommendation{
					Dimension: dim,
					Field:     field,
					Text:      fmt.Sprintf("negotiate or document %s to strengthen the %s dimension", field, dim),
				})
			}
		}
		if len(out) == 0 || out[len(out)-1].Dimension != dim {
			// All fields present but the dimension still scored low.
			out = append(out, domain.Recommendation{
				Dimension: dim,
				Text:      fmt.Sprintf("review %s clauses, current position scores below the acceptable band", dim),
			})
		}
	}
	return out
}

// dimensionFields maps a dimension to the record fields that drive it.
func dimensionFields(dim domain.BenchmarkDimension) []string {
	switch dim {
	case domain.DimensionPricing:
		return []string{domain.FieldTotalAmount, domain.FieldPricingItems, domain.FieldDiscountPercent}
	case domain.DimensionTerms:
		return domain.TermsCompletenessFields()
	case domain.DimensionRisk:
		return []string{domain.FieldRiskScore}
	case domain.DimensionCompliance:
		return domain.RequiredComplianceFields()
	default:
		return nil
	}
}
