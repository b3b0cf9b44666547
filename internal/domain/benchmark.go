package domain

// BenchmarkDimension is one independently scored quality aspect of a
// contract.
type BenchmarkDimension string

// The four benchmark dimensions. Pricing and terms score what the contract
// offers; risk and compliance score what it exposes.
const (
	DimensionPricing    BenchmarkDimension = "pricing"
	DimensionTerms      BenchmarkDimension = "terms"
	DimensionRisk       BenchmarkDimension = "risk"
	DimensionCompliance BenchmarkDimension = "compliance"
)

// BenchmarkDimensions returns all dimensions in canonical report order.
func BenchmarkDimensions() []BenchmarkDimension {
	return []BenchmarkDimension{
		DimensionPricing,
		DimensionTerms,
		DimensionRisk,
		DimensionCompliance,
	}
}

// DefaultDimensionWeights returns the default (equal) weighting used to
// combine dimension scores into the overall score. Returns a fresh copy so
// callers can override per configuration without aliasing.
func DefaultDimensionWeights() map[BenchmarkDimension]float64 {
	return map[BenchmarkDimension]float64{
		DimensionPricing:    0.25,
		DimensionTerms:      0.25,
		DimensionRisk:       0.25,
		DimensionCompliance: 0.25,
	}
}

// BenchmarkStatus qualifies how trustworthy a benchmark report is.
type BenchmarkStatus string

const (
	// BenchmarkOK indicates the underlying record met the usability
	// threshold.
	BenchmarkOK BenchmarkStatus = "ok"

	// BenchmarkLowConfidence indicates the record's overall confidence
	// was below the usability threshold. Scores are still computed so
	// callers can apply their own risk tolerance.
	BenchmarkLowConfidence BenchmarkStatus = "low_confidence"
)

// Recommendation pairs a weak dimension with a canned remediation. The
// mapping from weakness cause to text is deterministic so reports stay
// testable and reproducible.
type Recommendation struct {
	Dimension BenchmarkDimension `json:"dimension" validate:"required"`
	Field     string             `json:"field,omitempty"`
	Text      string             `json:"text" validate:"required"`
}

// BenchmarkReport is the immutable output of one benchmarking run. It is a
// pure function of the contract record and the frozen population snapshot.
type BenchmarkReport struct {
	ContractID   string          `json:"contract_id" validate:"required"`
	ContractType string          `json:"contract_type,omitempty"`
	Status       BenchmarkStatus `json:"status" validate:"required,oneof=ok low_confidence"`

	// OverallScore is the weighted mean of the dimension scores, 0-10.
	OverallScore float64 `json:"overall_score" validate:"min=0,max=10"`

	// Dimensions holds the four per-dimension scores, each 0-10.
	Dimensions map[BenchmarkDimension]float64 `json:"dimensions" validate:"required,dive,min=0,max=10"`

	// Percentile is the overall score's rank within the reference
	// population, 0-100, linearly interpolated between neighbors.
	Percentile float64 `json:"percentile" validate:"min=0,max=100"`

	// Strengths lists dimensions scoring >= 8, best first.
	Strengths []BenchmarkDimension `json:"strengths,omitempty"`

	// Weaknesses lists dimensions scoring <= 5, worst first.
	Weaknesses []BenchmarkDimension `json:"weaknesses,omitempty"`

	// Recommendations carries one entry per missing or low-confidence
	// field driving each weakness.
	Recommendations []Recommendation `json:"recommendations,omitempty" validate:"dive"`
}

// Validate checks the report against its contract.
func (r *BenchmarkReport) Validate() error { return validate.Struct(r) }
