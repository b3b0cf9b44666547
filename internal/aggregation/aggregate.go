// Package aggregation merges a batch of agent results into a single
// ContractRecord. Merging is pure and deterministic: the same batch always
// produces the same record, regardless of the order results arrived in.
package aggregation

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/domain"
)

// Aggregator merges batches under a fixed conflict policy.
type Aggregator struct {
	cfg config.AggregationConfig
}

// New creates an aggregator with the given merge tuning.
func New(cfg config.AggregationConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// claim is one agent's report of one field, carried through conflict
// resolution with the context the tie-breaks need.
type claim struct {
	agent    string
	category domain.AgentCategory
	value    any
	conf     float64
}

// Aggregate merges the batch into a contract record. It returns an
// AggregationError only when the batch carries no usable signal at all
// (empty, or every agent failed); partial batches produce partial records.
func (a *Aggregator) Aggregate(batch *domain.Batch, doc domain.Document) (*domain.ContractRecord, error) {
	if batch == nil || len(batch.Results) == 0 {
		return nil, &domain.AggregationError{RunID: runID(batch), Cause: domain.ErrEmptyBatch}
	}
	if batch.SucceededCount() == 0 {
		return nil, &domain.AggregationError{RunID: batch.RunID, Cause: domain.ErrNoUsableResults}
	}

	// Group claims per field across all succeeded agents.
	claims := map[string][]claim{}
	for i := range batch.Results {
		res := &batch.Results[i]
		if !res.Succeeded() {
			continue
		}
		for name, fv := range res.Fields {
			claims[name] = append(claims[name], claim{
				agent:    res.AgentName,
				category: res.Category,
				value:    fv.Value,
				conf:     domain.Clamp01(fv.Confidence),
			})
		}
	}

	record := &domain.ContractRecord{
		DocumentID:   batch.DocumentID,
		RunID:        batch.RunID,
		ContractType: doc.ContractType,
		Fields:       make(map[string]any, len(claims)),
		Confidence:   make(map[string]float64, len(claims)),
		Contributors: make(map[string][]string, len(claims)),
		Status:       batchStatus(batch),
		FailedAgents: sortedCopy(batch.FailedAgents()),
	}

	for name, cs := range claims {
		winner, conf := a.resolve(cs)
		record.Fields[name] = winner.value
		record.Confidence[name] = conf
		record.Contributors[name] = contributorNames(cs)
	}

	record.MissingFields = a.missingFields(batch, claims)
	record.OverallConfidence = overallConfidence(record.Confidence)

	return record, nil
}

// resolve picks the winning claim for one field and computes its merged
// confidence.
//
// Agreement: a single distinct value keeps the maximum reported
// confidence. Conflict: the highest-confidence claim wins, ties broken by
// category priority then agent name, and the merged confidence is
// discounted per extra distinct value, floored so a conflicted field never
// reads as certainty or as absence.
func (a *Aggregator) resolve(cs []claim) (claim, float64) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].conf != cs[j].conf {
			return cs[i].conf > cs[j].conf
		}
		pi, pj := domain.CategoryPriority(cs[i].category), domain.CategoryPriority(cs[j].category)
		if pi != pj {
			return pi < pj
		}
		return cs[i].agent < cs[j].agent
	})

	winner := cs[0]
	distinct := distinctValues(cs)
	if distinct <= 1 {
		return winner, winner.conf
	}

	conf := winner.conf - float64(distinct-1)*a.cfg.DisagreementPenalty
	if conf < a.cfg.ConfidenceFloor {
		conf = a.cfg.ConfidenceFloor
	}
	return winner, conf
}

// distinctValues counts distinct claimed values by canonical JSON form, so
// structurally equal composites count once.
func distinctValues(cs []claim) int {
	seen := map[string]struct{}{}
	for _, c := range cs {
		seen[canonicalValue(c.value)] = struct{}{}
	}
	return len(seen)
}

// canonicalValue renders a value into a comparable key. JSON marshalling
// of map types sorts keys, which is exactly the canonicalization needed.
func canonicalValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}

// contributorNames lists the claiming agents sorted by name.
func contributorNames(cs []claim) []string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.agent)
	}
	sort.Strings(names)
	return names
}

// missingFields lists fields owned only by non-succeeded agents. With the
// per-field ownership implicit in batch results, a field is missing when a
// failed agent's roster covers it and no succeeded agent reported it.
func (a *Aggregator) missingFields(batch *domain.Batch, claims map[string][]claim) []string {
	// Fields are only observable through reports, so absence is inferred
	// from the canonical field list of each failed agent's category.
	missing := map[string]struct{}{}
	for i := range batch.Results {
		res := &batch.Results[i]
		if res.Succeeded() {
			continue
		}
		for _, name := range categoryFields(res.Category) {
			if _, reported := claims[name]; !reported {
				missing[name] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(missing))
	for name := range missing {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// categoryFields maps a category to the canonical fields its agents own.
func categoryFields(cat domain.AgentCategory) []string {
	switch cat {
	case domain.CategoryPricing:
		return []string{
			domain.FieldPricingItems, domain.FieldTotalAmount, domain.FieldCurrency,
			domain.FieldDiscountPercent, domain.FieldUnitRate, domain.FieldVariancePercent,
		}
	case domain.CategoryFinancial:
		return []string{
			domain.FieldTotalAmount, domain.FieldCurrency,
			domain.FieldCreditTerms, domain.FieldRiskScore, domain.FieldRiskFactors,
		}
	case domain.CategoryTerms:
		return []string{
			domain.FieldPaymentTermsDays, domain.FieldTerminationClause,
			domain.FieldLiabilityCap, domain.FieldSLATarget, domain.FieldRenewalNotice,
		}
	case domain.CategoryCompliance:
		return []string{
			domain.FieldRegulatoryRefs, domain.FieldComplianceScore,
			domain.FieldDataProtection, domain.FieldAuditRights, domain.FieldJurisdiction,
		}
	case domain.CategoryOperational:
		return []string{
			domain.FieldVendorName, domain.FieldDeliveryTerms, domain.FieldContactEmail,
		}
	default:
		return nil
	}
}

// overallConfidence is the importance-weighted mean of present fields.
// Missing fields are excluded rather than counted as zero; a sparse but
// confident record should read as confident.
func overallConfidence(confs map[string]float64) float64 {
	if len(confs) == 0 {
		return 0
	}
	var sum, weight float64
	for name, c := range confs {
		w := domain.FieldImportance(name)
		sum += c * w
		weight += w
	}
	return domain.Clamp01(sum / weight)
}

// batchStatus classifies batch health.
func batchStatus(batch *domain.Batch) domain.ProcessingStatus {
	succeeded := batch.SucceededCount()
	switch {
	case succeeded == len(batch.Results):
		return domain.StatusComplete
	case succeeded > 0:
		return domain.StatusPartial
	default:
		return domain.StatusFailed
	}
}

func sortedCopy(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}

func runID(batch *domain.Batch) string {
	if batch == nil {
		return ""
	}
	return batch.RunID
}
