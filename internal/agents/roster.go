package agents

import (
	"time"

	"github.com/procurant/docpipe/internal/completion"
	"github.com/procurant/docpipe/internal/config"
	"github.com/procurant/docpipe/internal/domain"
	"github.com/procurant/docpipe/internal/registry"
)

// agentSpec declares one built-in agent: identity plus the instruction and
// field set its prompt carries.
type agentSpec struct {
	name        string
	category    domain.AgentCategory
	priority    int
	instruction string
	fields      []string
}

var rosterSpecs = []agentSpec{
	// Pricing.
	{
		name:        "pricing_line_items",
		category:    domain.CategoryPricing,
		priority:    10,
		instruction: "Extract every priced line item from the document: description, quantity, unit price, line total, and currency.",
		fields:      []string{domain.FieldPricingItems, domain.FieldCurrency},
	},
	{
		name:        "pricing_totals",
		category:    domain.CategoryPricing,
		priority:    9,
		instruction: "Determine the total contract value and its currency. Prefer an explicitly stated total over a sum of line items.",
		fields:      []string{domain.FieldTotalAmount, domain.FieldCurrency},
	},
	{
		name:        "pricing_discounts",
		category:    domain.CategoryPricing,
		priority:    8,
		instruction: "Identify volume, early-payment, or negotiated discounts and report the effective discount percentage.",
		fields:      []string{domain.FieldDiscountPercent},
	},
	{
		name:        "pricing_rates",
		category:    domain.CategoryPricing,
		priority:    7,
		instruction: "Extract recurring unit rates (hourly, per seat, per unit) stated in the document.",
		fields:      []string{domain.FieldUnitRate, domain.FieldCurrency},
	},
	{
		name:        "pricing_variance",
		category:    domain.CategoryPricing,
		priority:    6,
		instruction: "Identify any permitted price variance, escalation clause, or indexation cap and report it as a percentage.",
		fields:      []string{domain.FieldVariancePercent},
	},

	// Financial.
	{
		name:        "financial_totals",
		category:    domain.CategoryFinancial,
		priority:    10,
		instruction: "Independently determine the total financial commitment of the document and its currency.",
		fields:      []string{domain.FieldTotalAmount, domain.FieldCurrency},
	},
	{
		name:        "financial_currency",
		category:    domain.CategoryFinancial,
		priority:    9,
		instruction: "Determine the settlement currency of the document as an ISO 4217 code.",
		fields:      []string{domain.FieldCurrency},
	},
	{
		name:        "financial_credit",
		category:    domain.CategoryFinancial,
		priority:    8,
		instruction: "Extract credit terms: credit limits, deposits, or prepayment requirements.",
		fields:      []string{domain.FieldCreditTerms},
	},
	{
		name:        "financial_risk",
		category:    domain.CategoryFinancial,
		priority:    7,
		instruction: "Assess the financial risk of the document. Report a risk score between 0 (negligible) and 1 (severe) and the factors driving it.",
		fields:      []string{domain.FieldRiskScore, domain.FieldRiskFactors},
	},

	// Terms.
	{
		name:        "terms_payment",
		category:    domain.CategoryTerms,
		priority:    10,
		instruction: "Extract the payment terms as net days (for example Net 30 is 30).",
		fields:      []string{domain.FieldPaymentTermsDays},
	},
	{
		name:        "terms_termination",
		category:    domain.CategoryTerms,
		priority:    9,
		instruction: "Determine whether the document contains a termination clause and under what conditions either party may terminate.",
		fields:      []string{domain.FieldTerminationClause},
	},
	{
		name:        "terms_liability",
		category:    domain.CategoryTerms,
		priority:    8,
		instruction: "Determine whether liability is capped and extract the cap if stated. Also extract any service level target.",
		fields:      []string{domain.FieldLiabilityCap, domain.FieldSLATarget},
	},
	{
		name:        "terms_renewal",
		category:    domain.CategoryTerms,
		priority:    7,
		instruction: "Extract renewal terms: auto-renewal, and the notice period in days required to prevent renewal.",
		fields:      []string{domain.FieldRenewalNotice},
	},

	// Compliance.
	{
		name:        "compliance_regulatory",
		category:    domain.CategoryCompliance,
		priority:    10,
		instruction: "List the regulations, standards, and certifications the document references. Report an overall compliance score between 0 and 1.",
		fields:      []string{domain.FieldRegulatoryRefs, domain.FieldComplianceScore},
	},
	{
		name:        "compliance_data_protection",
		category:    domain.CategoryCompliance,
		priority:    9,
		instruction: "Determine whether the document contains data protection or privacy obligations (GDPR, CCPA, or equivalent).",
		fields:      []string{domain.FieldDataProtection},
	},
	{
		name:        "compliance_audit",
		category:    domain.CategoryCompliance,
		priority:    8,
		instruction: "Determine whether the buyer holds audit rights over the supplier and under what notice.",
		fields:      []string{domain.FieldAuditRights},
	},
	{
		name:        "compliance_jurisdiction",
		category:    domain.CategoryCompliance,
		priority:    7,
		instruction: "Extract the governing law and jurisdiction of the document.",
		fields:      []string{domain.FieldJurisdiction},
	},

	// Operational.
	{
		name:        "operational_vendor",
		category:    domain.CategoryOperational,
		priority:    10,
		instruction: "Extract the supplier's legal name as stated in the document.",
		fields:      []string{domain.FieldVendorName},
	},
	{
		name:        "operational_delivery",
		category:    domain.CategoryOperational,
		priority:    9,
		instruction: "Extract delivery terms: lead times, delivery schedule, and Incoterms if present.",
		fields:      []string{domain.FieldDeliveryTerms},
	},
	{
		name:        "operational_contacts",
		category:    domain.CategoryOperational,
		priority:    8,
		instruction: "Extract the primary contact email address stated in the document.",
		fields:      []string{domain.FieldContactEmail},
	},
}

// NewRoster builds the built-in twenty-agent roster against the given
// completion client. Every agent gets the same execution budget; per-agent
// overrides come through configuration instead.
func NewRoster(client completion.Client, timeout time.Duration, maxRetries int) []registry.Agent {
	out := make([]registry.Agent, 0, len(rosterSpecs))
	for _, spec := range rosterSpecs {
		out = append(out, &completionAgent{
			desc: domain.AgentDescriptor{
				Name:       spec.name,
				Category:   spec.category,
				Timeout:    timeout,
				MaxRetries: maxRetries,
				Priority:   spec.priority,
			},
			instruction: spec.instruction,
			fields:      spec.fields,
			client:      client,
		})
	}
	return out
}

// New builds a single completion-backed agent from a descriptor and
// prompt. Exposed for roster overrides and tests.
func New(desc domain.AgentDescriptor, instruction string, fields []string, client completion.Client) registry.Agent {
	return &completionAgent{desc: desc, instruction: instruction, fields: fields, client: client}
}

// NewRosterFromConfig builds agents from configured roster entries. Each
// entry must name a built-in agent; the entry overrides its execution
// budget and priority while the instruction and field set stay built in.
func NewRosterFromConfig(client completion.Client, entries []config.AgentConfig) ([]registry.Agent, error) {
	descs, err := registry.DescriptorsFromConfig(entries)
	if err != nil {
		return nil, err
	}

	specs := make(map[string]agentSpec, len(rosterSpecs))
	for _, spec := range rosterSpecs {
		specs[spec.name] = spec
	}

	out := make([]registry.Agent, 0, len(descs))
	for _, desc := range descs {
		spec, ok := specs[desc.Name]
		if !ok {
			return nil, domain.NewConfigurationError("unknown agent %q in roster config", desc.Name)
		}
		out = append(out, &completionAgent{
			desc:        desc,
			instruction: spec.instruction,
			fields:      spec.fields,
			client:      client,
		})
	}
	return out, nil
}
