package domain

// Canonical extraction field names. Agents are free to report additional
// fields; these constants cover the fields the downstream engines key on.
const (
	// Pricing fields.
	FieldTotalAmount     = "total_amount"
	FieldCurrency        = "currency"
	FieldPricingItems    = "pricing_items"
	FieldDiscountPercent = "discount_percent"
	FieldVariancePercent = "variance_percent"
	FieldUnitRate        = "unit_rate"

	// Terms fields.
	FieldPaymentTermsDays  = "payment_terms_days"
	FieldTerminationClause = "termination_clause"
	FieldLiabilityCap      = "liability_cap"
	FieldSLATarget         = "sla_target"
	FieldRenewalNotice     = "renewal_notice_days"

	// Compliance fields.
	FieldComplianceScore  = "compliance_score"
	FieldRegulatoryRefs   = "regulatory_references"
	FieldDataProtection   = "data_protection_clause"
	FieldAuditRights      = "audit_rights"
	FieldJurisdiction     = "jurisdiction"

	// Financial fields.
	FieldRiskScore   = "risk_score"
	FieldRiskFactors = "risk_factors"
	FieldCreditTerms = "credit_terms"

	// Operational fields.
	FieldVendorName    = "vendor_name"
	FieldDeliveryTerms = "delivery_terms"
	FieldContactEmail  = "contact_email"
)

// fieldImportance weights each field's contribution to a record's overall
// confidence. Unlisted fields weigh 1.0. Weights reflect how much each
// field drives reconciliation and benchmarking, not extraction difficulty.
var fieldImportance = map[string]float64{
	FieldTotalAmount:      2.0,
	FieldCurrency:         1.5,
	FieldPricingItems:     1.5,
	FieldPaymentTermsDays: 1.5,
	FieldRiskScore:        1.25,
	FieldComplianceScore:  1.25,
	FieldDiscountPercent:  1.0,
	FieldVendorName:       0.75,
	FieldContactEmail:     0.5,
}

// FieldImportance returns the importance weight for a field name.
func FieldImportance(name string) float64 {
	if w, ok := fieldImportance[name]; ok {
		return w
	}
	return 1.0
}

// RequiredComplianceFields lists the regulatory fields whose presence and
// consistency drive the compliance benchmark dimension.
func RequiredComplianceFields() []string {
	return []string{
		FieldRegulatoryRefs,
		FieldDataProtection,
		FieldAuditRights,
		FieldJurisdiction,
	}
}

// TermsCompletenessFields lists the obligation fields whose presence
// drives the terms benchmark dimension.
func TermsCompletenessFields() []string {
	return []string{
		FieldPaymentTermsDays,
		FieldTerminationClause,
		FieldLiabilityCap,
		FieldSLATarget,
	}
}
