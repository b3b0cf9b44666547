package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// HeuristicHandler is a deterministic, offline completion backend. It
// answers extraction prompts with regex heuristics over the document text
// instead of calling a model, producing the same JSON shape a provider
// would. Used by the local `process` command and by tests; never by the
// production worker.
type HeuristicHandler struct{}

// NewHeuristicHandler creates the offline extraction backend.
func NewHeuristicHandler() *HeuristicHandler { return &HeuristicHandler{} }

var (
	amountPattern   = regexp.MustCompile(`(?i)(?:\$|USD\s*)\s*([\d,]+(?:\.\d+)?)`)
	netTermsPattern = regexp.MustCompile(`(?i)net\s*(\d{1,3})`)
	discountPattern = regexp.MustCompile(`(?i)(\d{1,2}(?:\.\d+)?)\s*%\s*discount`)
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	vendorPattern   = regexp.MustCompile(`(?i)(?:vendor|supplier|provider)\s*[:\-]\s*([A-Za-z0-9 .,&]+)`)
)

// Handle answers a prompt by scanning the document for the fields the
// prompt requests (the "Fields:" line every agent prompt carries).
func (h *HeuristicHandler) Handle(_ context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.DocumentText) == "" {
		return nil, ErrEmptyDocument
	}

	fields := requestedFields(req.Prompt)
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		if v, conf, ok := h.extract(field, req.DocumentText); ok {
			out[field] = map[string]any{"value": v, "confidence": conf}
		}
	}

	content, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal heuristic output: %w", err)
	}

	return &Response{
		Content: string(content),
		Usage: Usage{
			PromptTokens:     int64(len(req.Prompt) / 4),
			CompletionTokens: int64(len(content) / 4),
			TotalTokens:      int64((len(req.Prompt) + len(content)) / 4),
		},
	}, nil
}

// requestedFields parses the "Fields: a, b, c" line from a prompt.
func requestedFields(prompt string) []string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Fields:"); ok {
			parts := strings.Split(rest, ",")
			fields := make([]string, 0, len(parts))
			for _, p := range parts {
				if f := strings.TrimSpace(p); f != "" {
					fields = append(fields, f)
				}
			}
			return fields
		}
	}
	return nil
}

// extract pulls one field from the document text. Confidences are fixed
// per pattern strength so heuristic runs stay reproducible.
func (h *HeuristicHandler) extract(field, text string) (any, float64, bool) {
	lower := strings.ToLower(text)

	switch field {
	case "total_amount":
		matches := amountPattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			return nil, 0, false
		}
		// Largest amount in the document is taken as the contract total.
		var total float64
		for _, m := range matches {
			if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil && v > total {
				total = v
			}
		}
		return total, 0.8, true

	case "currency":
		if strings.Contains(text, "$") || strings.Contains(lower, "usd") {
			return "USD", 0.7, true
		}
		if strings.Contains(lower, "eur") || strings.Contains(text, "€") {
			return "EUR", 0.7, true
		}
		return nil, 0, false

	case "payment_terms_days":
		if m := netTermsPattern.FindStringSubmatch(text); m != nil {
			if days, err := strconv.Atoi(m[1]); err == nil {
				return days, 0.85, true
			}
		}
		return nil, 0, false

	case "discount_percent":
		if m := discountPattern.FindStringSubmatch(text); m != nil {
			if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
				return pct, 0.75, true
			}
		}
		return nil, 0, false

	case "termination_clause":
		return strings.Contains(lower, "termination"), presenceConfidence(lower, "termination"), true

	case "liability_cap":
		return strings.Contains(lower, "liability"), presenceConfidence(lower, "liability"), true

	case "sla_target":
		return strings.Contains(lower, "service level") || strings.Contains(lower, "sla"),
			presenceConfidence(lower, "sla"), true

	case "data_protection_clause":
		return strings.Contains(lower, "data protection") || strings.Contains(lower, "gdpr"),
			presenceConfidence(lower, "data protection"), true

	case "audit_rights":
		return strings.Contains(lower, "audit"), presenceConfidence(lower, "audit"), true

	case "jurisdiction":
		if strings.Contains(lower, "governed by") || strings.Contains(lower, "jurisdiction") {
			return "stated", 0.6, true
		}
		return nil, 0, false

	case "risk_score":
		score := 0.3
		if strings.Contains(lower, "liability") {
			score += 0.2
		}
		if strings.Contains(lower, "termination") {
			score += 0.1
		}
		if strings.Contains(lower, "penalty") {
			score += 0.2
		}
		if score > 1.0 {
			score = 1.0
		}
		return score, 0.6, true

	case "risk_factors":
		var factors []string
		if strings.Contains(lower, "liability") {
			factors = append(factors, "liability exposure")
		}
		if strings.Contains(lower, "termination") {
			factors = append(factors, "termination risk")
		}
		if strings.Contains(lower, "penalty") {
			factors = append(factors, "penalty clauses")
		}
		if len(factors) == 0 {
			return nil, 0, false
		}
		return factors, 0.6, true

	case "compliance_score":
		score := 0.5
		for _, marker := range []string{"gdpr", "audit", "regulation", "compliance"} {
			if strings.Contains(lower, marker) {
				score += 0.1
			}
		}
		if score > 1.0 {
			score = 1.0
		}
		return score, 0.6, true

	case "vendor_name":
		if m := vendorPattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), 0.7, true
		}
		return nil, 0, false

	case "contact_email":
		if m := emailPattern.FindString(text); m != "" {
			return m, 0.9, true
		}
		return nil, 0, false

	default:
		return nil, 0, false
	}
}

// presenceConfidence grades clause-presence booleans: finding a marker is
// stronger evidence than not finding one.
func presenceConfidence(lower, marker string) float64 {
	if strings.Contains(lower, marker) {
		return 0.8
	}
	return 0.5
}
