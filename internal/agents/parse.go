package agents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/procurant/docpipe/internal/domain"
)

// rawField mirrors the response schema agents request from the model.
type rawField struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// ParseFields decodes a model response into field values. The first parse
// runs on the raw content; if that fails, one repair pass strips code
// fences, surrounding prose, and trailing commas before the second and
// final attempt. Confidences are clamped to [0,1] and nil values dropped.
func ParseFields(content string) (map[string]domain.FieldValue, error) {
	raw := map[string]rawField{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		repaired := repairJSON(content)
		if err2 := json.Unmarshal([]byte(repaired), &raw); err2 != nil {
			return nil, fmt.Errorf("unparseable agent response: %w", err)
		}
	}

	out := make(map[string]domain.FieldValue, len(raw))
	for name, rf := range raw {
		if rf.Value == nil {
			continue
		}
		out[name] = domain.FieldValue{
			Value:      rf.Value,
			Confidence: domain.Clamp01(rf.Confidence),
		}
	}
	return out, nil
}

// repairJSON applies the cheap fixes that cover most malformed model
// output: markdown fences, prose around the object, trailing commas.
func repairJSON(content string) string {
	s := strings.TrimSpace(content)

	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	// Keep only the outermost object.
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	return trailingCommaPattern.ReplaceAllString(s, "$1")
}
