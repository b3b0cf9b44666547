// Package agents implements the analysis agent roster. Every agent is a
// thin specialization of one completion-backed extractor: a name, a
// category, an instruction prompt, and the set of fields it is allowed to
// report. Agents are stateless and safe for concurrent use; all run state
// lives with the orchestrator.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/procurant/docpipe/internal/completion"
	"github.com/procurant/docpipe/internal/domain"
)

// completionAgent extracts its field set through the completion service.
type completionAgent struct {
	desc        domain.AgentDescriptor
	instruction string
	fields      []string
	client      completion.Client
}

// Descriptor returns the agent's identity and execution budget.
func (a *completionAgent) Descriptor() domain.AgentDescriptor { return a.desc }

// Analyze runs one extraction attempt. The caller's context carries the
// attempt deadline; the agent itself never retries.
func (a *completionAgent) Analyze(ctx context.Context, doc domain.Document) (map[string]domain.FieldValue, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, &domain.AgentFatalError{Agent: a.desc.Name, Cause: completion.ErrEmptyDocument}
	}

	resp, err := a.client.Complete(ctx, &completion.Request{
		Prompt:       a.prompt(doc),
		DocumentText: doc.Text,
		MaxTokens:    1024,
		Temperature:  0.0,
		TraceID:      fmt.Sprintf("%s/%s", doc.ID, a.desc.Name),
	})
	if err != nil {
		return nil, a.classify(err)
	}

	fields, err := ParseFields(resp.Content)
	if err != nil {
		// Malformed model output is transient: a fresh completion may
		// produce valid JSON.
		return nil, &domain.AgentTransientError{Agent: a.desc.Name, Cause: err}
	}

	return a.restrict(fields), nil
}

// prompt assembles the extraction instruction. The Fields line and the
// response schema are shared by every agent so parsing stays uniform.
func (a *completionAgent) prompt(doc domain.Document) string {
	var b strings.Builder
	b.WriteString(a.instruction)
	b.WriteString("\n\n")
	if doc.ContractType != "" {
		fmt.Fprintf(&b, "Document type: %s %s.\n", doc.ContractType, doc.Kind)
	} else {
		fmt.Fprintf(&b, "Document type: %s.\n", doc.Kind)
	}
	fmt.Fprintf(&b, "Fields: %s\n", strings.Join(a.fields, ", "))
	b.WriteString(`Respond with a single JSON object mapping each field you can ` +
		`determine to {"value": <extracted value>, "confidence": <0..1>}. ` +
		`Omit fields you cannot determine. No prose.`)
	return b.String()
}

// classify wraps completion failures in the error types the orchestrator's
// retry loop keys on.
func (a *completionAgent) classify(err error) error {
	if completion.IsRetryable(err) {
		return &domain.AgentTransientError{Agent: a.desc.Name, Cause: err}
	}
	return &domain.AgentFatalError{Agent: a.desc.Name, Cause: err}
}

// restrict drops any field the agent is not declared to report. Models
// occasionally volunteer extras; unknown fields would bypass the roster's
// field ownership.
func (a *completionAgent) restrict(fields map[string]domain.FieldValue) map[string]domain.FieldValue {
	out := make(map[string]domain.FieldValue, len(fields))
	for _, name := range a.fields {
		if fv, ok := fields[name]; ok {
			out[name] = fv
		}
	}
	return out
}
