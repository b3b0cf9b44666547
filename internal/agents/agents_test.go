package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurant/docpipe/internal/completion"
	"github.com/procurant/docpipe/internal/domain"
)

// scriptedClient returns canned completion responses.
type scriptedClient struct {
	content string
	err     error
	lastReq *completion.Request
}

func (c *scriptedClient) Complete(_ context.Context, req *completion.Request) (*completion.Response, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &completion.Response{Content: c.content}, nil
}

func testAgent(client completion.Client) *completionAgent {
	return &completionAgent{
		desc: domain.AgentDescriptor{
			Name:       "pricing_totals",
			Category:   domain.CategoryPricing,
			Timeout:    time.Second,
			MaxRetries: 1,
			Priority:   1,
		},
		instruction: "Determine the total contract value.",
		fields:      []string{domain.FieldTotalAmount, domain.FieldCurrency},
		client:      client,
	}
}

func contractDoc() domain.Document {
	return domain.Document{
		ID:           "doc-1",
		Kind:         domain.DocumentContract,
		ContractType: "saas",
		Text:         "Total: $50,000. Net 30.",
	}
}

func TestAnalyze_ExtractsDeclaredFields(t *testing.T) {
	client := &scriptedClient{content: `{
		"total_amount": {"value": 50000, "confidence": 0.9},
		"currency": {"value": "USD", "confidence": 0.8}
	}`}

	fields, err := testAgent(client).Analyze(context.Background(), contractDoc())
	require.NoError(t, err)

	assert.Equal(t, 50000.0, fields[domain.FieldTotalAmount].Value)
	assert.Equal(t, "USD", fields[domain.FieldCurrency].Value)
}

func TestAnalyze_DropsUndeclaredFields(t *testing.T) {
	client := &scriptedClient{content: `{
		"total_amount": {"value": 50000, "confidence": 0.9},
		"vendor_name": {"value": "Acme", "confidence": 0.9}
	}`}

	fields, err := testAgent(client).Analyze(context.Background(), contractDoc())
	require.NoError(t, err)

	assert.Contains(t, fields, domain.FieldTotalAmount)
	assert.NotContains(t, fields, domain.FieldVendorName)
}

func TestAnalyze_EmptyDocumentIsFatal(t *testing.T) {
	client := &scriptedClient{content: `{}`}
	doc := contractDoc()
	doc.Text = "   "

	_, err := testAgent(client).Analyze(context.Background(), doc)

	var fatal *domain.AgentFatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "pricing_totals", fatal.Agent)
}

func TestAnalyze_MalformedOutputIsTransient(t *testing.T) {
	client := &scriptedClient{content: "not json at all"}

	_, err := testAgent(client).Analyze(context.Background(), contractDoc())

	var transient *domain.AgentTransientError
	assert.ErrorAs(t, err, &transient)
}

func TestAnalyze_ClassifiesCompletionErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{
			name:      "rate limit is transient",
			err:       &completion.RateLimitError{Provider: "openai", RetryAfter: 2},
			transient: true,
		},
		{
			name: "service unavailable is transient",
			err: &completion.ServiceError{
				Provider: "openai", StatusCode: 503, Type: completion.ErrorTypeUnavailable,
			},
			transient: true,
		},
		{
			name: "authentication failure is fatal",
			err: &completion.ServiceError{
				Provider: "openai", StatusCode: 401, Type: completion.ErrorTypeAuth,
			},
			transient: false,
		},
		{
			name:      "unknown error is fatal",
			err:       errors.New("something odd"),
			transient: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{err: tt.err}
			_, err := testAgent(client).Analyze(context.Background(), contractDoc())
			require.Error(t, err)

			var transient *domain.AgentTransientError
			var fatal *domain.AgentFatalError
			if tt.transient {
				assert.ErrorAs(t, err, &transient)
			} else {
				assert.ErrorAs(t, err, &fatal)
			}
		})
	}
}

func TestAnalyze_PromptCarriesFieldsAndSchema(t *testing.T) {
	client := &scriptedClient{content: `{}`}

	_, err := testAgent(client).Analyze(context.Background(), contractDoc())
	require.NoError(t, err)
	require.NotNil(t, client.lastReq)

	prompt := client.lastReq.Prompt
	assert.Contains(t, prompt, "Fields: total_amount, currency")
	assert.Contains(t, prompt, "saas contract")
	assert.Contains(t, prompt, `"confidence"`)
	assert.Equal(t, contractDoc().Text, client.lastReq.DocumentText)
	assert.Equal(t, "doc-1/pricing_totals", client.lastReq.TraceID)
}

func TestNewRoster_CoversAllCategoriesWithTwentyAgents(t *testing.T) {
	roster := NewRoster(&scriptedClient{content: `{}`}, time.Second, 2)
	require.Len(t, roster, 20)

	perCategory := map[domain.AgentCategory]int{}
	names := map[string]bool{}
	for _, agent := range roster {
		desc := agent.Descriptor()
		require.NoError(t, desc.Validate())
		perCategory[desc.Category]++
		assert.False(t, names[desc.Name], "duplicate name %s", desc.Name)
		names[desc.Name] = true
	}

	assert.Equal(t, 5, perCategory[domain.CategoryPricing])
	assert.Equal(t, 4, perCategory[domain.CategoryFinancial])
	assert.Equal(t, 4, perCategory[domain.CategoryTerms])
	assert.Equal(t, 4, perCategory[domain.CategoryCompliance])
	assert.Equal(t, 3, perCategory[domain.CategoryOperational])
}

func TestRosterInstructions_MentionTheirFields(t *testing.T) {
	// Sanity on the built-in specs: every agent declares at least one
	// field and a non-empty instruction.
	for _, spec := range rosterSpecs {
		assert.NotEmpty(t, spec.fields, spec.name)
		assert.NotEmpty(t, strings.TrimSpace(spec.instruction), spec.name)
	}
}
