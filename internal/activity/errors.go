package activity

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/procurant/docpipe/internal/domain"
)

// Activity error tags. Temporal surfaces these on ApplicationError for
// monitoring and workflow-level handling.
const (
	// TagValidation marks input validation failures. Never retried;
	// replaying the same bad input cannot succeed.
	TagValidation = "validation"

	// TagUnanalyzable marks documents where no agent produced usable
	// output. The workflow surfaces this to the caller instead of
	// retrying the whole run.
	TagUnanalyzable = "unanalyzable"

	// TagEngine marks unexpected engine failures, left retryable so
	// Temporal's activity retry policy applies.
	TagEngine = "engine"
)

// ErrActivityValidation is returned when activity input validation fails.
var ErrActivityValidation = errors.New("activity input validation failed")

// nonRetryable wraps an error as a Temporal non-retryable application
// error with a classification tag.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// classifyEngineError maps engine failures onto Temporal retry semantics.
// Aggregation failures and configuration errors are deterministic, so
// retrying the activity cannot help; anything else stays retryable.
func classifyEngineError(err error) error {
	var aggErr *domain.AggregationError
	if errors.As(err, &aggErr) {
		return nonRetryable(TagUnanalyzable, err, "document produced no usable analysis")
	}

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return nonRetryable(TagValidation, err, "pipeline misconfigured")
	}

	return temporal.NewApplicationError(err.Error(), TagEngine, err)
}
