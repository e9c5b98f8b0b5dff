package orchestrator

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

// Request is one call into the retry/fallback/cache/validate loop. UserID
// and DocumentID are deliberately not required: callers supply an opaque
// user identifier with no authentication (§1 Non-goals), and UserID/
// DocumentID are optional throughout the data model (domain.UsageRecord).
type Request struct {
	UserID     string
	DocumentID string
	PromptType domain.PromptType    `validate:"required"`
	Context    domain.PromptContext `validate:"required"`
	Config     Config
}

var requestValidator = validator.New()

// Validate rejects a malformed Request before it reaches the budget check
// or any model call, so a missing PromptType/Context surfaces as
// INVALID_REQUEST rather than an opaque downstream failure.
func (r Request) Validate() error {
	if err := requestValidator.Struct(r); err != nil {
		return domain.ErrInvalidRequest.WithMessage(err.Error()).WithCause(err)
	}
	return nil
}

// ResponseMetadata is the bookkeeping attached to every successful
// Response (Execute returns a zero Response alongside any error),
// matching §4.4's metadata shape.
type ResponseMetadata struct {
	Attempts         int
	TokensUsed       int
	Cost             float64
	Cached           bool
	ProcessingTime   time.Duration
	ValidationPassed bool
	PromptVersion    domain.PromptVersion
	Model            domain.Model
	Timestamp        time.Time
}

// Response is Execute's successful result.
type Response struct {
	Data     any
	Model    domain.Model
	Quality  int
	Metadata ResponseMetadata
}

// AttemptFeedback records one failed attempt for AI_VALIDATION_FAILED's
// exhaustion payload.
type AttemptFeedback struct {
	Attempt int
	Model   domain.Model
	Score   int
	Issues  []string
}

// ValidationExhaustedError is the Cause attached to domain.ErrAIValidationFailed
// when the retry loop exhausts config.MaxRetries.
type ValidationExhaustedError struct {
	Attempts []AttemptFeedback
}

func (e *ValidationExhaustedError) Error() string {
	return "validation failed on every attempt"
}
