package generation

import "errors"

// Common errors returned by the generation package and its providers
var (
	// ErrGenerationFailed is returned when article generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate article")

	// ErrInvalidResponse is returned when the LLM response cannot be used
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during article generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrMissingAPIKey is returned when no API key could be resolved for the provider
	ErrMissingAPIKey = errors.New("API key is not configured")

	// ErrEmptyContent is returned when the model produced only whitespace
	ErrEmptyContent = errors.New("generated content is empty")

	// ErrEmptyPrompt is returned when a provider is called with an empty prompt
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidArticleCount is returned when a batch asks for fewer than 1 or more than 100 articles
	ErrInvalidArticleCount = errors.New("article count must be between 1 and 100")

	// ErrInvalidTemplate is returned when a prompt template lacks a required placeholder
	ErrInvalidTemplate = errors.New("invalid prompt template")
)

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrContentBlocked) ||
		errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrEmptyPrompt)
}
