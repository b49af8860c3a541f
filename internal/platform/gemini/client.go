package gemini

import (
	"context"
	"iter"

	"google.golang.org/genai"
)

// contentClient is the subset of *genai.Models the generator calls.
type contentClient interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)

	GenerateContentStream(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) iter.Seq2[*genai.GenerateContentResponse, error]
}

var _ contentClient = (*genai.Models)(nil)
