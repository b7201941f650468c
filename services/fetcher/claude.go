package fetcher

import (
	"context"
	"strings"

	"sjsage522/pricecatalog/logger"
	apperr "sjsage522/pricecatalog/pkg/errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const extractionSystemPrompt = "You extract structured product data from web page text. " +
	"Respond with a JSON array only, no prose and no code fences."

// ClaudeExtractor is the generic extraction backend behind freeform adapters.
// It turns rendered page text plus an instruction into a JSON record array.
type ClaudeExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *logger.Logger
}

// NewClaudeExtractor creates the freeform extraction backend.
func NewClaudeExtractor(apiKey, model string) (*ClaudeExtractor, error) {
	if apiKey == "" {
		return nil, apperr.NewConfiguration("ANTHROPIC_API_KEY is required for freeform extraction", nil)
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &ClaudeExtractor{
		client:    client,
		model:     model,
		maxTokens: 8192,
		logger:    logger.ForFetcher(),
	}, nil
}

// ExtractJSON runs the extraction instruction against the page text and
// returns the model's response. The response is expected to be a JSON array;
// validating that is the extraction engine's job.
func (c *ClaudeExtractor) ExtractJSON(ctx context.Context, pageText, instruction string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: extractionSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(instruction + "\n\nPage content:\n" + pageText),
			),
		},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", apperr.NewMalformed("", "empty extraction response", nil)
	}

	c.logger.Debug().
		Int("response_length", response.Len()).
		Msg("Freeform extraction response received")

	return response.String(), nil
}
