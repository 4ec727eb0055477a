package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	chatCompletionsPath = "chat/completions"

	systemPrompt = `Summarize the text in one golden sentence.

Rules:
- Capture the single most essential idea of the whole text.
- One sentence, quotable on its own, no preamble.
- Keep critical names and numbers, drop examples and fillers.
- Output exactly one line in the same language as the input.`

	userPromptPrefix = "Summarize the most essential idea of the whole text in one golden sentence:\n\n"
)

// OpenAIStreamer calls an OpenAI-compatible chat completions endpoint with
// streaming enabled and hands back the undecoded event stream.
type OpenAIStreamer struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAIStreamer builds a streamer. baseURL may be empty for the OpenAI
// API itself; timeout bounds the whole request including the body.
func NewOpenAIStreamer(
	apiKey string,
	baseURL string,
	model string,
	temperature float64,
	timeout time.Duration,
) (*OpenAIStreamer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("model is empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIStreamer{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
	}, nil
}

func (s *OpenAIStreamer) Stream(ctx context.Context, input Input) (io.ReadCloser, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	userPromptBuilder := strings.Builder{}
	if sourceURL := strings.TrimSpace(input.SourceURL); sourceURL != "" {
		userPromptBuilder.WriteString("Source: ")
		userPromptBuilder.WriteString(sourceURL)
		userPromptBuilder.WriteString("\n")
	}
	userPromptBuilder.WriteString(userPromptPrefix)
	userPromptBuilder.WriteString(text)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPromptBuilder.String()),
		},
		Temperature: openai.Float(s.temperature),
	}

	var resp *http.Response

	err := s.client.Post(ctx, chatCompletionsPath, params, &resp, option.WithJSONSet("stream", true))
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp == nil || resp.Body == nil {
		return nil, errors.New("do request: response body is missing")
	}

	return resp.Body, nil
}
