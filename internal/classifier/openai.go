package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAI classifies with a chat completion model prompted to return JSON label scores.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI returns a backend using model. baseURL is optional (OpenAI-compatible servers).
func NewOpenAI(apiKey, model, baseURL string, opts ...option.RequestOption) *OpenAI {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAI{client: openai.NewClient(reqOpts...), model: model}
}

const classifySystemPrompt = "You are a zero-shot text classifier for social media posts. " +
	"You only answer with JSON."

// Classify asks the model to score every label and parses its JSON answer.
func (o *OpenAI) Classify(ctx context.Context, text string, labels []string) ([]LabelScore, error) {
	response, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(classifySystemPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(buildClassifyPrompt(text, labels)),
					},
				},
			},
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(300),
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}
	scores, err := parseScores([]byte(response.Choices[0].Message.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse openai response: %w", err)
	}
	return scores, nil
}

func buildClassifyPrompt(text string, labels []string) string {
	var sb strings.Builder
	sb.WriteString("Classify the intent of this post. Candidate labels: ")
	sb.WriteString(strings.Join(labels, ", "))
	sb.WriteString(".\nGive every label a probability between 0 and 1; the probabilities sum to 1.\n")
	sb.WriteString(`Respond with JSON format: [{"label": "label", "score": 0.9}]`)
	sb.WriteString("\n\nPost:\n")
	sb.WriteString(text)
	return sb.String()
}
