package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"newsradar/internal/models"
)

const (
	maxRetries = 3
	retryDelay = 2 * time.Second

	summaryPrompt = "Summarize the following news article in 2-3 sentences. " +
		"Keep names and figures. If the text is too short or not a real article, reply with NONE."

	entityPrompt = `Extract the named entities from the text. Return only valid JSON:
{"entities": [{"text": "XXX", "label": "ORG|PERSON|LOC|MISC", "score": 0.0}]}
No Markdown formatting, no extra text.`

	translatePromptFmt = "Translate the following text to %s. Return only the translation, nothing else."
)

// OpenAIEnricher implements the summarization, translation and entity
// extraction capabilities over the OpenAI chat completions API.
type OpenAIEnricher struct {
	client *openai.Client
}

var (
	_ Summarizer      = (*OpenAIEnricher)(nil)
	_ Translator      = (*OpenAIEnricher)(nil)
	_ EntityExtractor = (*OpenAIEnricher)(nil)
)

// NewOpenAIEnricher builds the client; the API key comes from configuration.
func NewOpenAIEnricher(apiKey string) *OpenAIEnricher {
	return &OpenAIEnricher{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

// Summarize condenses an article. Empty result means the model declined.
func (e *OpenAIEnricher) Summarize(ctx context.Context, text string) (string, error) {
	raw, err := e.complete(ctx, summaryPrompt, text)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(strings.TrimSpace(raw), "NONE") {
		return "", nil
	}
	return strings.TrimSpace(raw), nil
}

// Translate renders the text in the target language.
func (e *OpenAIEnricher) Translate(ctx context.Context, text, targetLang string) (string, error) {
	raw, err := e.complete(ctx, fmt.Sprintf(translatePromptFmt, targetLang), text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// ExtractEntities pulls named entities from the text.
func (e *OpenAIEnricher) ExtractEntities(ctx context.Context, text string) ([]models.Entity, error) {
	raw, err := e.complete(ctx, entityPrompt, text)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Entities []models.Entity `json:"entities"`
	}
	if err := json.Unmarshal([]byte(cleanResponse(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse entity response: %w", err)
	}
	return parsed.Entities, nil
}

func (e *OpenAIEnricher) complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(user),
			}),
			Model:       openai.F(openai.ChatModelGPT4oMini),
			Temperature: openai.Float(0.3),
		})
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Msg("OpenAI call failed, retrying")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
			lastErr = fmt.Errorf("empty completion")
			continue
		}
		return completion.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("openai completion failed after %d attempts: %w", maxRetries, lastErr)
}

// cleanResponse strips Markdown fences and curly quotes the model sometimes
// wraps JSON output in.
func cleanResponse(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.ReplaceAll(response, "“", `"`)
	response = strings.ReplaceAll(response, "”", `"`)
	return strings.TrimSpace(response)
}
