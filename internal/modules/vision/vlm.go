package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	"github.com/petlens/core/internal/config"
)

// NewGenerator selects the vision-language model provider from config.
// Type "openai" and "openai-compatible" share the chat-completions client;
// "anthropic" uses the messages API.
func NewGenerator(cfg *config.VLMConfig) (Generator, error) {
	switch normalizeProviderType(cfg.Type) {
	case "openai", "openai-compatible", "openaicompatible", "":
		return newOpenAIGenerator(cfg), nil
	case "anthropic":
		return newAnthropicGenerator(cfg), nil
	}
	return nil, fmt.Errorf("unknown vlm provider type %q", cfg.Type)
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	return strings.ReplaceAll(t, " ", "")
}

type openaiGenerator struct {
	client openaiclient.Client
	model  string
}

func newOpenAIGenerator(cfg *config.VLMConfig) *openaiGenerator {
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(cfg.APIKey),
		openaioption.WithMaxRetries(0),
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, openaioption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	return &openaiGenerator{
		client: openaiclient.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (g *openaiGenerator) Generate(ctx context.Context, image []byte, mediaType, prompt string) (string, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s",
		mediaType, base64.StdEncoding.EncodeToString(image))

	resp, err := g.client.Chat.Completions.New(ctx, openaiclient.ChatCompletionNewParams{
		Model: openaiclient.ChatModel(g.model),
		Messages: []openaiclient.ChatCompletionMessageParamUnion{
			openaiclient.UserMessage([]openaiclient.ChatCompletionContentPartUnionParam{
				openaiclient.TextContentPart(prompt),
				openaiclient.ImageContentPart(openaiclient.ChatCompletionContentPartImageImageURLParam{
					URL: dataURI,
				}),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVLMUnavailable, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrVLMBadOutput)
	}
	return resp.Choices[0].Message.Content, nil
}

type anthropicGenerator struct {
	client anthropicclient.Client
	model  string
}

func newAnthropicGenerator(cfg *config.VLMConfig) *anthropicGenerator {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithMaxRetries(0),
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	return &anthropicGenerator{
		client: anthropicclient.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (g *anthropicGenerator) Generate(ctx context.Context, image []byte, mediaType, prompt string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	msg, err := g.client.Messages.New(ctx, anthropicclient.MessageNewParams{
		Model:     anthropicclient.Model(g.model),
		MaxTokens: 1024,
		Messages: []anthropicclient.MessageParam{
			anthropicclient.NewUserMessage(
				anthropicclient.NewImageBlockBase64(mediaType, encoded),
				anthropicclient.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVLMUnavailable, err)
	}

	var full strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			full.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(full.String()) == "" {
		return "", fmt.Errorf("%w: empty message", ErrVLMBadOutput)
	}
	return full.String(), nil
}

// ExtractJSON returns the JSON payload of a model response. Responses that
// wrap JSON in a fenced code block are unwrapped first.
func ExtractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		rest := trimmed[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			header := strings.TrimSpace(rest[:nl])
			if header == "" || strings.EqualFold(header, "json") {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	return trimmed
}
