package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quka-ai/ragstore/pkg/ai"
	"github.com/quka-ai/ragstore/pkg/types"
)

const (
	NAME = "openai"
)

// embeddingBatch bounds the inputs sent per embeddings request.
const embeddingBatch = 16

type Driver struct {
	client     *openai.Client
	model      ai.ModelName
	dimensions int
}

func New(token, baseURL string, model ai.ModelName, dimensions int) *Driver {
	cfg := openai.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if model.ChatModel == "" {
		model.ChatModel = openai.GPT4oMini
	}
	if model.EmbeddingModel == "" {
		model.EmbeddingModel = string(openai.SmallEmbedding3)
	}

	return &Driver{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}
}

func (s *Driver) Extract(ctx context.Context, chunk string) (types.ExtractResult, error) {
	slog.Debug("Extract", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	req := openai.ChatCompletionRequest{
		Model: s.model.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ai.ExtractionPrompt},
			{Role: openai.ChatMessageRoleUser, Content: chunk},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return types.ExtractResult{}, fmt.Errorf("%w: completion error: %w", ai.ErrExtraction, err)
	}
	if len(resp.Choices) == 0 {
		return types.ExtractResult{}, fmt.Errorf("%w: empty completion", ai.ErrExtraction)
	}
	return ParseExtraction(resp.Choices[0].Message.Content)
}

// ParseExtraction decodes a model answer. Code fences around the JSON are tolerated.
func ParseExtraction(content string) (types.ExtractResult, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload ai.ExtractionPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil {
		return types.ExtractResult{}, fmt.Errorf("%w: failed to unmarshal extraction result, %w", ai.ErrExtraction, err)
	}

	var res types.ExtractResult
	for _, e := range payload.Entities {
		res.Entities = append(res.Entities, &types.Entity{Name: e.Name, Type: e.Type, Description: e.Description})
	}
	for _, r := range payload.Relationships {
		res.Relations = append(res.Relations, &types.Relation{
			Source:      r.Source,
			Target:      r.Target,
			Description: r.Description,
			Keywords:    r.Keywords,
			Weight:      r.Weight,
		})
	}
	return ai.NormalizeResult(res), nil
}

func (s *Driver) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	slog.Debug("Embedding", slog.String("driver", NAME), slog.Int("inputs", len(texts)))

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embeddingBatch {
		end := min(start+embeddingBatch, len(texts))
		req := openai.EmbeddingRequest{
			Input:      texts[start:end],
			Model:      openai.EmbeddingModel(s.model.EmbeddingModel),
			Dimensions: s.dimensions,
		}
		resp, err := s.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("Error creating embedding: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embedding count mismatch, want %d got %d", end-start, len(resp.Data))
		}
		for _, v := range resp.Data {
			result = append(result, v.Embedding)
		}
	}
	return result, nil
}
