package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models the oracle needs.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// GeminiOracle completes prompts with the Gemini API.
type GeminiOracle struct {
	models      contentGenerator
	model       string
	temperature float32
}

// NewGemini creates a Gemini client for apiKey and wraps it as an Oracle.
func NewGemini(ctx context.Context, apiKey, modelName string) (*GeminiOracle, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return newGeminiWith(client.Models, modelName), nil
}

func newGeminiWith(models contentGenerator, modelName string) *GeminiOracle {
	if modelName == "" || strings.HasPrefix(modelName, "claude") {
		modelName = defaultGeminiModel
	}
	return &GeminiOracle{
		models:      models,
		model:       modelName,
		temperature: DefaultTemperature,
	}
}

// Complete sends the user prompt with the system prompt as instruction and
// asks for a JSON answer.
func (g *GeminiOracle) Complete(
	ctx context.Context,
	systemPrompt string,
	userPrompt string,
) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(userPrompt), cfg)
	if err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("calling Gemini API: empty response")
	}

	return strings.TrimSpace(resp.Text()), nil
}
