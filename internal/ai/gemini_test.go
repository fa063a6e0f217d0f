package ai

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

type fakeModels struct {
	model  string
	config *genai.GenerateContentConfig
	prompt string
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func TestGeminiComplete(t *testing.T) {
	fake := &fakeModels{
		resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: genai.NewContentFromText(`{"action":"IGNORE"}`, genai.RoleModel)},
			},
		},
	}
	o := newGeminiWith(fake, "")

	out, err := o.Complete(context.Background(), "sys", "body")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"action":"IGNORE"}` {
		t.Fatalf("Complete = %q", out)
	}
	if fake.model != defaultGeminiModel {
		t.Fatalf("model = %q", fake.model)
	}
	if fake.prompt != "body" {
		t.Fatalf("prompt = %q", fake.prompt)
	}
	if fake.config.ResponseMIMEType != "application/json" {
		t.Fatalf("mime = %q", fake.config.ResponseMIMEType)
	}
	if fake.config.Temperature == nil || *fake.config.Temperature != float32(DefaultTemperature) {
		t.Fatalf("temperature = %v", fake.config.Temperature)
	}
}

func TestGeminiCompleteError(t *testing.T) {
	fake := &fakeModels{err: errors.New("Error 429, Status: RESOURCE_EXHAUSTED")}
	o := newGeminiWith(fake, "gemini-2.5-pro")

	if _, err := o.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error")
	}
	if fake.model != "gemini-2.5-pro" {
		t.Fatalf("model = %q", fake.model)
	}
}
