package bedrock

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func newTestClassifier(modelID string) *Classifier {
	return NewClassifier(nil, modelID, 500, 0.8, zap.NewNop())
}

func TestBuildPayloadClaude(t *testing.T) {
	c := newTestClassifier("anthropic.claude-v2")

	payload, err := c.buildPayload("Subject: x\nBody: y\n\nOutput JSON only:")
	if err != nil {
		t.Fatalf("buildPayload() error = %v", err)
	}

	var req map[string]interface{}
	if err := json.Unmarshal(payload, &req); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if req["anthropic_version"] != anthropicVersion {
		t.Errorf("anthropic_version = %v", req["anthropic_version"])
	}
	if req["system"] == "" || req["system"] == nil {
		t.Error("system prompt missing")
	}
	if req["temperature"] != float64(0) {
		t.Errorf("temperature = %v, want 0", req["temperature"])
	}
	messages, ok := req["messages"].([]interface{})
	if !ok || len(messages) != 1 {
		t.Fatalf("messages = %v, want one user message", req["messages"])
	}
}

func TestBuildPayloadTitan(t *testing.T) {
	c := newTestClassifier("amazon.titan-text-express-v1")

	payload, err := c.buildPayload("user message")
	if err != nil {
		t.Fatalf("buildPayload() error = %v", err)
	}

	var req map[string]interface{}
	if err := json.Unmarshal(payload, &req); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if req["inputText"] == nil {
		t.Error("inputText missing")
	}
	if req["textGenerationConfig"] == nil {
		t.Error("textGenerationConfig missing")
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		body    string
		want    string
	}{
		{
			name:    "claude content blocks",
			modelID: "anthropic.claude-v2",
			body:    `{"content": [{"type": "text", "text": "{\"category\": \"rejection\"}"}]}`,
			want:    `{"category": "rejection"}`,
		},
		{
			name:    "claude empty content",
			modelID: "anthropic.claude-v2",
			body:    `{"content": []}`,
			want:    "",
		},
		{
			name:    "titan results",
			modelID: "amazon.titan-text-express-v1",
			body:    `{"results": [{"outputText": "titan says"}]}`,
			want:    "titan says",
		},
		{
			name:    "generic output field",
			modelID: "meta.llama2-70b",
			body:    `{"output": "llama says"}`,
			want:    "llama says",
		},
		{
			name:    "generic raw fallback",
			modelID: "meta.llama2-70b",
			body:    `{"something": "else"}`,
			want:    `{"something": "else"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(tt.modelID)
			got, err := c.extractText([]byte(tt.body))
			if err != nil {
				t.Fatalf("extractText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("extractText() = %q, want %q", got, tt.want)
			}
		})
	}
}
