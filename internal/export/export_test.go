package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kimeltech/mcp-chat/internal/catalog"
	"github.com/kimeltech/mcp-chat/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"openai/gpt-4", "or-openai-gpt-4"},
		{"or-custom/model", "or-or-custom-model"},
		{"or-foo", "or-foo"},
		{"anthropic/claude-3.5-sonnet:beta", "or-anthropic-claude-3.5-sonnet:beta"},
		{"a/b/c", "or-a-b-c"},
		{"plain", "or-plain"},
		{"", "or-"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalID(tt.in))
		})
	}
}

func TestProviderLabel(t *testing.T) {
	tests := map[string]string{
		"openai/gpt-4o":                "OpenAI",
		"Anthropic/claude-3-opus":      "Anthropic",
		"google/gemini-pro":            "Google",
		"meta-llama/llama-3-70b":       "Meta",
		"deepseek/deepseek-r1":         "DeepSeek",
		"qwen/qwen-2.5-72b":            "Qwen",
		"mistralai/mixtral-8x7b":       "Mistral",
		"cohere/command-r":             "Cohere",
		"x-ai/grok-2":                  "xAI",
		"perplexity/sonar":             "Perplexity",
		"nousresearch/hermes-3":        "Unknown",
		"openrouter/auto-openai-proxy": "OpenAI",
	}

	for id, want := range tests {
		t.Run(id, func(t *testing.T) {
			assert.Equal(t, want, ProviderLabel(id))
		})
	}
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		name  string
		model catalog.Model
		want  []string
	}{
		{
			name:  "bare model still streams",
			model: catalog.Model{ID: "x/y"},
			want:  []string{"Streaming"},
		},
		{
			name: "everything",
			model: catalog.Model{
				ID:                  "x/y:thinking",
				Architecture:        catalog.Architecture{Modality: "text+image->text"},
				SupportedParameters: []string{"tools"},
			},
			want: []string{"Tools", "Vision", "Reasoning", "Streaming"},
		},
		{
			name:  "legacy functions parameter",
			model: catalog.Model{ID: "x/y", SupportedParameters: []string{"functions"}},
			want:  []string{"Tools", "Streaming"},
		},
		{
			name:  "reasoning from description",
			model: catalog.Model{ID: "x/y", Description: "Strong REASONING skills"},
			want:  []string{"Reasoning", "Streaming"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Capabilities(tt.model))
		})
	}
}

func TestExport_TotalAndDisabled(t *testing.T) {
	models := []catalog.Model{
		{ID: "openai/gpt-4o", Name: "OpenAI: GPT-4o", Description: "Omni model"},
		{ID: "mystery/model"},
		{ID: "qwen/qwq", Name: "QwQ"},
	}

	entries := Export(models)
	require.Len(t, entries, len(models))

	for i, e := range entries {
		assert.Equal(t, models[i].ID, e.ModelID, "order is kept")
		assert.False(t, e.Enabled)
		assert.Contains(t, e.Capabilities, registry.CapabilityStreaming)
	}

	assert.Equal(t, registry.ModelEntry{
		ID:           "or-openai-gpt-4o",
		Name:         "OpenAI: GPT-4o",
		Provider:     "OpenAI",
		ModelID:      "openai/gpt-4o",
		Description:  "Omni model",
		Capabilities: []string{"Streaming"},
	}, entries[0])

	assert.Equal(t, "mystery/model", entries[1].Name, "name falls back to the catalog ID")
	assert.Equal(t, "Model from Unknown", entries[1].Description)
	assert.Equal(t, "QwQ from Qwen", entries[2].Description)

	assert.Empty(t, Export(nil))
}

func TestEntry_EmptyDescriptionIsKept(t *testing.T) {
	var m catalog.Model
	require.NoError(t, json.Unmarshal([]byte(`{"id": "openai/gpt-4o", "name": "GPT-4o", "description": ""}`), &m))
	assert.Equal(t, "", Entry(m).Description, "a present but empty description passes through")

	require.NoError(t, json.Unmarshal([]byte(`{"id": "openai/gpt-4o", "name": "GPT-4o"}`), &m))
	assert.Equal(t, "GPT-4o from OpenAI", Entry(m).Description)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")

	entries := Export([]catalog.Model{{ID: "openai/gpt-4", Name: "GPT-4"}})
	require.NoError(t, WriteFile(path, entries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "or-openai-gpt-4", decoded[0]["id"])
	assert.Equal(t, "openai/gpt-4", decoded[0]["modelId"])
	assert.Equal(t, false, decoded[0]["enabled"])
	assert.Equal(t, []any{"Streaming"}, decoded[0]["capabilities"])
}

func TestWriteFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, WriteFile(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
