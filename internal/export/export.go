// Package export turns catalog records into registry entries an operator can review
// and paste into models.config.json.
package export

import (
	"fmt"
	"strings"

	"github.com/kimeltech/mcp-chat/internal/catalog"
	"github.com/kimeltech/mcp-chat/internal/registry"
	"github.com/kimeltech/mcp-chat/internal/utils/jsonfile"
)

// LocalIDPrefix marks registry identifiers derived from OpenRouter catalog IDs
const LocalIDPrefix = "or-"

// UnknownProvider is the label used when no known vendor matches
const UnknownProvider = "Unknown"

// providerLabels is checked in order; the first substring match wins
var providerLabels = []struct {
	key   string
	label string
}{
	{"openai", "OpenAI"},
	{"anthropic", "Anthropic"},
	{"google", "Google"},
	{"meta-llama", "Meta"},
	{"deepseek", "DeepSeek"},
	{"qwen", "Qwen"},
	{"mistralai", "Mistral"},
	{"cohere", "Cohere"},
	{"x-ai", "xAI"},
	{"perplexity", "Perplexity"},
}

// Export maps every record to a disabled registry entry, keeping catalog order
func Export(models []catalog.Model) []registry.ModelEntry {
	entries := make([]registry.ModelEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, Entry(m))
	}
	return entries
}

// Entry maps one record. New entries are always disabled so nothing goes live
// without an operator turning it on.
func Entry(m catalog.Model) registry.ModelEntry {
	provider := ProviderLabel(m.ID)

	description := m.Description
	if description == "" && !m.DescriptionSet {
		name := m.Name
		if name == "" {
			name = "Model"
		}
		description = fmt.Sprintf("%s from %s", name, provider)
	}

	return registry.ModelEntry{
		ID:           LocalID(m.ID),
		Name:         m.DisplayName(),
		Provider:     provider,
		ModelID:      m.ID,
		Description:  description,
		Capabilities: Capabilities(m),
		Enabled:      false,
	}
}

// LocalID derives a registry identifier from a catalog ID: every "/" becomes "-"
// and the result gets the "or-" prefix. An ID that is already a local identifier
// (prefixed and slash-free) is returned unchanged.
func LocalID(catalogID string) string {
	if strings.HasPrefix(catalogID, LocalIDPrefix) && !strings.Contains(catalogID, "/") {
		return catalogID
	}
	return LocalIDPrefix + strings.ReplaceAll(catalogID, "/", "-")
}

// ProviderLabel returns a human-readable vendor name for a catalog ID
func ProviderLabel(catalogID string) string {
	lower := strings.ToLower(catalogID)
	for _, p := range providerLabels {
		if strings.Contains(lower, p.key) {
			return p.label
		}
	}
	return UnknownProvider
}

// Capabilities lists the capability tags for a record. Streaming is always present.
func Capabilities(m catalog.Model) []string {
	var caps []string
	if m.SupportsTools() || m.HasParameter("functions") {
		caps = append(caps, registry.CapabilityTools)
	}
	if m.SupportsVision() {
		caps = append(caps, registry.CapabilityVision)
	}
	if m.IsReasoning() {
		caps = append(caps, registry.CapabilityReasoning)
	}
	return append(caps, registry.CapabilityStreaming)
}

// WriteFile writes entries to path as an indented JSON array
func WriteFile(path string, entries []registry.ModelEntry) error {
	if entries == nil {
		entries = []registry.ModelEntry{}
	}
	if err := jsonfile.Write(path, entries); err != nil {
		return fmt.Errorf("failed to export models: %w", err)
	}
	return nil
}
