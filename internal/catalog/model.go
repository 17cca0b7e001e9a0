package catalog

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// TokensPerMillion converts per-token prices into the per-million figures people quote
var TokensPerMillion = decimal.NewFromInt(1_000_000)

// ModelsResponse is the body returned by GET /models
type ModelsResponse struct {
	Data []Model `json:"data"`
}

// Model is one catalog record. It is read-only once decoded.
type Model struct {
	ID                  string       `json:"id" yaml:"id"`
	CanonicalSlug       string       `json:"canonical_slug,omitempty" yaml:"canonical_slug,omitempty"`
	Name                string       `json:"name" yaml:"name"`
	Description         string       `json:"description,omitempty" yaml:"description,omitempty"`
	Created             int64        `json:"created,omitempty" yaml:"created,omitempty"`
	ContextLength       int          `json:"context_length" yaml:"context_length"`
	Pricing             Pricing      `json:"pricing" yaml:"pricing"`
	Architecture        Architecture `json:"architecture" yaml:"architecture"`
	TopProvider         TopProvider  `json:"top_provider" yaml:"top_provider"`
	SupportedParameters []string     `json:"supported_parameters,omitempty" yaml:"supported_parameters,omitempty"`

	// DescriptionSet is true when the record carried a description key, even an empty one
	DescriptionSet bool `json:"-" yaml:"-"`
}

// UnmarshalJSON decodes a record and notes whether "description" was present
func (m *Model) UnmarshalJSON(data []byte) error {
	type plain Model
	var aux struct {
		plain
		Description *string `json:"description"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Model(aux.plain)
	if aux.Description != nil {
		m.Description = *aux.Description
		m.DescriptionSet = true
	}
	return nil
}

// Pricing holds per-token prices as the decimal strings the API sends
type Pricing struct {
	Prompt     string `json:"prompt" yaml:"prompt"`
	Completion string `json:"completion" yaml:"completion"`
	Request    string `json:"request,omitempty" yaml:"request,omitempty"`
	Image      string `json:"image,omitempty" yaml:"image,omitempty"`
}

// Architecture describes what a model accepts and produces
type Architecture struct {
	Modality     string `json:"modality" yaml:"modality"`
	Tokenizer    string `json:"tokenizer,omitempty" yaml:"tokenizer,omitempty"`
	InstructType string `json:"instruct_type,omitempty" yaml:"instruct_type,omitempty"`
}

// TopProvider is the upstream provider OpenRouter routes to by default
type TopProvider struct {
	ContextLength       int  `json:"context_length,omitempty" yaml:"context_length,omitempty"`
	MaxCompletionTokens int  `json:"max_completion_tokens,omitempty" yaml:"max_completion_tokens,omitempty"`
	IsModerated         bool `json:"is_moderated" yaml:"is_moderated"`
}

// PromptPrice returns the per-token prompt price. ok is false when the price is
// missing or not a number.
func (m Model) PromptPrice() (price decimal.Decimal, ok bool) {
	return parsePrice(m.Pricing.Prompt)
}

// CompletionPrice returns the per-token completion price
func (m Model) CompletionPrice() (price decimal.Decimal, ok bool) {
	return parsePrice(m.Pricing.Completion)
}

// PromptPricePerMillion returns the prompt price per million tokens, or zero when unknown
func (m Model) PromptPricePerMillion() decimal.Decimal {
	price, _ := m.PromptPrice()
	return price.Mul(TokensPerMillion)
}

// CompletionPricePerMillion returns the completion price per million tokens, or zero when unknown
func (m Model) CompletionPricePerMillion() decimal.Decimal {
	price, _ := m.CompletionPrice()
	return price.Mul(TokensPerMillion)
}

// HasParameter reports whether name is in the supported parameters
func (m Model) HasParameter(name string) bool {
	return slices.Contains(m.SupportedParameters, name)
}

// SupportsTools reports whether the model accepts tool definitions
func (m Model) SupportsTools() bool {
	return m.HasParameter("tools")
}

// SupportsVision reports whether the modality descriptor includes images
func (m Model) SupportsVision() bool {
	return strings.Contains(m.Architecture.Modality, "image")
}

// SupportsStructuredOutput reports whether the model accepts response_format
func (m Model) SupportsStructuredOutput() bool {
	return m.HasParameter("response_format")
}

// IsReasoning reports whether the model is a thinking variant or describes itself as
// reasoning-capable
func (m Model) IsReasoning() bool {
	return strings.Contains(m.ID, ":thinking") ||
		strings.Contains(strings.ToLower(m.Description), "reasoning")
}

// DisplayName returns the name, falling back to the ID
func (m Model) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

func parsePrice(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

// Index gives constant-time lookups by ID while keeping catalog order for scans
type Index struct {
	models []Model
	byID   map[string]int
}

// NewIndex builds an Index. If an ID repeats, the first record wins.
func NewIndex(models []Model) *Index {
	idx := &Index{
		models: models,
		byID:   make(map[string]int, len(models)),
	}
	for i, m := range models {
		if _, exists := idx.byID[m.ID]; !exists {
			idx.byID[m.ID] = i
		}
	}
	return idx
}

// Lookup returns the record with exactly this ID
func (idx *Index) Lookup(id string) (*Model, bool) {
	if idx == nil {
		return nil, false
	}
	i, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	m := idx.models[i]
	return &m, true
}

// IDs returns every ID in catalog order
func (idx *Index) IDs() []string {
	if idx == nil {
		return nil
	}
	ids := make([]string, len(idx.models))
	for i, m := range idx.models {
		ids[i] = m.ID
	}
	return ids
}

// Len returns the number of records
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.models)
}

// Containing returns up to limit IDs that contain query, ignoring case, in catalog order
func (idx *Index) Containing(query string, limit int) []string {
	if idx == nil || limit <= 0 {
		return nil
	}
	needle := strings.ToLower(query)
	var matches []string
	for _, m := range idx.models {
		if strings.Contains(strings.ToLower(m.ID), needle) {
			matches = append(matches, m.ID)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches
}
