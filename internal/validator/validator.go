// Package validator checks every entry of the model registry against the live
// OpenRouter catalog and makes one probe call per model that exists.
package validator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kimeltech/mcp-chat/internal/catalog"
	"github.com/kimeltech/mcp-chat/internal/registry"
	"github.com/sahilm/fuzzy"
	"github.com/sirupsen/logrus"
)

// Status is the terminal state of one validated entry
type Status string

const (
	StatusAbsent     Status = "absent"
	StatusUncallable Status = "exists_but_uncallable"
	StatusCallable   Status = "callable"
)

const (
	// DefaultProbeTimeout bounds a single probe call
	DefaultProbeTimeout = 60 * time.Second

	maxSimilar         = 5
	maxSuggested       = 3
	maxClosestMatches  = 3
	emptyReplyResponse = "Success"
)

// Result is the outcome for one registry entry
type Result struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	ModelID        string         `json:"modelId" yaml:"modelId"`
	Provider       string         `json:"provider,omitempty" yaml:"provider,omitempty"`
	Enabled        bool           `json:"enabled" yaml:"enabled"`
	Status         Status         `json:"status" yaml:"status"`
	Exists         bool           `json:"exists" yaml:"exists"`
	Callable       bool           `json:"callable" yaml:"callable"`
	Error          string         `json:"error,omitempty" yaml:"error,omitempty"`
	ModelInfo      *catalog.Model `json:"model_info,omitempty" yaml:"model_info,omitempty"`
	SimilarModels  []string       `json:"similar_models,omitempty" yaml:"similar_models,omitempty"`
	Suggestion     string         `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	ClosestMatches []string       `json:"closest_matches,omitempty" yaml:"closest_matches,omitempty"`
	Response       string         `json:"response,omitempty" yaml:"response,omitempty"`
}

// Passed reports whether the entry is fully usable
func (r Result) Passed() bool {
	return r.Status == StatusCallable
}

// CatalogSource provides the catalog snapshot
type CatalogSource interface {
	Fetch(ctx context.Context, forceRefresh bool) ([]catalog.Model, error)
}

// Prober makes one minimal call against a model and returns its reply
type Prober interface {
	Probe(ctx context.Context, modelID string) (string, error)
}

// Validator runs existence and call checks. The catalog is fetched once, on first
// use, and reused for every entry of the run.
type Validator struct {
	source       CatalogSource
	prober       Prober
	probeTimeout time.Duration
	logger       *logrus.Logger

	indexOnce sync.Once
	index     *catalog.Index
}

// New creates a Validator. A non-positive probeTimeout uses DefaultProbeTimeout.
func New(source CatalogSource, prober Prober, probeTimeout time.Duration, logger *logrus.Logger) *Validator {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Validator{
		source:       source,
		prober:       prober,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Run validates entries one after another, calling onResult (if set) as each
// finishes. It stops early only when ctx is cancelled.
func (v *Validator) Run(ctx context.Context, entries []registry.ModelEntry, onResult func(Result)) ([]Result, error) {
	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("validation interrupted after %d of %d models: %w", len(results), len(entries), err)
		}
		result := v.Validate(ctx, entry)
		results = append(results, result)
		if onResult != nil {
			onResult(result)
		}
	}
	return results, nil
}

// Validate checks a single entry
func (v *Validator) Validate(ctx context.Context, entry registry.ModelEntry) Result {
	result := Result{
		ID:       entry.ID,
		Name:     entry.Name,
		ModelID:  entry.ModelID,
		Provider: entry.Provider,
		Enabled:  entry.Enabled,
	}

	index := v.catalogIndex(ctx)
	model, ok := index.Lookup(entry.ModelID)
	if !ok {
		result.Status = StatusAbsent
		result.SimilarModels = index.Containing(entry.ModelID, maxSimilar)
		if len(result.SimilarModels) > 0 {
			result.Suggestion = suggestion(result.SimilarModels)
		} else {
			result.ClosestMatches = closestMatches(index, entry.ModelID)
		}
		v.logger.WithFields(logrus.Fields{
			"model":   entry.ModelID,
			"similar": len(result.SimilarModels),
		}).Debug("Model not found in catalog")
		return result
	}
	result.Exists = true
	result.ModelInfo = model

	probeCtx, cancel := context.WithTimeout(ctx, v.probeTimeout)
	defer cancel()

	reply, err := v.prober.Probe(probeCtx, entry.ModelID)
	if err != nil {
		result.Status = StatusUncallable
		result.Error = err.Error()
		v.logger.WithError(err).WithField("model", entry.ModelID).Debug("Probe call failed")
		return result
	}

	result.Status = StatusCallable
	result.Callable = true
	result.Response = reply
	if strings.TrimSpace(reply) == "" {
		result.Response = emptyReplyResponse
	}
	return result
}

// catalogIndex fetches the catalog on first use. A failed fetch leaves an empty
// index so every entry reports absent rather than aborting the run.
func (v *Validator) catalogIndex(ctx context.Context) *catalog.Index {
	v.indexOnce.Do(func() {
		models, err := v.source.Fetch(ctx, false)
		if err != nil {
			v.logger.WithError(err).Warn("Could not fetch the model catalog, every model will be reported as not found")
			v.index = catalog.NewIndex(nil)
			return
		}
		v.logger.WithField("models", len(models)).Debug("Catalog loaded for validation")
		v.index = catalog.NewIndex(models)
	})
	return v.index
}

func suggestion(similar []string) string {
	if len(similar) > maxSuggested {
		similar = similar[:maxSuggested]
	}
	return "Try one of: " + strings.Join(similar, ", ")
}

// closestMatches ranks catalog IDs by fuzzy score. The full ID is tried first, then
// the part after the vendor prefix, which catches renamed vendors.
func closestMatches(index *catalog.Index, modelID string) []string {
	if index.Len() == 0 || modelID == "" {
		return nil
	}
	ids := index.IDs()

	patterns := []string{modelID}
	if i := strings.LastIndex(modelID, "/"); i >= 0 && i < len(modelID)-1 {
		patterns = append(patterns, modelID[i+1:])
	}

	for _, pattern := range patterns {
		matches := fuzzy.Find(pattern, ids)
		if len(matches) == 0 {
			continue
		}
		var out []string
		for _, m := range matches {
			out = append(out, m.Str)
			if len(out) == maxClosestMatches {
				break
			}
		}
		return out
	}
	return nil
}
