// Package registry reads and writes the operator-maintained model registry file
// (models.config.json), which lists the models the chat application may use.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kimeltech/mcp-chat/internal/utils/jsonfile"
)

var (
	// ErrConfigFileMissing is returned when the registry file does not exist
	ErrConfigFileMissing = errors.New("config file not found")
	// ErrConfigFileMalformed is returned when the registry file cannot be used
	ErrConfigFileMalformed = errors.New("invalid config file")
)

// Capability tags attached to registry entries
const (
	CapabilityTools     = "Tools"
	CapabilityVision    = "Vision"
	CapabilityReasoning = "Reasoning"
	CapabilityStreaming = "Streaming"
)

// File is the registry document
type File struct {
	Version      Version      `json:"version"`
	DefaultModel string       `json:"defaultModel"`
	Models       []ModelEntry `json:"models"`

	// extra keeps unknown top-level keys so a load/save round trip does not drop them
	extra map[string]json.RawMessage
}

// ModelEntry is one model the application can offer
type ModelEntry struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Provider     string   `json:"provider"`
	ModelID      string   `json:"modelId"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Enabled      bool     `json:"enabled"`

	// Extra holds keys this package does not know about, written back unchanged
	Extra map[string]json.RawMessage `json:"-"`
}

var (
	fileKeys  = []string{"version", "defaultModel", "models"}
	entryKeys = []string{"id", "name", "provider", "modelId", "description", "capabilities", "enabled"}
)

// Load reads and validates the registry at path
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileMissing, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a registry document. Every entry needs an id and a
// modelId; anything else may be missing.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigFileMalformed, err)
	}
	for i, m := range f.Models {
		if strings.TrimSpace(m.ID) == "" {
			return nil, fmt.Errorf("%w: models[%d] has no id", ErrConfigFileMalformed, i)
		}
		if strings.TrimSpace(m.ModelID) == "" {
			return nil, fmt.Errorf("%w: models[%d] (%s) has no modelId", ErrConfigFileMalformed, i, m.ID)
		}
	}
	return &f, nil
}

// Save writes the registry back to path
func (f *File) Save(path string) error {
	return jsonfile.Write(path, f)
}

// Find returns the entry with the given local ID
func (f *File) Find(id string) (*ModelEntry, bool) {
	for i := range f.Models {
		if f.Models[i].ID == id {
			return &f.Models[i], true
		}
	}
	return nil, false
}

// Merge appends the entries whose ID is not in the registry yet and returns the IDs it
// added. Existing entries are never touched, so operator edits survive re-exports.
func (f *File) Merge(entries []ModelEntry) []string {
	seen := make(map[string]bool, len(f.Models)+len(entries))
	for _, m := range f.Models {
		seen[m.ID] = true
	}

	var added []string
	for _, e := range entries {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		f.Models = append(f.Models, e)
		added = append(added, e.ID)
	}
	return added
}

// EnabledCount returns how many entries are enabled
func (f *File) EnabledCount() int {
	n := 0
	for _, m := range f.Models {
		if m.Enabled {
			n++
		}
	}
	return n
}

// UnmarshalJSON decodes the known keys and keeps the rest
func (f *File) UnmarshalJSON(data []byte) error {
	type alias File
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownKeys(data, fileKeys)
	if err != nil {
		return err
	}
	*f = File(a)
	f.extra = extra
	return nil
}

// MarshalJSON writes the known keys followed by any preserved unknown ones
func (f File) MarshalJSON() ([]byte, error) {
	type alias File
	if f.Models == nil {
		f.Models = []ModelEntry{}
	}
	return withExtra(alias(f), f.extra)
}

// UnmarshalJSON decodes the known keys and keeps the rest in Extra
func (e *ModelEntry) UnmarshalJSON(data []byte) error {
	type alias ModelEntry
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownKeys(data, entryKeys)
	if err != nil {
		return err
	}
	*e = ModelEntry(a)
	e.Extra = extra
	return nil
}

// MarshalJSON writes the known keys followed by Extra
func (e ModelEntry) MarshalJSON() ([]byte, error) {
	type alias ModelEntry
	if e.Capabilities == nil {
		e.Capabilities = []string{}
	}
	return withExtra(alias(e), e.Extra)
}

// unknownKeys returns the members of the JSON object in data that are not in known
func unknownKeys(data []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// withExtra marshals v (which must encode as an object) and appends the extra members.
// Known keys keep their struct order; extra keys follow in sorted order.
func withExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	known, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return known, nil
	}

	tail, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}

	// known is {...} and tail is {...}: splice them into one object
	var buf bytes.Buffer
	buf.Write(bytes.TrimSuffix(known, []byte("}")))
	if len(known) > 2 {
		buf.WriteByte(',')
	}
	buf.Write(bytes.TrimPrefix(tail, []byte("{")))
	return buf.Bytes(), nil
}
