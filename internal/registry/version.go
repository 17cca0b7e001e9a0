package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the registry's "version" value. Files in the wild use both "1.0" and
// 1, so the original JSON token is kept and written back as it was.
type Version struct {
	raw json.RawMessage
}

// NewVersion creates a string version
func NewVersion(v string) Version {
	raw, _ := json.Marshal(v)
	return Version{raw: raw}
}

// String returns the version without JSON quoting, or "" when unset
func (v Version) String() string {
	if len(v.raw) == 0 || bytes.Equal(v.raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.raw, &s); err == nil {
		return s
	}
	return string(v.raw)
}

// UnmarshalJSON accepts a string, a number or null
func (v *Version) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
	case 'n':
		v.raw = nil
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("version must be a string or a number: %w", err)
		}
	}
	v.raw = append(json.RawMessage(nil), trimmed...)
	return nil
}

// MarshalJSON writes the version back in its original form
func (v Version) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return []byte(`""`), nil
	}
	return v.raw, nil
}
